package game

import (
	"time"
)

// Seat identifies one of the two fixed playing positions, independent of
// which player identity currently occupies it.
type Seat string

const (
	SeatX Seat = "X"
	SeatO Seat = "O"
)

func (s Seat) Other() Seat {
	if s == SeatX {
		return SeatO
	}
	return SeatX
}

// Status represents a session lifecycle state.
type Status string

const (
	StatusWaiting    Status = "WAITING_FOR_PLAYERS"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusDraw       Status = "DRAW"
	StatusAbandoned  Status = "ABANDONED"
)

// Move is one committed board placement.
type Move struct {
	Seat     Seat      `json:"seat"`
	Position int       `json:"position"`
	Seq      int       `json:"seq"`
	PlayedAt time.Time `json:"played_at"`
}

// Session is the persisted authoritative state of one match. Version is the
// optimistic-concurrency token: it strictly increases by one per committed
// mutation and is never reused.
type Session struct {
	ID string `json:"id"`

	PlayerXID   string `json:"player_x_id,omitempty"`
	PlayerXName string `json:"player_x_name,omitempty"`
	PlayerXConn string `json:"player_x_conn,omitempty"`
	PlayerOID   string `json:"player_o_id,omitempty"`
	PlayerOName string `json:"player_o_name,omitempty"`
	PlayerOConn string `json:"player_o_conn,omitempty"`

	Status      Status `json:"status"`
	Turn        Seat   `json:"turn"`
	Moves       []Move `json:"moves"`
	Winner      Seat   `json:"winner,omitempty"`
	WinningLine []int  `json:"winning_line,omitempty"`

	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	LastMoveAt  time.Time  `json:"last_move_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
