package arenadto

import "time"

// Snapshot is the broadcast-worthy view of a session after a committed
// transition. Board cells hold "X", "O" or "" for empty.
type Snapshot struct {
	SessionID string `json:"session_id"`

	PlayerXID        string `json:"player_x_id,omitempty"`
	PlayerXName      string `json:"player_x_name,omitempty"`
	PlayerXConnected bool   `json:"player_x_connected"`
	PlayerOID        string `json:"player_o_id,omitempty"`
	PlayerOName      string `json:"player_o_name,omitempty"`
	PlayerOConnected bool   `json:"player_o_connected"`

	Status      string    `json:"status"`
	CurrentTurn string    `json:"current_turn"`
	Winner      string    `json:"winner,omitempty"`
	WinningLine []int     `json:"winning_line,omitempty"`
	Board       [9]string `json:"board"`

	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
