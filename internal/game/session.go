package game

import (
	"time"

	"github.com/google/uuid"
)

// NewSession creates a session with the creator seated as X, waiting for an
// opponent. The connection id may be empty when the creator is not yet live.
func NewSession(playerID, playerName, connID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          uuid.NewString(),
		PlayerXID:   playerID,
		PlayerXName: playerName,
		PlayerXConn: connID,
		Status:      StatusWaiting,
		Turn:        SeatX,
		Moves:       []Move{},
		CreatedAt:   now,
		LastMoveAt:  now,
	}
}

// NewPairedSession creates a session from a matchmaking pair: the waiting
// player takes seat X, the joining caller seat O, and play starts
// immediately.
func NewPairedSession(xID, xName, xConn, oID, oName, oConn string) *Session {
	s := NewSession(xID, xName, xConn)
	s.PlayerOID = oID
	s.PlayerOName = oName
	s.PlayerOConn = oConn
	s.Status = StatusInProgress
	return s
}

// SeatOf returns the seat held by the player identity, or "" when the player
// is not in the session.
func (s *Session) SeatOf(playerID string) Seat {
	if playerID != "" && s.PlayerXID == playerID {
		return SeatX
	}
	if playerID != "" && s.PlayerOID == playerID {
		return SeatO
	}
	return ""
}

func (s *Session) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusDraw, StatusAbandoned:
		return true
	}
	return false
}

// Join seats the player. A player who already holds a seat only has their
// connection refreshed, so creator reconnection is idempotent. A stranger
// takes the empty O seat and starts the game; with both seats occupied the
// join is rejected. A finished or abandoned session never seats a stranger.
func (s *Session) Join(playerID, playerName, connID string) (Seat, error) {
	switch s.SeatOf(playerID) {
	case SeatX:
		s.PlayerXConn = connID
		return SeatX, nil
	case SeatO:
		s.PlayerOConn = connID
		return SeatO, nil
	}
	if s.Terminal() {
		return "", ErrInvalidState
	}
	if s.PlayerOID != "" {
		return "", ErrGameFull
	}
	s.PlayerOID = playerID
	s.PlayerOName = playerName
	s.PlayerOConn = connID
	s.Status = StatusInProgress
	return SeatO, nil
}

// ApplyMove validates and applies one placement for the player, advances the
// turn and evaluates the outcome. On a win or draw the session becomes
// terminal and the completion timestamp is stamped.
func (s *Session) ApplyMove(playerID string, position int) error {
	seat := s.SeatOf(playerID)
	if seat == "" {
		return ErrNotParticipant
	}
	if s.Status != StatusInProgress {
		return ErrInvalidState
	}
	if seat != s.Turn {
		return ErrNotYourTurn
	}
	if position < 0 || position > 8 {
		return ErrOutOfRange
	}
	for _, m := range s.Moves {
		if m.Position == position {
			return ErrPositionTaken
		}
	}

	now := time.Now().UTC()
	s.Moves = append(s.Moves, Move{
		Seat:     seat,
		Position: position,
		Seq:      len(s.Moves) + 1,
		PlayedAt: now,
	})
	s.LastMoveAt = now
	s.Turn = seat.Other()

	switch out := Evaluate(BoardOf(s.Moves)); out.Kind {
	case OutcomeWin:
		s.Status = StatusCompleted
		s.Winner = out.Winner
		s.WinningLine = []int{out.Line[0], out.Line[1], out.Line[2]}
		s.CompletedAt = &now
	case OutcomeDraw:
		s.Status = StatusDraw
		s.CompletedAt = &now
	}
	return nil
}

// Disconnect clears whichever seat held the connection and reports whether a
// seat changed. A waiting session with no live connection left is abandoned;
// a started or finished match keeps its status so the player can reconnect.
func (s *Session) Disconnect(connID string) bool {
	if connID == "" {
		return false
	}
	changed := false
	if s.PlayerXConn == connID {
		s.PlayerXConn = ""
		changed = true
	}
	if s.PlayerOConn == connID {
		s.PlayerOConn = ""
		changed = true
	}
	if changed && s.Status == StatusWaiting && s.PlayerXConn == "" && s.PlayerOConn == "" {
		s.Status = StatusAbandoned
	}
	return changed
}

// Reconnect attaches a new connection to the seat assigned to the player.
// No status change.
func (s *Session) Reconnect(playerID, connID string) error {
	switch s.SeatOf(playerID) {
	case SeatX:
		s.PlayerXConn = connID
	case SeatO:
		s.PlayerOConn = connID
	default:
		return ErrNotParticipant
	}
	return nil
}

// Reset clears the played state for a confirmed restart: moves, winner, line
// and completion are dropped, turn returns to X and play resumes. Identity
// and seat assignments are preserved.
func (s *Session) Reset() {
	now := time.Now().UTC()
	s.Moves = []Move{}
	s.Winner = ""
	s.WinningLine = nil
	s.CompletedAt = nil
	s.Turn = SeatX
	s.Status = StatusInProgress
	s.LastMoveAt = now
}
