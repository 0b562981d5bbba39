package game

import (
	"errors"
	"testing"
)

func TestJoinAssignsSeatOAndStarts(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if s.Status != StatusWaiting || s.Turn != SeatX {
		t.Fatalf("unexpected initial state: status=%s turn=%s", s.Status, s.Turn)
	}
	seat, err := s.Join("u2", "bob", "c2")
	if err != nil || seat != SeatO {
		t.Fatalf("Join: seat=%q err=%v", seat, err)
	}
	if s.Status != StatusInProgress {
		t.Fatalf("expected in-progress after second join, got %s", s.Status)
	}
}

func TestJoinIdempotentForSeatedPlayer(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	seat, err := s.Join("u1", "alice", "c9")
	if err != nil || seat != SeatX {
		t.Fatalf("rejoin: seat=%q err=%v", seat, err)
	}
	if s.PlayerXConn != "c9" || s.PlayerOID != "u2" || s.Status != StatusInProgress {
		t.Fatalf("rejoin mutated more than the connection: %+v", s)
	}
}

func TestJoinRejectsThirdPlayer(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := s.Join("u3", "carol", "c3"); !errors.Is(err, ErrGameFull) {
		t.Fatalf("expected ErrGameFull, got %v", err)
	}
}

func TestJoinRejectsStrangerOnTerminalSession(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	s.Disconnect("c1")
	if s.Status != StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", s.Status)
	}
	if _, err := s.Join("u2", "bob", "c2"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if s.Status != StatusAbandoned || s.PlayerOID != "" {
		t.Fatalf("terminal session mutated by join: %+v", s)
	}

	// a seated player may still refresh their connection
	if seat, err := s.Join("u1", "alice", "c9"); err != nil || seat != SeatX {
		t.Fatalf("seated rejoin: seat=%q err=%v", seat, err)
	}
}

func playAll(t *testing.T, s *Session, positions ...int) {
	t.Helper()
	players := map[Seat]string{SeatX: s.PlayerXID, SeatO: s.PlayerOID}
	for _, p := range positions {
		if err := s.ApplyMove(players[s.Turn], p); err != nil {
			t.Fatalf("ApplyMove(%d): %v", p, err)
		}
	}
}

func TestMoveSequenceToWin(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	playAll(t, s, 0, 4, 1, 5, 2)
	if s.Status != StatusCompleted || s.Winner != SeatX {
		t.Fatalf("expected X win, got status=%s winner=%q", s.Status, s.Winner)
	}
	if len(s.WinningLine) != 3 || s.WinningLine[0] != 0 || s.WinningLine[1] != 1 || s.WinningLine[2] != 2 {
		t.Fatalf("expected line [0 1 2], got %v", s.WinningLine)
	}
	if s.CompletedAt == nil {
		t.Fatalf("completion timestamp not stamped")
	}
}

func TestMoveSequenceToDraw(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	// X:0 O:4 X:8 O:1 X:7 O:6 X:2 O:5 X:3 fills the board with no winner
	playAll(t, s, 0, 4, 8, 1, 7, 6, 2, 5, 3)
	if s.Status != StatusDraw || s.Winner != "" {
		t.Fatalf("expected draw, got status=%s winner=%q", s.Status, s.Winner)
	}
	if len(s.Moves) != 9 {
		t.Fatalf("expected 9 moves, got %d", len(s.Moves))
	}
}

func TestTurnAlternates(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	playAll(t, s, 0, 4, 8, 1)
	// after an even number of moves it is X's turn again
	if s.Turn != SeatX {
		t.Fatalf("expected turn X after 4 moves, got %s", s.Turn)
	}
}

func TestMoveRejections(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if err := s.ApplyMove("u1", 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move while waiting: expected ErrInvalidState, got %v", err)
	}
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := s.ApplyMove("u2", 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if err := s.ApplyMove("u1", 9); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := s.ApplyMove("u1", 0); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if err := s.ApplyMove("u2", 0); !errors.Is(err, ErrPositionTaken) {
		t.Fatalf("expected ErrPositionTaken, got %v", err)
	}
	if err := s.ApplyMove("u3", 1); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestDisconnectAbandonsWaitingSession(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if !s.Disconnect("c1") {
		t.Fatalf("expected disconnect to change a seat")
	}
	if s.Status != StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", s.Status)
	}
}

func TestDisconnectKeepsStartedGameAlive(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !s.Disconnect("c2") {
		t.Fatalf("expected disconnect to change a seat")
	}
	if s.Status != StatusInProgress || s.PlayerOConn != "" {
		t.Fatalf("expected in-progress with cleared conn, got status=%s conn=%q", s.Status, s.PlayerOConn)
	}
	if err := s.Reconnect("u2", "c3"); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if s.PlayerOConn != "c3" || s.Status != StatusInProgress {
		t.Fatalf("reconnect did not reattach: %+v", s)
	}
}

func TestDisconnectUnknownConnection(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if s.Disconnect("nope") {
		t.Fatalf("unknown connection should not change seats")
	}
	if s.Status != StatusWaiting {
		t.Fatalf("status changed: %s", s.Status)
	}
}

func TestResetPreservesSeatsAndIdentity(t *testing.T) {
	s := NewSession("u1", "alice", "c1")
	if _, err := s.Join("u2", "bob", "c2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	playAll(t, s, 0, 4, 1, 5, 2)
	id := s.ID
	s.Reset()
	if s.ID != id || s.PlayerXID != "u1" || s.PlayerOID != "u2" {
		t.Fatalf("reset changed identity or seats: %+v", s)
	}
	if s.Status != StatusInProgress || s.Turn != SeatX || len(s.Moves) != 0 {
		t.Fatalf("reset incomplete: status=%s turn=%s moves=%d", s.Status, s.Turn, len(s.Moves))
	}
	if s.Winner != "" || s.WinningLine != nil || s.CompletedAt != nil {
		t.Fatalf("reset left terminal fields: %+v", s)
	}
}
