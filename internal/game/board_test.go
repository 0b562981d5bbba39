package game

import "testing"

func TestEvaluateEmptyBoard(t *testing.T) {
	out := Evaluate(Board{})
	if out.Kind != OutcomeNone {
		t.Fatalf("empty board: expected none, got %v", out.Kind)
	}
}

func TestEvaluateAllLines(t *testing.T) {
	lines := [][3]int{
		{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
		{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
		{0, 4, 8}, {2, 4, 6},
	}
	for _, line := range lines {
		var b Board
		for _, p := range line {
			b[p] = SeatO
		}
		out := Evaluate(b)
		if out.Kind != OutcomeWin || out.Winner != SeatO {
			t.Fatalf("line %v: expected O win, got kind=%v winner=%q", line, out.Kind, out.Winner)
		}
		if out.Line != line {
			t.Fatalf("line %v: reported %v", line, out.Line)
		}
		// a winning line consists of 3 positions holding the same mark
		for _, p := range out.Line {
			if b[p] != out.Winner {
				t.Fatalf("line %v: position %d holds %q, not winner", line, p, b[p])
			}
		}
	}
}

func TestEvaluateDraw(t *testing.T) {
	// X O X / X O O / O X X, full with no triple
	b := Board{SeatX, SeatO, SeatX, SeatX, SeatO, SeatO, SeatO, SeatX, SeatX}
	out := Evaluate(b)
	if out.Kind != OutcomeDraw {
		t.Fatalf("expected draw, got %v", out.Kind)
	}
}

func TestEvaluateInProgress(t *testing.T) {
	b := Board{SeatX, SeatO, "", "", SeatX, "", "", "", ""}
	if out := Evaluate(b); out.Kind != OutcomeNone {
		t.Fatalf("expected none, got %v", out.Kind)
	}
}

func TestBoardOfIgnoresOutOfRange(t *testing.T) {
	b := BoardOf([]Move{{Seat: SeatX, Position: 4}, {Seat: SeatO, Position: 11}})
	if b[4] != SeatX {
		t.Fatalf("expected X at 4, got %q", b[4])
	}
}
