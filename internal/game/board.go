package game

// Board is the 9-cell grid; empty cells hold "".
type Board [9]Seat

// OutcomeKind discriminates the evaluator result.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeWin
	OutcomeDraw
)

// Outcome is the evaluator result. Line is set only for OutcomeWin.
type Outcome struct {
	Kind   OutcomeKind
	Winner Seat
	Line   [3]int
}

// winLines are the 8 canonical triples, checked in a fixed order so the
// reported line is deterministic: rows, columns, diagonals.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// BoardOf replays moves onto an empty board.
func BoardOf(moves []Move) Board {
	var b Board
	for _, m := range moves {
		if m.Position >= 0 && m.Position < len(b) {
			b[m.Position] = m.Seat
		}
	}
	return b
}

// Evaluate returns the first fully-marked triple as the win, a draw when all
// nine cells are filled with no triple marked, or none otherwise. Pure, no
// error cases.
func Evaluate(b Board) Outcome {
	for _, line := range winLines {
		mark := b[line[0]]
		if mark != "" && mark == b[line[1]] && mark == b[line[2]] {
			return Outcome{Kind: OutcomeWin, Winner: mark, Line: line}
		}
	}
	for _, cell := range b {
		if cell == "" {
			return Outcome{Kind: OutcomeNone}
		}
	}
	return Outcome{Kind: OutcomeDraw}
}
