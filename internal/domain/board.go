package domain

import "strings"

const (
	// BoardSide is the number of rows and columns on the board
	BoardSide = 3

	// CellCount is the number of cells on the board
	CellCount = BoardSide * BoardSide
)

// Mark is the content of a cell: OPEN, X or O
type Mark string

const (
	MarkOpen Mark = ""
	MarkX    Mark = "X"
	MarkO    Mark = "O"
)

// DefaultTurn is the mark that moves first on a store that was never initialized
const DefaultTurn = MarkX

// String returns the string representation of the mark
func (m Mark) String() string {
	if m == MarkOpen {
		return "_"
	}
	return string(m)
}

// IsPlayable reports whether m is X or O
func (m Mark) IsPlayable() bool {
	return m == MarkX || m == MarkO
}

// Opponent returns the other playable mark
func (m Mark) Opponent() Mark {
	if m == MarkX {
		return MarkO
	}
	return MarkX
}

// ParseMark parses a stored mark. "_" and "" are OPEN.
func ParseMark(s string) (Mark, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "_":
		return MarkOpen, nil
	case "X":
		return MarkX, nil
	case "O":
		return MarkO, nil
	default:
		return MarkOpen, ErrInvalidMark
	}
}

// Board is the 3x3 grid addressed by row*3+col
type Board [CellCount]Mark

// CellIndex validates a coordinate and returns its cell index
func CellIndex(row, col int) (int, error) {
	if row < 0 || row >= BoardSide || col < 0 || col >= BoardSide {
		return 0, ErrInvalidCoordinate
	}
	return row*BoardSide + col, nil
}

// At returns the mark at row, col. The coordinate must be valid.
func (b Board) At(row, col int) Mark {
	return b[row*BoardSide+col]
}

// IsOpen reports whether the cell at index is OPEN
func (b Board) IsOpen(index int) bool {
	return b[index] == MarkOpen
}

// Full reports whether no cell is OPEN
func (b Board) Full() bool {
	for _, m := range b {
		if m == MarkOpen {
			return false
		}
	}
	return true
}

// Rows returns the board as three rows, for rendering
func (b Board) Rows() [BoardSide][BoardSide]Mark {
	var rows [BoardSide][BoardSide]Mark
	for i, m := range b {
		rows[i/BoardSide][i%BoardSide] = m
	}
	return rows
}

// triple is a winning line: three cells from start, offset apart
type triple struct {
	start  int
	offset int
}

// triples holds the 3 rows, 3 columns and 2 diagonals
var triples = [8]triple{
	{0, 1}, {3, 1}, {6, 1},
	{0, 3}, {1, 3}, {2, 3},
	{0, 4}, {2, 2},
}

func (b Board) tripleWinner(t triple) Mark {
	first := b[t.start]
	if first == MarkOpen {
		return MarkOpen
	}
	if b[t.start+t.offset] != first || b[t.start+2*t.offset] != first {
		return MarkOpen
	}
	return first
}

// Winner returns the mark owning a complete triple, if any.
// On a legal board at most one mark can own triples, so the first found wins.
func (b Board) Winner() (Mark, bool) {
	for _, t := range triples {
		if m := b.tripleWinner(t); m != MarkOpen {
			return m, true
		}
	}
	return MarkOpen, false
}

// Evaluate classifies the board. A win takes priority over a tie.
func (b Board) Evaluate() Outcome {
	if _, ok := b.Winner(); ok {
		return OutcomeWon
	}
	if b.Full() {
		return OutcomeTie
	}
	return OutcomeContinue
}

// String renders the board as three lines of marks
func (b Board) String() string {
	var sb strings.Builder
	for i, m := range b {
		sb.WriteString(m.String())
		switch {
		case i == CellCount-1:
		case i%BoardSide == BoardSide-1:
			sb.WriteByte('\n')
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
