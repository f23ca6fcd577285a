package domain

import "sort"

// Outcome is the result of an accepted move
type Outcome string

const (
	OutcomeContinue Outcome = "CONTINUE"
	OutcomeWon      Outcome = "WON"
	OutcomeTie      Outcome = "TIE"
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// MoveResult describes an accepted move.
// Board is the post-move board; on WON and TIE the live board has already been reset.
type MoveResult struct {
	Outcome  Outcome `json:"outcome"`
	PlayerID string  `json:"playerId"`
	Mark     Mark    `json:"mark"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Winner   string  `json:"winner,omitempty"`
	Board    Board   `json:"board"`
	NextTurn Mark    `json:"nextTurn"`
}

// WinCount is one scoreboard line
type WinCount struct {
	PlayerID string `json:"playerId"`
	Wins     int    `json:"wins"`
}

// MatchState is everything the match engine persists
type MatchState struct {
	Board Board          `json:"board"`
	Turn  Mark           `json:"turn"`
	Wins  map[string]int `json:"wins"`
}

// NewMatchState returns the state of a store that was never initialized
func NewMatchState() MatchState {
	return MatchState{
		Turn: DefaultTurn,
		Wins: make(map[string]int),
	}
}

// Clone returns a deep copy
func (s MatchState) Clone() MatchState {
	wins := make(map[string]int, len(s.Wins))
	for id, n := range s.Wins {
		wins[id] = n
	}
	return MatchState{Board: s.Board, Turn: s.Turn, Wins: wins}
}

// ClaimTurn returns the mark that moves now and advances the marker
func (s *MatchState) ClaimTurn() Mark {
	if !s.Turn.IsPlayable() {
		s.Turn = DefaultTurn
	}
	mark := s.Turn
	s.Turn = mark.Opponent()
	return mark
}

// ResetBoard opens every cell. Turn and wins are untouched.
func (s *MatchState) ResetBoard() {
	s.Board = Board{}
}

// SortedWins returns the scoreboard by descending wins, then player id
func (s MatchState) SortedWins() []WinCount {
	counts := make([]WinCount, 0, len(s.Wins))
	for id, n := range s.Wins {
		counts = append(counts, WinCount{PlayerID: id, Wins: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Wins != counts[j].Wins {
			return counts[i].Wins > counts[j].Wins
		}
		return counts[i].PlayerID < counts[j].PlayerID
	})
	return counts
}
