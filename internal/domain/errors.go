package domain

import (
	"errors"
	"strconv"
)

// Domain errors
var (
	ErrInvalidCoordinate  = errors.New("coordinate out of range")
	ErrCellOccupied       = errors.New("cell is already occupied")
	ErrStorageUnavailable = errors.New("state store unavailable")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInvalidCategory    = errors.New("invalid vote category")
	ErrInvalidTarget      = errors.New("invalid vote target")
	ErrInvalidPlayer      = errors.New("player id is required")
	ErrInvalidMark        = errors.New("invalid mark")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrWrongChannel       = errors.New("command not allowed in this channel")
)

// LedgerInconsistency reports a divergence between the per-voter and
// per-target vote indexes. It is only ever logged.
type LedgerInconsistency struct {
	Category Category
	ByTarget int
	ByVoter  int
}

// Error describes both index counts
func (e *LedgerInconsistency) Error() string {
	return "ledger inconsistency in " + string(e.Category) + ": " +
		strconv.Itoa(e.ByTarget) + " votes by target, " + strconv.Itoa(e.ByVoter) + " by voter"
}
