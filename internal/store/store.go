// Package store defines the State Store the vote ledger and match engine
// persist through. Adapters live in the subpackages.
package store

import (
	"context"
	"errors"

	"partyvote/internal/domain"
)

// Kinds of State Store selectable from configuration
const (
	KindMemory   = "memory"
	KindBolt     = "bolt"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

// ErrUnknownKind is returned for a store kind no adapter implements
var ErrUnknownKind = errors.New("unknown store kind")

// VoteStore persists vote records, upserted by voter+category
type VoteStore interface {
	LoadVotes(ctx context.Context) ([]domain.Vote, error)
	PutVote(ctx context.Context, vote domain.Vote) error
}

// MatchStore persists the board cells, the turn marker and the win counts.
// SaveMatch must write the whole state atomically: either every cell, the
// marker and every win count are upserted, or nothing is.
type MatchStore interface {
	// LoadMatch reports found=false when the store was never initialized.
	LoadMatch(ctx context.Context) (state domain.MatchState, found bool, err error)
	SaveMatch(ctx context.Context, state domain.MatchState) error
}

// Store is a full State Store
type Store interface {
	VoteStore
	MatchStore
	Close() error
}
