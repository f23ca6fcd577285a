package memory

import (
	"context"
	"sort"
	"sync"

	"partyvote/internal/domain"
	"partyvote/internal/store"
)

// Store keeps state in process memory. It is used by tests and by
// ephemeral runs where nothing must survive a restart.
type Store struct {
	mu sync.RWMutex

	votes map[string]domain.Vote
	match *domain.MatchState

	failure error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		votes: make(map[string]domain.Vote),
	}
}

// SetFailure makes every subsequent call fail with err until cleared with nil
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// LoadVotes returns every stored vote, oldest first
func (s *Store) LoadVotes(ctx context.Context) ([]domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	votes := make([]domain.Vote, 0, len(s.votes))
	for _, vote := range s.votes {
		votes = append(votes, vote)
	}
	sort.Slice(votes, func(i, j int) bool {
		if !votes[i].CastAt.Equal(votes[j].CastAt) {
			return votes[i].CastAt.Before(votes[j].CastAt)
		}
		return votes[i].Key() < votes[j].Key()
	})
	return votes, nil
}

// PutVote replaces the voter's vote in the vote's category
func (s *Store) PutVote(ctx context.Context, vote domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.votes[vote.Key()] = vote
	return nil
}

// LoadMatch returns a copy of the saved match. found is false until the first SaveMatch.
func (s *Store) LoadMatch(ctx context.Context) (domain.MatchState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return domain.MatchState{}, false, err
	}
	if s.match == nil {
		return domain.NewMatchState(), false, nil
	}
	return s.match.Clone(), true, nil
}

// SaveMatch stores a copy of state
func (s *Store) SaveMatch(ctx context.Context, state domain.MatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	saved := state.Clone()
	s.match = &saved
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if s.failure != nil {
		return s.failure
	}
	return ctx.Err()
}

var _ store.Store = (*Store)(nil)
