package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"partyvote/internal/domain"
	"partyvote/internal/store"
)

const (
	votesBucketName = "votes"
	boardBucketName = "board"
	metaBucketName  = "meta"
	winsBucketName  = "wins"

	turnKey = "turn"

	openTimeout = 5 * time.Second
)

var ErrBucketNotFound = errors.New("bbolt bucket not found")

// Store persists state in a single bbolt file
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the bbolt file at path
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bbolt %s: %w", path, err)
	}
	if err := initDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func initDB(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{votesBucketName, boardBucketName, metaBucketName, winsBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// LoadVotes returns every stored vote, oldest first
func (s *Store) LoadVotes(ctx context.Context) ([]domain.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var votes []domain.Vote
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucket(tx, votesBucketName)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			var vote domain.Vote
			if err := json.Unmarshal(v, &vote); err != nil {
				return fmt.Errorf("decode vote %q: %w", k, err)
			}
			votes = append(votes, vote)
			return nil
		})
	})
	if err != nil {
		return nil, s.logError("bolt_load_votes_failed", err)
	}

	sort.Slice(votes, func(i, j int) bool {
		return votes[i].CastAt.Before(votes[j].CastAt)
	})
	return votes, nil
}

// PutVote replaces the voter's vote in the vote's category
func (s *Store) PutVote(ctx context.Context, vote domain.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(vote)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucket(tx, votesBucketName)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(vote.Key()), raw)
	})
	if err != nil {
		return s.logError("bolt_put_vote_failed", err, "voter_id", vote.VoterID, "category", vote.Category)
	}
	return nil
}

// LoadMatch reads the board, turn marker and win counts.
// found is false until the first SaveMatch.
func (s *Store) LoadMatch(ctx context.Context) (domain.MatchState, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.MatchState{}, false, err
	}

	state := domain.NewMatchState()
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		meta, err := bucket(tx, metaBucketName)
		if err != nil {
			return err
		}
		raw := meta.Get([]byte(turnKey))
		if raw == nil {
			return nil
		}
		found = true
		if state.Turn, err = domain.ParseMark(string(raw)); err != nil {
			return fmt.Errorf("decode turn marker: %w", err)
		}

		board, err := bucket(tx, boardBucketName)
		if err != nil {
			return err
		}
		for i := range state.Board {
			cell := board.Get(cellKey(i))
			if cell == nil {
				continue
			}
			if state.Board[i], err = domain.ParseMark(string(cell)); err != nil {
				return fmt.Errorf("decode cell %d: %w", i, err)
			}
		}

		wins, err := bucket(tx, winsBucketName)
		if err != nil {
			return err
		}
		return wins.ForEach(func(k, v []byte) error {
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("decode wins for %q: %w", k, err)
			}
			state.Wins[string(k)] = n
			return nil
		})
	})
	if err != nil {
		return domain.MatchState{}, false, s.logError("bolt_load_match_failed", err)
	}
	return state, found, nil
}

// SaveMatch upserts every cell, the marker and the win counts in one transaction
func (s *Store) SaveMatch(ctx context.Context, state domain.MatchState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		board, err := bucket(tx, boardBucketName)
		if err != nil {
			return err
		}
		for i, mark := range state.Board {
			if err := board.Put(cellKey(i), []byte(mark.String())); err != nil {
				return err
			}
		}

		meta, err := bucket(tx, metaBucketName)
		if err != nil {
			return err
		}
		if err := meta.Put([]byte(turnKey), []byte(state.Turn)); err != nil {
			return err
		}

		wins, err := bucket(tx, winsBucketName)
		if err != nil {
			return err
		}
		for playerID, n := range state.Wins {
			if err := wins.Put([]byte(playerID), []byte(strconv.Itoa(n))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.logError("bolt_save_match_failed", err)
	}
	return nil
}

// Close closes the bbolt file
func (s *Store) Close() error {
	return s.db.Close()
}

func bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return b, nil
}

func cellKey(index int) []byte {
	return []byte(strconv.Itoa(index))
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "store/boltstore",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("bolt store operation failed", fields...)
	return err
}

var _ store.Store = (*Store)(nil)
