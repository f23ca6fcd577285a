package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"partyvote/internal/domain"
	"partyvote/internal/store"
)

const keyPrefix = "partyvote:"

// Store persists state in Redis hashes. SaveMatch runs in MULTI/EXEC.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// Open connects to a redis:// or rediss:// URL and pings the server
func Open(ctx context.Context, rawURL string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, logger), nil
}

// New wraps an existing client
func New(rdb *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{rdb: rdb, logger: logger}
}

func votesKey() string { return keyPrefix + "votes" }
func boardKey() string { return keyPrefix + "board" }
func turnKey() string  { return keyPrefix + "turn" }
func winsKey() string  { return keyPrefix + "wins" }

// LoadVotes returns every stored vote, oldest first
func (s *Store) LoadVotes(ctx context.Context) ([]domain.Vote, error) {
	raw, err := s.rdb.HGetAll(ctx, votesKey()).Result()
	if err != nil {
		return nil, s.logError("redis_load_votes_failed", err)
	}
	votes, err := decodeVotes(raw)
	if err != nil {
		return nil, s.logError("redis_decode_votes_failed", err)
	}
	return votes, nil
}

// PutVote writes the vote into the votes hash under its vote key
func (s *Store) PutVote(ctx context.Context, vote domain.Vote) error {
	raw, err := json.Marshal(vote)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, votesKey(), vote.Key(), raw).Err(); err != nil {
		return s.logError("redis_put_vote_failed", err, "voter_id", vote.VoterID, "category", vote.Category)
	}
	return nil
}

// LoadMatch reads the match. found is false while the turn key is missing.
func (s *Store) LoadMatch(ctx context.Context) (domain.MatchState, bool, error) {
	turn, err := s.rdb.Get(ctx, turnKey()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.NewMatchState(), false, nil
	}
	if err != nil {
		return domain.MatchState{}, false, s.logError("redis_load_turn_failed", err)
	}
	board, err := s.rdb.HGetAll(ctx, boardKey()).Result()
	if err != nil {
		return domain.MatchState{}, false, s.logError("redis_load_board_failed", err)
	}
	wins, err := s.rdb.HGetAll(ctx, winsKey()).Result()
	if err != nil {
		return domain.MatchState{}, false, s.logError("redis_load_wins_failed", err)
	}
	state, err := decodeMatch(turn, board, wins)
	if err != nil {
		return domain.MatchState{}, false, s.logError("redis_decode_match_failed", err)
	}
	return state, true, nil
}

// SaveMatch writes board, marker and wins in one MULTI/EXEC
func (s *Store) SaveMatch(ctx context.Context, state domain.MatchState) error {
	cells, wins := encodeMatch(state)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, boardKey(), cells)
		pipe.Set(ctx, turnKey(), string(state.Turn), 0)
		if len(wins) > 0 {
			pipe.HSet(ctx, winsKey(), wins)
		}
		return nil
	})
	if err != nil {
		return s.logError("redis_save_match_failed", err)
	}
	return nil
}

// Close closes the client
func (s *Store) Close() error {
	return s.rdb.Close()
}

func decodeVotes(raw map[string]string) ([]domain.Vote, error) {
	votes := make([]domain.Vote, 0, len(raw))
	for key, value := range raw {
		var vote domain.Vote
		if err := json.Unmarshal([]byte(value), &vote); err != nil {
			return nil, fmt.Errorf("decode vote %q: %w", key, err)
		}
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

func encodeMatch(state domain.MatchState) (map[string]interface{}, map[string]interface{}) {
	cells := make(map[string]interface{}, domain.CellCount)
	for i, mark := range state.Board {
		cells[strconv.Itoa(i)] = mark.String()
	}
	wins := make(map[string]interface{}, len(state.Wins))
	for playerID, n := range state.Wins {
		wins[playerID] = n
	}
	return cells, wins
}

func decodeMatch(turn string, board, wins map[string]string) (domain.MatchState, error) {
	state := domain.NewMatchState()

	var err error
	if state.Turn, err = domain.ParseMark(turn); err != nil {
		return domain.MatchState{}, fmt.Errorf("turn marker: %w", err)
	}
	for key, value := range board {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= domain.CellCount {
			return domain.MatchState{}, fmt.Errorf("bad cell key %q", key)
		}
		if state.Board[idx], err = domain.ParseMark(value); err != nil {
			return domain.MatchState{}, fmt.Errorf("cell %d: %w", idx, err)
		}
	}
	for playerID, value := range wins {
		n, err := strconv.Atoi(value)
		if err != nil {
			return domain.MatchState{}, fmt.Errorf("wins for %q: %w", playerID, err)
		}
		state.Wins[playerID] = n
	}
	return state, nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "store/redisstore",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("redis store operation failed", fields...)
	return err
}

var _ store.Store = (*Store)(nil)
