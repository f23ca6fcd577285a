package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"partyvote/internal/domain"
	"partyvote/internal/store"
)

// turnRowID is the key of the singleton turn marker row
const turnRowID = 1

// Store persists state in PostgreSQL through gorm
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects, pings and migrates the schema
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&voteModel{}, &boardCellModel{}, &turnModel{}, &winModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}

	return New(db, logger), nil
}

// New wraps an existing gorm handle. The schema must already exist.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// LoadVotes returns every stored vote ordered by cast time
func (s *Store) LoadVotes(ctx context.Context) ([]domain.Vote, error) {
	var rows []voteModel
	if err := s.db.WithContext(ctx).Order("cast_at ASC").Find(&rows).Error; err != nil {
		return nil, s.logError("pg_load_votes_failed", err)
	}
	votes := make([]domain.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, row.toEntity())
	}
	return votes, nil
}

// PutVote upserts the vote on (voter_id, category)
func (s *Store) PutVote(ctx context.Context, vote domain.Vote) error {
	row := voteModelFromEntity(vote)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"voter_name", "target", "cast_at"}),
	}).Create(&row).Error
	if err != nil {
		return s.logError("pg_put_vote_failed", err,
			"voter_id", vote.VoterID,
			"category", vote.Category,
		)
	}
	return nil
}

// LoadMatch reads the match. found is false while the turn marker row is missing.
func (s *Store) LoadMatch(ctx context.Context) (domain.MatchState, bool, error) {
	state := domain.NewMatchState()
	db := s.db.WithContext(ctx)

	var turn turnModel
	err := db.Where("id = ?", turnRowID).First(&turn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return state, false, nil
	}
	if err != nil {
		return domain.MatchState{}, false, s.logError("pg_load_turn_failed", err)
	}
	if state.Turn, err = domain.ParseMark(turn.Mark); err != nil {
		return domain.MatchState{}, false, s.logError("pg_decode_turn_failed", err)
	}

	var cells []boardCellModel
	if err := db.Order("cell_index ASC").Find(&cells).Error; err != nil {
		return domain.MatchState{}, false, s.logError("pg_load_board_failed", err)
	}
	if state.Board, err = boardFromCells(cells); err != nil {
		return domain.MatchState{}, false, s.logError("pg_decode_board_failed", err)
	}

	var wins []winModel
	if err := db.Find(&wins).Error; err != nil {
		return domain.MatchState{}, false, s.logError("pg_load_wins_failed", err)
	}
	for _, w := range wins {
		state.Wins[w.PlayerID] = w.Wins
	}
	return state, true, nil
}

// SaveMatch upserts cells, marker and win counts in one transaction
func (s *Store) SaveMatch(ctx context.Context, state domain.MatchState) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cells := cellsFromBoard(state.Board)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cell_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"mark"}),
		}).Create(&cells).Error; err != nil {
			return err
		}

		turn := turnModel{ID: turnRowID, Mark: string(state.Turn), UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"mark", "updated_at"}),
		}).Create(&turn).Error; err != nil {
			return err
		}

		if len(state.Wins) == 0 {
			return nil
		}
		wins := make([]winModel, 0, len(state.Wins))
		for playerID, n := range state.Wins {
			wins = append(wins, winModel{PlayerID: playerID, Wins: n})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"wins"}),
		}).Create(&wins).Error
	})
	if err != nil {
		return s.logError("pg_save_match_failed", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+10)
	fields = append(fields,
		"event", event,
		"module", "store/pgstore",
		"layer", "adapter",
		"error", err.Error(),
	)
	if code := sqlState(err); code != "" {
		fields = append(fields, "sqlstate", code)
	}
	fields = append(fields, attrs...)
	s.logger.Error("postgres store operation failed", fields...)
	return err
}

// sqlState extracts the PostgreSQL error code, if err carries one
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ store.Store = (*Store)(nil)
