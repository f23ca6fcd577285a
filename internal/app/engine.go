package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"partyvote/internal/domain"
	"partyvote/internal/store"
)

// EngineConfig holds the collaborators of a MatchEngine
type EngineConfig struct {
	Store        store.MatchStore
	Publisher    EventPublisher // optional
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// MatchEngine serializes moves against the single shared board
type MatchEngine struct {
	mu    sync.RWMutex
	state domain.MatchState

	store     store.MatchStore
	publisher EventPublisher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewMatchEngine creates an engine on a fresh board. Call Restore to load
// persisted state.
func NewMatchEngine(cfg EngineConfig) *MatchEngine {
	return &MatchEngine{
		state:     domain.NewMatchState(),
		store:     cfg.Store,
		publisher: cfg.Publisher,
		timeout:   cfg.StoreTimeout,
		logger:    ResolveLogger(cfg.Logger),
	}
}

// Restore loads the match from the store. A store that was never
// initialized is seeded with an open board and X to move.
func (e *MatchEngine) Restore(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	storeCtx, cancel := storeContext(ctx, e.timeout)
	defer cancel()

	state, found, err := e.store.LoadMatch(storeCtx)
	if err != nil {
		return storageError("load match", err)
	}
	if state.Wins == nil {
		state.Wins = make(map[string]int)
	}
	switch {
	case !found:
		state = domain.NewMatchState()
		if err := e.store.SaveMatch(storeCtx, state); err != nil {
			return storageError("initialize match", err)
		}
		e.logger.Info("match store initialized", "turn", state.Turn)
	case !state.Turn.IsPlayable():
		// Stores reject unparsable markers on load; only an unset one gets here.
		e.logger.Warn("stored turn marker unset, writing default", "turn", state.Turn)
		state.Turn = domain.DefaultTurn
		if err := e.store.SaveMatch(storeCtx, state); err != nil {
			return storageError("repair turn marker", err)
		}
	}

	e.state = state
	e.logger.Info("match restored", "turn", state.Turn, "players", len(state.Wins))
	return nil
}

// ClaimTurn returns the mark that moves now and commits the turn to the
// other mark. It is never a pure read: use Board to peek.
func (e *MatchEngine) ClaimTurn(ctx context.Context) (domain.Mark, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.Clone()
	mark := next.ClaimTurn()
	if err := e.commit(ctx, next); err != nil {
		return domain.MarkOpen, err
	}
	return mark, nil
}

// ApplyMove places the current mark at row, col on behalf of playerID.
// Invalid coordinates and occupied cells are rejected before the turn is
// claimed, so a rejected move changes nothing.
func (e *MatchEngine) ApplyMove(ctx context.Context, playerID string, row, col int) (domain.MoveResult, error) {
	if strings.TrimSpace(playerID) == "" {
		return domain.MoveResult{}, domain.ErrInvalidPlayer
	}
	index, err := domain.CellIndex(row, col)
	if err != nil {
		return domain.MoveResult{}, err
	}

	e.mu.Lock()

	if !e.state.Board.IsOpen(index) {
		e.mu.Unlock()
		return domain.MoveResult{}, domain.ErrCellOccupied
	}

	next := e.state.Clone()
	mark := next.ClaimTurn()
	next.Board[index] = mark

	result := domain.MoveResult{
		Outcome:  next.Board.Evaluate(),
		PlayerID: playerID,
		Mark:     mark,
		Row:      row,
		Col:      col,
		Board:    next.Board,
	}
	switch result.Outcome {
	case domain.OutcomeWon:
		next.Wins[playerID]++
		result.Winner = playerID
		next.ResetBoard()
	case domain.OutcomeTie:
		next.ResetBoard()
	}
	result.NextTurn = next.Turn

	if err := e.commit(ctx, next); err != nil {
		e.mu.Unlock()
		return domain.MoveResult{}, err
	}
	// Published under the lock so events leave in commit order
	e.publish(result)
	e.mu.Unlock()

	e.logger.Info("move applied",
		"playerID", playerID,
		"mark", mark,
		"row", row,
		"col", col,
		"outcome", result.Outcome,
	)
	return result, nil
}

// ResetBoard opens every cell. The turn marker and win counts are kept.
func (e *MatchEngine) ResetBoard(ctx context.Context) error {
	e.mu.Lock()

	next := e.state.Clone()
	next.ResetBoard()
	if err := e.commit(ctx, next); err != nil {
		e.mu.Unlock()
		return err
	}
	turn := next.Turn
	if e.publisher != nil {
		e.publisher.Publish(domain.NewEvent(domain.EventBoardReset, &domain.BoardResetPayload{NextTurn: turn}))
	}
	e.mu.Unlock()

	e.logger.Info("board reset", "nextTurn", turn)
	return nil
}

// Board returns a snapshot of the board and the mark that moves next
func (e *MatchEngine) Board() (domain.Board, domain.Mark) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Board, e.state.Turn
}

// WinCounts returns the scoreboard by descending wins
func (e *MatchEngine) WinCounts() []domain.WinCount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.SortedWins()
}

// commit persists next and then makes it the live state. Caller holds mu.
func (e *MatchEngine) commit(ctx context.Context, next domain.MatchState) error {
	storeCtx, cancel := storeContext(ctx, e.timeout)
	defer cancel()

	if err := e.store.SaveMatch(storeCtx, next); err != nil {
		return storageError("save match", err)
	}
	e.state = next
	return nil
}

// publish queues the outcome event. Caller holds mu; Publish must not block.
func (e *MatchEngine) publish(result domain.MoveResult) {
	if e.publisher == nil {
		return
	}
	eventType := domain.EventMoveApplied
	switch result.Outcome {
	case domain.OutcomeWon:
		eventType = domain.EventMatchWon
	case domain.OutcomeTie:
		eventType = domain.EventMatchTied
	}
	e.publisher.Publish(domain.NewEvent(eventType, &domain.MovePayload{Result: result}))
}
