package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"partyvote/internal/domain"
	"partyvote/internal/store"
)

// Notifier delivers a formatted summary to the broadcast destination
type Notifier interface {
	Notify(ctx context.Context, summary string) error
}

// SummaryFunc renders the tally sent to the Notifier after every cast
type SummaryFunc func(category domain.Category, tally []domain.TallyEntry) string

// LedgerConfig holds the collaborators of a VoteLedger
type LedgerConfig struct {
	Store        store.VoteStore
	Notifier     Notifier       // optional
	Publisher    EventPublisher // optional
	Summary      SummaryFunc    // optional, defaults to a one-line summary
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// categoryIndex keeps both directions of the vote mapping for one category
type categoryIndex struct {
	byVoter  map[string]domain.Vote // voterID -> live vote
	byTarget map[string][]string    // target -> voterIDs in cast order
}

func newCategoryIndex() *categoryIndex {
	return &categoryIndex{
		byVoter:  make(map[string]domain.Vote),
		byTarget: make(map[string][]string),
	}
}

// retract removes the voter's live vote. Emptied targets are dropped.
func (ix *categoryIndex) retract(voterID string) {
	prev, ok := ix.byVoter[voterID]
	if !ok {
		return
	}
	delete(ix.byVoter, voterID)

	voters := ix.byTarget[prev.Target]
	for i, id := range voters {
		if id == voterID {
			voters = append(voters[:i:i], voters[i+1:]...)
			break
		}
	}
	if len(voters) == 0 {
		delete(ix.byTarget, prev.Target)
		return
	}
	ix.byTarget[prev.Target] = voters
}

func (ix *categoryIndex) record(vote domain.Vote) {
	ix.retract(vote.VoterID)
	ix.byVoter[vote.VoterID] = vote
	ix.byTarget[vote.Target] = append(ix.byTarget[vote.Target], vote.VoterID)
}

func (ix *categoryIndex) tally(category domain.Category) []domain.TallyEntry {
	entries := make([]domain.TallyEntry, 0, len(ix.byTarget))
	for target, ids := range ix.byTarget {
		voters := make([]domain.Voter, 0, len(ids))
		for _, id := range ids {
			voters = append(voters, domain.Voter{ID: id, Name: ix.byVoter[id].VoterName})
		}
		entries = append(entries, domain.TallyEntry{
			Target:   target,
			Count:    len(voters),
			Voters:   voters,
			Category: category,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Target < entries[j].Target
	})
	return entries
}

func (ix *categoryIndex) check(category domain.Category) *domain.LedgerInconsistency {
	byTarget := 0
	for target, ids := range ix.byTarget {
		byTarget += len(ids)
		for _, id := range ids {
			if vote, ok := ix.byVoter[id]; !ok || vote.Target != target {
				return &domain.LedgerInconsistency{Category: category, ByTarget: byTarget, ByVoter: len(ix.byVoter)}
			}
		}
	}
	if byTarget != len(ix.byVoter) {
		return &domain.LedgerInconsistency{Category: category, ByTarget: byTarget, ByVoter: len(ix.byVoter)}
	}
	return nil
}

// VoteLedger keeps exactly one live vote per voter per category
type VoteLedger struct {
	mu      sync.RWMutex
	indexes map[domain.Category]*categoryIndex
	issued  uint64 // next notification ticket, guarded by mu

	notifyGate *turnstile

	store     store.VoteStore
	notifier  Notifier
	publisher EventPublisher
	summary   SummaryFunc
	timeout   time.Duration
	logger    *slog.Logger
}

// NewVoteLedger creates an empty ledger. Call Restore to load persisted votes.
func NewVoteLedger(cfg LedgerConfig) *VoteLedger {
	l := &VoteLedger{
		indexes:    make(map[domain.Category]*categoryIndex),
		notifyGate: newTurnstile(),
		store:      cfg.Store,
		notifier:   cfg.Notifier,
		publisher:  cfg.Publisher,
		summary:    cfg.Summary,
		timeout:    cfg.StoreTimeout,
		logger:     ResolveLogger(cfg.Logger),
	}
	if l.summary == nil {
		l.summary = oneLineSummary
	}
	for _, c := range domain.Categories() {
		l.indexes[c] = newCategoryIndex()
	}
	return l
}

// Restore replaces the in-memory ledger with the votes in the store
func (l *VoteLedger) Restore(ctx context.Context) error {
	storeCtx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	votes, err := l.store.LoadVotes(storeCtx)
	if err != nil {
		return storageError("load votes", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range domain.Categories() {
		l.indexes[c] = newCategoryIndex()
	}
	for _, vote := range votes {
		ix, ok := l.indexes[vote.Category]
		if !ok {
			l.logger.Warn("skipping stored vote with unknown category", "voterID", vote.VoterID, "category", vote.Category)
			continue
		}
		ix.record(vote)
	}

	l.logger.Info("vote ledger restored", "votes", len(votes))
	return nil
}

// CastVote records voter's vote for target, retracting any previous vote in
// the same category. The vote is persisted before it becomes visible.
func (l *VoteLedger) CastVote(ctx context.Context, voterID, voterName, target string, category domain.Category) error {
	if strings.TrimSpace(voterID) == "" {
		return domain.ErrInvalidPlayer
	}
	if !category.Valid() {
		return domain.ErrInvalidCategory
	}
	vote := domain.NewVote(voterID, voterName, target, category)
	if vote.Target == "" {
		return domain.ErrInvalidTarget
	}

	l.mu.Lock()

	storeCtx, cancel := storeContext(ctx, l.timeout)
	err := l.store.PutVote(storeCtx, *vote)
	cancel()
	if err != nil {
		l.mu.Unlock()
		return storageError("put vote", err)
	}

	ix := l.indexes[category]
	ix.record(*vote)
	tally := ix.tally(category)
	inconsistency := ix.check(category)

	if l.publisher != nil {
		l.publisher.Publish(domain.NewEvent(domain.EventVoteCast, &domain.VoteCastPayload{
			Category: category,
			Tally:    tally,
		}))
	}
	ticket := l.issued
	l.issued++

	l.mu.Unlock()

	l.logTally(category, tally, inconsistency)

	// Summaries go out in commit order without holding mu during delivery
	l.notifyGate.pass(ticket, func() {
		if l.notifier == nil {
			return
		}
		if err := l.notifier.Notify(ctx, l.summary(category, tally)); err != nil {
			l.logger.Warn("vote notification failed", "category", category, "error", err)
		}
	})
	return nil
}

// Tally returns targets by descending voter count, then target name ascending
func (l *VoteLedger) Tally(category domain.Category) []domain.TallyEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ix, ok := l.indexes[category]
	if !ok {
		return nil
	}
	return ix.tally(category)
}

// LiveVote returns the voter's current vote in a category
func (l *VoteLedger) LiveVote(voterID string, category domain.Category) (domain.Vote, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ix, ok := l.indexes[category]
	if !ok {
		return domain.Vote{}, false
	}
	vote, ok := ix.byVoter[voterID]
	return vote, ok
}

// VoteCount returns the number of voters with a live vote in a category
func (l *VoteLedger) VoteCount(category domain.Category) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ix, ok := l.indexes[category]
	if !ok {
		return 0
	}
	return len(ix.byVoter)
}

// ConsistencyCheck reports whether, in every category, the votes counted by
// target match the voters with a live vote. Diagnostic only.
func (l *VoteLedger) ConsistencyCheck() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ok := true
	for _, c := range domain.Categories() {
		if err := l.indexes[c].check(c); err != nil {
			l.logger.Error("vote ledger inconsistent", "error", err)
			ok = false
		}
	}
	return ok
}

func (l *VoteLedger) logTally(category domain.Category, tally []domain.TallyEntry, inconsistency *domain.LedgerInconsistency) {
	if l.logger.Enabled(context.Background(), slog.LevelDebug) {
		for _, entry := range tally {
			l.logger.Debug("tally", "category", category, "target", entry.Target, "votes", entry.Count)
		}
	}
	if inconsistency != nil {
		l.logger.Error("vote ledger inconsistent", "error", inconsistency)
		return
	}
	l.logger.Info("vote tally updated", "category", category, "targets", len(tally))
}

func oneLineSummary(category domain.Category, tally []domain.TallyEntry) string {
	parts := make([]string, 0, len(tally))
	for _, entry := range tally {
		parts = append(parts, fmt.Sprintf("%s=%d", entry.Target, entry.Count))
	}
	return fmt.Sprintf("%s tally: %s", category, strings.Join(parts, ", "))
}
