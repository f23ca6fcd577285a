package app

import (
	"context"
	"sync"
	"sync/atomic"

	"partyvote/internal/domain"
	"partyvote/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.GameEvent
}

func (p *recordingPublisher) Publish(event *domain.GameEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []string
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, summary string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return n.err
}

// heldNotifier blocks its first Notify until release is closed.
type heldNotifier struct {
	recordingNotifier
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newHeldNotifier() *heldNotifier {
	return &heldNotifier{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (n *heldNotifier) Notify(ctx context.Context, summary string) error {
	if n.calls.Add(1) == 1 {
		close(n.entered)
		<-n.release
	}
	return n.recordingNotifier.Notify(ctx, summary)
}

func (n *heldNotifier) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.summaries...)
}

// hangingStore writes never complete while hang is set; they return
// only when the caller's context ends.
type hangingStore struct {
	*memory.Store
	hang atomic.Bool
}

func (s *hangingStore) PutVote(ctx context.Context, vote domain.Vote) error {
	if s.hang.Load() {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.Store.PutVote(ctx, vote)
}

func (s *hangingStore) SaveMatch(ctx context.Context, state domain.MatchState) error {
	if s.hang.Load() {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.Store.SaveMatch(ctx, state)
}

type fakeClient struct {
	mu       sync.Mutex
	playerID string
	received []interface{}
	closed   bool
}

func (c *fakeClient) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, message)
	return nil
}

func (c *fakeClient) GetPlayerID() string { return c.playerID }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
