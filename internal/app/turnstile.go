package app

import "sync"

// turnstile lets callers through one at a time in ticket order.
// Tickets are issued under the caller's own lock, starting at zero.
type turnstile struct {
	mu   sync.Mutex
	cond *sync.Cond
	next uint64
}

func newTurnstile() *turnstile {
	t := &turnstile{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// pass blocks until every earlier ticket has passed, then runs fn
func (t *turnstile) pass(ticket uint64, fn func()) {
	t.mu.Lock()
	for t.next != ticket {
		t.cond.Wait()
	}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.next++
		t.cond.Broadcast()
		t.mu.Unlock()
	}()
	fn()
}
