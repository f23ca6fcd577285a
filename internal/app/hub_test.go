package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partyvote/internal/domain"
)

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	a := &fakeClient{playerID: "a"}
	b := &fakeClient{playerID: "b"}
	hub.RegisterClient("a", a)
	hub.RegisterClient("b", b)
	require.Equal(t, 2, hub.ClientCount())

	require.NoError(t, hub.Notify(context.Background(), "KILL tally: BOB=1"))

	require.Eventually(t, func() bool {
		return a.count() == 1 && b.count() == 1
	}, time.Second, 10*time.Millisecond)

	event, ok := a.received[0].(*domain.GameEvent)
	require.True(t, ok)
	assert.Equal(t, domain.EventAnnouncement, event.Type)
	assert.Equal(t, "KILL tally: BOB=1", event.Payload.(*domain.AnnouncementPayload).Text)
}

func TestHubPlayerEventGoesToOneClient(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	a := &fakeClient{playerID: "a"}
	b := &fakeClient{playerID: "b"}
	hub.RegisterClient("a", a)
	hub.RegisterClient("b", b)

	hub.Publish(domain.NewPlayerEvent(domain.EventAnnouncement, "b", &domain.AnnouncementPayload{Text: "hi"}))
	hub.Publish(domain.NewEvent(domain.EventBoardReset, &domain.BoardResetPayload{NextTurn: domain.MarkX}))

	require.Eventually(t, func() bool {
		return b.count() == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, a.count())
}

func TestHubReplacesAndUnregistersClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	first := &fakeClient{playerID: "a"}
	second := &fakeClient{playerID: "a"}
	hub.RegisterClient("a", first)
	hub.RegisterClient("a", second)

	assert.True(t, first.isClosed())
	assert.Equal(t, 1, hub.ClientCount())

	hub.UnregisterClient("a", first)
	assert.Equal(t, 1, hub.ClientCount())

	hub.UnregisterClient("a", second)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubCloseClosesClients(t *testing.T) {
	hub := NewHub(nil)
	a := &fakeClient{playerID: "a"}
	hub.RegisterClient("a", a)

	hub.Close()
	hub.Close()

	assert.True(t, a.isClosed())
	assert.Equal(t, 0, hub.ClientCount())

	// publishing after close is a no-op
	hub.Publish(domain.NewEvent(domain.EventBoardReset, nil))
}
