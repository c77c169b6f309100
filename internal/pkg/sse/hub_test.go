package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	alice, cleanupAlice := hub.Subscribe("alice")
	defer cleanupAlice()
	bob, cleanupBob := hub.Subscribe("bob")
	defer cleanupBob()

	hub.Publish("alice", Event{UserID: "alice", Event: "notification", Data: "hi"})

	select {
	case ev := <-alice:
		assert.Equal(t, "notification", ev.Event)
		assert.Equal(t, "hi", ev.Data)
	default:
		t.Fatal("alice should have received the event")
	}

	select {
	case <-bob:
		t.Fatal("bob should not receive alice's event")
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("alice")
	defer cleanup()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish("alice", Event{Event: "notification", Data: i})
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestCleanupIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("alice")
	require.Equal(t, 1, hub.SubscriberCount("alice"))

	cleanup()
	cleanup()

	assert.Equal(t, 0, hub.SubscriberCount("alice"))
	_, open := <-ch
	assert.False(t, open)
}

func TestCloseEndsStreams(t *testing.T) {
	hub := NewHub()
	ch, cleanup := hub.Subscribe("alice")

	hub.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.NotPanics(t, cleanup)
	assert.Equal(t, 0, hub.SubscriberCount("alice"))

	late, _ := hub.Subscribe("bob")
	_, open = <-late
	assert.False(t, open, "subscriptions after Close are already closed")
}
