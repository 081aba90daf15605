package relay_test

import (
	"testing"
	"time"

	"github.com/germanamz/aichatbot/pkg/relay"
	"github.com/stretchr/testify/assert"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := relay.NewEventBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	bus.Publish(relay.Event{Kind: relay.EventQuery, RequestID: "r1", Player: "Steve"})

	select {
	case got := <-sub.C:
		assert.Equal(t, relay.EventQuery, got.Kind)
		assert.Equal(t, "r1", got.RequestID)
		assert.Equal(t, "Steve", got.Player)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_NonBlockingDrop(t *testing.T) {
	bus := relay.NewEventBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	bus.Publish(relay.Event{Kind: relay.EventQuery})
	bus.Publish(relay.Event{Kind: relay.EventReply})

	got := <-sub.C
	assert.Equal(t, relay.EventQuery, got.Kind)

	select {
	case <-sub.C:
		t.Fatal("expected second event to be dropped")
	default:
	}
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := relay.NewEventBus()
	sub := bus.Subscribe(1)

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestEventBus_NilPublish(t *testing.T) {
	var bus *relay.EventBus

	assert.NotPanics(t, func() { bus.Publish(relay.Event{Kind: relay.EventReply}) })
}
