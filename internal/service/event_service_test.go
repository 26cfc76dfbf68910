package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/dto"
)

func receiveEvent(t *testing.T, ch <-chan dto.EventResponse) dto.EventResponse {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return dto.EventResponse{}
}

func TestEventServiceLocalDelivery(t *testing.T) {
	svc := NewEventService(nil, "", nil, testLogger())

	events, cancel := svc.Subscribe()
	defer cancel()

	published := svc.Publish(context.Background(), "student.created", EntityStudent, 7, map[string]interface{}{"nom": "Dupont"})
	require.NotEmpty(t, published.ID)

	received := receiveEvent(t, events)
	require.Equal(t, published.ID, received.ID)
	require.Equal(t, "student.created", received.Type)
	require.Equal(t, uint(7), received.EntityID)
}

func TestEventServiceUnsubscribeClosesChannel(t *testing.T) {
	svc := NewEventService(nil, "", nil, testLogger())

	events, cancel := svc.Subscribe()
	cancel()
	cancel()

	_, ok := <-events
	require.False(t, ok)

	svc.Publish(context.Background(), "student.deleted", EntityStudent, 1, nil)
}

func TestEventServiceDropsForSlowSubscribers(t *testing.T) {
	svc := NewEventService(nil, "", nil, testLogger())

	events, cancel := svc.Subscribe()
	defer cancel()

	for i := 0; i < eventBufferSize+10; i++ {
		svc.Publish(context.Background(), "absence.updated", EntityAbsence, uint(i), nil)
	}
	require.Len(t, events, eventBufferSize)
}

func TestEventServiceRedisFanOut(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewEventService(clientA, "scolarite", nil, testLogger())
	nodeB := NewEventService(clientB, "scolarite", nil, testLogger())
	require.NoError(t, nodeA.Start(ctx))
	require.NoError(t, nodeB.Start(ctx))

	eventsA, cancelA := nodeA.Subscribe()
	defer cancelA()
	eventsB, cancelB := nodeB.Subscribe()
	defer cancelB()

	published := nodeA.Publish(ctx, "absence.created", EntityAbsence, 3, nil)

	require.Equal(t, published.ID, receiveEvent(t, eventsA).ID)
	require.Equal(t, published.ID, receiveEvent(t, eventsB).ID)

	// nodeA must not receive its own event a second time through redis.
	select {
	case duplicate := <-eventsA:
		t.Fatalf("unexpected duplicate event %s", duplicate.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEventServiceIgnoresMalformedEnvelope(t *testing.T) {
	svc := NewEventService(nil, "", nil, testLogger()).(*eventService)

	events, cancel := svc.Subscribe()
	defer cancel()

	svc.handleEnvelope([]byte("{not json"))
	svc.handleEnvelope([]byte(`{"source":"other","event":{"type":""}}`))
	require.Len(t, events, 0)

	svc.handleEnvelope([]byte(`{"source":"other","event":{"id":"e1","type":"student.updated","entityType":"student","entityId":2}}`))
	require.Equal(t, "e1", receiveEvent(t, events).ID)
}

func TestEventServiceDeliversRemoteEventOncePerID(t *testing.T) {
	svc := NewEventService(nil, "", nil, testLogger()).(*eventService)

	events, cancel := svc.Subscribe()
	defer cancel()

	// the same envelope arrives through redis and through nats
	envelope := []byte(`{"source":"node-a","event":{"id":"evt-1","type":"absence.created","entityType":"absence","entityId":4}}`)
	svc.handleEnvelope(envelope)
	svc.handleEnvelope(envelope)

	require.Equal(t, "evt-1", receiveEvent(t, events).ID)
	require.Len(t, events, 0)

	svc.handleEnvelope([]byte(`{"source":"node-a","event":{"id":"evt-2","type":"absence.updated","entityType":"absence","entityId":4}}`))
	require.Equal(t, "evt-2", receiveEvent(t, events).ID)
}

func TestRecentIDsEvictsOldest(t *testing.T) {
	seen := newRecentIDs(2)
	require.True(t, seen.add("a"))
	require.True(t, seen.add("b"))
	require.False(t, seen.add("a"))

	require.True(t, seen.add("c"))
	require.True(t, seen.add("a"), "a was evicted by c")
	require.False(t, seen.add("c"))
}
