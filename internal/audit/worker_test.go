package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "profreg/pkg/domain"
	"profreg/pkg/requestcontext"
)

type recordingSink struct {
	mu       sync.Mutex
	events   []Event
	attempts int
	err      error
}

func (s *recordingSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() {}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *recordingSink) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherPersistsAndRelays(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{}
	relay := make(chan Event, 4)
	publisher := NewPublisher(store, WithRelay(relay))
	worker := NewWorker(sink, relay, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	entityID := id.NewEntityID()
	require.NoError(t, publisher.Emit(context.Background(),
		Event{Action: ActionPublished, EntityID: entityID, Timestamp: time.Now()}))
	require.NoError(t, publisher.Emit(context.Background(),
		Event{Action: ActionWithdrawn, EntityID: entityID, Timestamp: time.Now()}))

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	stored, err := store.ListByEntity(context.Background(), entityID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerSurvivesSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unavailable")}
	relay := make(chan Event, 2)
	worker := NewWorker(sink, relay, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	relay <- Event{Action: ActionPublished, EntityID: id.NewEntityID(), Timestamp: time.Now()}
	relay <- Event{Action: ActionWithdrawn, EntityID: id.NewEntityID(), Timestamp: time.Now()}

	// Both events pass through despite the failing sink.
	require.Eventually(t, func() bool { return len(relay) == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerCircuitShieldsFailingSink(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unavailable")}
	worker := NewWorker(sink, nil, testLogger())
	ctx := context.Background()
	event := Event{Action: ActionPublished, EntityID: id.NewEntityID(), Timestamp: time.Now()}

	// Five consecutive failures open the circuit.
	for i := 0; i < 5; i++ {
		worker.relay(ctx, event)
	}
	require.Equal(t, 5, sink.attemptCount())

	// With the circuit open, events are dropped without touching the sink.
	for i := 0; i < 9; i++ {
		worker.relay(ctx, event)
	}
	assert.Equal(t, 5, sink.attemptCount())

	// Every tenth dropped event probes the sink.
	worker.relay(ctx, event)
	assert.Equal(t, 6, sink.attemptCount())

	// Once the sink recovers, successful probes close the circuit and
	// delivery resumes for every event.
	sink.setErr(nil)
	for i := 0; i < 20; i++ {
		worker.relay(ctx, event)
	}
	delivered := sink.count()
	worker.relay(ctx, event)
	assert.Equal(t, delivered+1, sink.count())
}

func TestPublisherFullRelayDoesNotBlock(t *testing.T) {
	store := NewInMemoryStore()
	relay := make(chan Event) // no consumer
	publisher := NewPublisher(store, WithRelay(relay))

	entityID := id.NewEntityID()
	require.NoError(t, publisher.Emit(context.Background(),
		Event{Action: ActionDraftCreated, EntityID: entityID, Timestamp: time.Now()}))

	stored, err := store.ListByEntity(context.Background(), entityID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPublisherDefaultsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)

	entityID := id.NewEntityID()
	require.NoError(t, publisher.Emit(ctx, Event{
		Action:   ActionDraftCreated,
		EntityID: entityID,
	}))

	stored, err := publisher.List(context.Background(), entityID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Timestamp.Equal(fixed))
}
