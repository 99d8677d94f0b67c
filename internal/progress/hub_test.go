package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func validEvent(kind Kind) Event {
	return Event{
		Kind:       kind,
		TS:         time.Now().UTC(),
		RunID:      "run-1",
		SourceName: "boothdirectory",
	}
}

func TestHubDeliversEventsInOrder(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(HubConfig{BufferSize: 16}, sink)

	hub.Emit(validEvent(KindBatchStart))
	hub.Emit(validEvent(KindBatchCrawled))
	hub.Emit(validEvent(KindSourceComplete))
	require.NoError(t, hub.Close(context.Background()))

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, KindBatchStart, events[0].Kind)
	assert.Equal(t, KindSourceComplete, events[2].Kind)
	assert.True(t, sink.closed)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(HubConfig{}, sink)

	hub.Emit(Event{Kind: KindBatchStart}) // missing ts and source
	hub.Emit(Event{Kind: "bogus", TS: time.Now(), SourceName: "x"})
	require.NoError(t, hub.Close(context.Background()))

	assert.Empty(t, sink.snapshot())
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(HubConfig{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(KindBatchStart))
	assert.Empty(t, sink.snapshot())
}

func TestNilHubIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(validEvent(KindBatchStart))
	require.NoError(t, hub.Close(context.Background()))
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	evt := validEvent(KindBatchError)
	require.NoError(t, evt.Validate())

	missingTS := evt
	missingTS.TS = time.Time{}
	require.Error(t, missingTS.Validate())

	missingSource := evt
	missingSource.SourceName = ""
	require.Error(t, missingSource.Validate())
}
