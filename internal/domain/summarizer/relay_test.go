package summarizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/meeting-summarizer/pkg/errors"
)

var relayRequest = Request{Transcript: "Alice: kickoff at nine. Bob: fine.", Prompt: "Summarize in 5 bullets"}

func newTestRelay(stream FragmentStream, history HistoryRepository) *Relay {
	relay := NewRelay(&stubGenerator{stream: stream}, history, 0, nil, newTestLogger())
	relay.clock = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return relay
}

func TestRelayPersistsCompletedStream(t *testing.T) {
	history := &memoryHistory{}
	sink := &recordingSink{}
	upstream := newScriptedStream(nil, "- **Kickoff**", " at nine\n", "- Bob agreed")

	outcome, err := newTestRelay(upstream, history).Run(context.Background(), relayRequest, sink)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, outcome)

	require.Equal(t, []Event{
		ChunkEvent("- **Kickoff**"),
		ChunkEvent(" at nine\n"),
		ChunkEvent("- Bob agreed"),
		DoneEvent(),
	}, sink.events)

	stored := history.stored()
	require.Len(t, stored, 1)
	require.Equal(t, relayRequest.Prompt, stored[0].Prompt)
	require.Equal(t, sink.chunks(), stored[0].Summary)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), stored[0].CreatedAt)

	require.Equal(t, 1, sink.opens)
	require.Equal(t, 1, sink.closes)
	require.EqualValues(t, 1, upstream.closed.Load())
}

func TestRelaySkipsPersistenceForBlankResult(t *testing.T) {
	history := &memoryHistory{}
	sink := &recordingSink{}

	outcome, err := newTestRelay(newScriptedStream(nil, "  ", "\n"), history).Run(context.Background(), relayRequest, sink)
	require.NoError(t, err)
	require.Equal(t, OutcomeEmpty, outcome)
	require.Equal(t, DoneEvent(), sink.last())
	require.Empty(t, history.stored())
	require.Equal(t, 1, sink.closes)
}

func TestRelaySkipsPersistenceForFallback(t *testing.T) {
	history := &memoryHistory{}
	sink := &recordingSink{}

	outcome, err := newTestRelay(newFallbackStream(), history).Run(context.Background(), relayRequest, sink)
	require.NoError(t, err)
	require.Equal(t, OutcomeFallback, outcome)
	require.Equal(t, []Event{ChunkEvent(FallbackMessage), DoneEvent()}, sink.events)
	require.Empty(t, history.stored())
}

func TestRelayMidStreamErrorEmitsErrorEventWithoutRecord(t *testing.T) {
	history := &memoryHistory{}
	sink := &recordingSink{}
	upstream := newScriptedStream(errors.New("connection reset"), "- first", "- second")

	outcome, err := newTestRelay(upstream, history).Run(context.Background(), relayRequest, sink)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "llm_error"))
	require.Equal(t, OutcomeFailed, outcome)

	require.Equal(t, []Event{
		ChunkEvent("- first"),
		ChunkEvent("- second"),
		ErrorEvent(StreamErrorMessage),
	}, sink.events)
	require.Empty(t, history.stored())
	require.Equal(t, 1, sink.closes)
	require.EqualValues(t, 1, upstream.closed.Load())
}

func TestRelayClientDisconnectStopsWithoutRecord(t *testing.T) {
	history := &memoryHistory{}
	upstream := newBlockingStream("- partial")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{onSend: func(ev Event) {
		if ev.Chunk != "" {
			cancel()
		}
	}}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := newTestRelay(upstream, history).Run(ctx, relayRequest, sink)
		done <- result{outcome: outcome, err: err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.Equal(t, OutcomeCanceled, res.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after client disconnect")
	}

	require.Equal(t, []Event{ChunkEvent("- partial")}, sink.events)
	require.Empty(t, history.stored())
	require.Equal(t, 1, sink.closes)
	require.Eventually(t, upstream.isClosed, time.Second, 10*time.Millisecond)
}

func TestRelayWriteFailureCountsAsDisconnect(t *testing.T) {
	history := &memoryHistory{}
	sink := &recordingSink{sendErr: errors.New("broken pipe")}

	outcome, err := newTestRelay(newScriptedStream(nil, "- one", "- two"), history).Run(context.Background(), relayRequest, sink)
	require.NoError(t, err)
	require.Equal(t, OutcomeCanceled, outcome)
	require.Empty(t, history.stored())
	require.Equal(t, 1, sink.closes)
}

func TestRelayPersistenceFailureEmitsErrorEvent(t *testing.T) {
	history := &memoryHistory{appendErr: errors.New("store unreachable")}
	sink := &recordingSink{}

	outcome, err := newTestRelay(newScriptedStream(nil, "- one"), history).Run(context.Background(), relayRequest, sink)
	require.True(t, apperrors.IsCode(err, "history_error"))
	require.Equal(t, OutcomeFailed, outcome)
	require.Equal(t, []Event{ChunkEvent("- one"), ErrorEvent(StreamErrorMessage)}, sink.events)
	require.Equal(t, 1, sink.closes)
}

func TestRelaySendsHeartbeatsWhileWaiting(t *testing.T) {
	upstream := newBlockingStream()
	relay := NewRelay(&stubGenerator{stream: upstream}, &memoryHistory{}, 5*time.Millisecond, nil, newTestLogger())
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = relay.Run(ctx, relayRequest, sink)
	}()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.heartbeats >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	require.Equal(t, 1, sink.closes)
}
