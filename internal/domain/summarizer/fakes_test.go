package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubChatClient struct {
	completion    Completion
	completionErr error

	stream    FragmentStream
	streamErr error

	mu          sync.Mutex
	lastRequest CompletionRequest
	calls       int
}

func (s *stubChatClient) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	s.record(req)
	if s.completionErr != nil {
		return Completion{}, s.completionErr
	}
	return s.completion, nil
}

func (s *stubChatClient) CompleteStream(_ context.Context, req CompletionRequest) (FragmentStream, error) {
	s.record(req)
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return s.stream, nil
}

func (s *stubChatClient) record(req CompletionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRequest = req
	s.calls++
}

// scriptedStream yields fragments then err (io.EOF when nil).
type scriptedStream struct {
	fragments []string
	err       error

	idx    int
	closed atomic.Int32
}

func newScriptedStream(err error, fragments ...string) *scriptedStream {
	return &scriptedStream{fragments: fragments, err: err}
}

func (s *scriptedStream) Recv() (string, error) {
	if s.idx >= len(s.fragments) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	frag := s.fragments[s.idx]
	s.idx++
	return frag, nil
}

func (s *scriptedStream) Close() error {
	s.closed.Add(1)
	return nil
}

// blockingStream yields its fragments then blocks until closed.
type blockingStream struct {
	fragments []string
	idx       int
	release   chan struct{}
	once      sync.Once
}

func newBlockingStream(fragments ...string) *blockingStream {
	return &blockingStream{fragments: fragments, release: make(chan struct{})}
}

func (s *blockingStream) Recv() (string, error) {
	if s.idx < len(s.fragments) {
		frag := s.fragments[s.idx]
		s.idx++
		return frag, nil
	}
	<-s.release
	return "", errors.New("stream closed")
}

func (s *blockingStream) Close() error {
	s.once.Do(func() { close(s.release) })
	return nil
}

func (s *blockingStream) isClosed() bool {
	select {
	case <-s.release:
		return true
	default:
		return false
	}
}

type stubGenerator struct {
	stream     FragmentStream
	generation Generation
}

func (g *stubGenerator) Generate(context.Context, string, string) Generation {
	return g.generation
}

func (g *stubGenerator) Stream(context.Context, string, string) FragmentStream {
	return g.stream
}

type recordingSink struct {
	mu         sync.Mutex
	events     []Event
	opens      int
	closes     int
	heartbeats int
	onSend     func(Event)
	sendErr    error
}

func (s *recordingSink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return nil
}

func (s *recordingSink) Send(ev Event) error {
	s.mu.Lock()
	if s.sendErr != nil {
		s.mu.Unlock()
		return s.sendErr
	}
	s.events = append(s.events, ev)
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return nil
}

func (s *recordingSink) Heartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingSink) chunks() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out string
	for _, ev := range s.events {
		out += ev.Chunk
	}
	return out
}

func (s *recordingSink) last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return Event{}
	}
	return s.events[len(s.events)-1]
}

type memoryHistory struct {
	mu        sync.Mutex
	records   []Record
	appendErr error
}

func (h *memoryHistory) Append(_ context.Context, rec Record) (Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return Record{}, h.appendErr
	}
	rec.ID = strconv.Itoa(len(h.records) + 1)
	h.records = append(h.records, rec)
	return rec, nil
}

func (h *memoryHistory) Recent(_ context.Context, limit int) ([]Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, 0, limit)
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}

func (h *memoryHistory) stored() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Record(nil), h.records...)
}
