package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
)

var errStreamClosed = errors.New("event stream closed")

// sseSink writes summarizer events as server-sent events.
type sseSink struct {
	mu     sync.Mutex
	w      gin.ResponseWriter
	closed bool
	once   sync.Once
}

func newSSESink(w gin.ResponseWriter) *sseSink {
	return &sseSink{w: w}
}

func (s *sseSink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	headers := s.w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.w.WriteHeaderNow()
	s.w.Flush()
	return nil
}

func (s *sseSink) Send(ev summarizer.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return s.write(frame)
}

func (s *sseSink) Heartbeat() error {
	return s.write([]byte(": keep-alive\n\n"))
}

func (s *sseSink) write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

// Close marks the stream finished; the response completes when the handler returns.
func (s *sseSink) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return nil
}
