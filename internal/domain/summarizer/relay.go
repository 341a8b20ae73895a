package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/meeting-summarizer/pkg/errors"
	"github.com/yanqian/meeting-summarizer/pkg/metrics"
	"github.com/yanqian/meeting-summarizer/pkg/util"
)

// EventSink is the client side of a streamed summary.
type EventSink interface {
	// Open commits the stream framing so events can follow immediately.
	Open() error
	Send(ev Event) error
	// Heartbeat writes a no-op frame that keeps idle proxies from closing the connection.
	Heartbeat() error
	// Close ends the stream. The relay calls it exactly once.
	Close() error
}

// Outcome classifies how a relayed stream ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeEmpty     Outcome = "empty"
	OutcomeFallback  Outcome = "fallback"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Relay bridges a generator stream to an EventSink and persists the result.
type Relay struct {
	gen       Generator
	history   HistoryRepository
	clock     util.Clock
	heartbeat time.Duration
	tokens    *metrics.TokenCounter
	logger    *slog.Logger
}

// NewRelay builds a relay. A zero heartbeat disables keep-alive frames.
func NewRelay(gen Generator, history HistoryRepository, heartbeat time.Duration, tokens *metrics.TokenCounter, logger *slog.Logger) *Relay {
	return &Relay{
		gen:       gen,
		history:   history,
		clock:     util.NowUTC,
		heartbeat: heartbeat,
		tokens:    tokens,
		logger:    logger.With("component", "summarizer.relay"),
	}
}

// generationSession accumulates the fragments of one stream.
type generationSession struct {
	buf       strings.Builder
	fragments int
}

func (s *generationSession) append(fragment string) {
	s.buf.WriteString(fragment)
	s.fragments++
}

type fragment struct {
	text string
	err  error
}

// Run relays one generation. The returned error describes a failed stream;
// a client disconnect is reported as OutcomeCanceled with a nil error.
func (r *Relay) Run(ctx context.Context, req Request, sink EventSink) (Outcome, error) {
	defer sink.Close()
	if err := sink.Open(); err != nil {
		return OutcomeCanceled, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	produced := r.gen.Stream(ctx, req.Transcript, req.Prompt)
	fallback := IsFallback(produced)
	stream := &onceStream{FragmentStream: produced}
	// Closing unblocks a pending Recv and releases the upstream handle.
	defer stream.Close()
	fragments := pump(ctx, stream)

	var heartbeat <-chan time.Time
	if r.heartbeat > 0 {
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	session := &generationSession{}
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("client disconnected, discarding partial summary", "fragments", session.fragments)
			return OutcomeCanceled, nil
		case <-heartbeat:
			if err := sink.Heartbeat(); err != nil {
				r.logger.Info("heartbeat write failed, client gone", "error", err)
				return OutcomeCanceled, nil
			}
		case next := <-fragments:
			if errors.Is(next.err, io.EOF) {
				return r.complete(ctx, req, sink, session, fallback)
			}
			if next.err != nil {
				if ctx.Err() != nil {
					return OutcomeCanceled, nil
				}
				r.logger.Error("stream failed mid-generation", "error", next.err, "fragments", session.fragments)
				_ = sink.Send(ErrorEvent(StreamErrorMessage))
				return OutcomeFailed, apperrors.Wrap("llm_error", "provider stream failed", next.err)
			}
			if next.text == "" {
				continue
			}
			session.append(next.text)
			if err := sink.Send(ChunkEvent(next.text)); err != nil {
				r.logger.Info("chunk write failed, client gone", "error", err)
				return OutcomeCanceled, nil
			}
		}
	}
}

func (r *Relay) complete(ctx context.Context, req Request, sink EventSink, session *generationSession, fallback bool) (Outcome, error) {
	if ctx.Err() != nil {
		return OutcomeCanceled, nil
	}

	summary := session.buf.String()
	outcome := OutcomeCompleted
	switch {
	case fallback:
		outcome = OutcomeFallback
	case strings.TrimSpace(summary) == "":
		outcome = OutcomeEmpty
	default:
		rec, err := r.history.Append(ctx, Record{Prompt: req.Prompt, Summary: summary, CreatedAt: r.clock()})
		if err != nil {
			_ = sink.Send(ErrorEvent(StreamErrorMessage))
			return OutcomeFailed, apperrors.Wrap("history_error", "failed to store summary", err)
		}
		usage := r.tokens.Estimate(buildPrompt(req.Transcript, req.Prompt), summary)
		r.logger.Info("stream summary stored", "id", rec.ID, "fragments", session.fragments, "estimated_tokens", usage.TotalTokens)
	}

	if err := sink.Send(DoneEvent()); err != nil {
		r.logger.Info("done write failed, client gone", "error", err)
	}
	return outcome, nil
}

// pump moves fragments from the blocking stream onto a channel so the relay
// can watch for cancellation while the producer is waiting on the network.
func pump(ctx context.Context, stream FragmentStream) <-chan fragment {
	out := make(chan fragment)
	go func() {
		defer stream.Close()
		for {
			text, err := stream.Recv()
			select {
			case out <- fragment{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}
