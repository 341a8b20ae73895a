package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yanqian/meeting-summarizer/pkg/metrics"
)

const promptTemplate = `Based on the following transcript, please perform this task: "%s".

Transcript:
---
%s
---

IMPORTANT: Format the entire response strictly in Markdown. Use bullet points (hyphens or asterisks), bold text (**bold**) and newlines where appropriate so the output is clean and well structured.`

// CompletionRequest is the provider-neutral generation input.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float32
}

// Completion is a finished single-shot generation.
type Completion struct {
	Text  string
	Usage metrics.TokenUsage
}

// FragmentStream is a finite, non-restartable sequence of text fragments.
// Recv returns io.EOF once the sequence is exhausted; any other error is a
// terminal failure.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// ChatClient is the upstream generative-text provider.
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	CompleteStream(ctx context.Context, req CompletionRequest) (FragmentStream, error)
}

// Generation is the outcome of a single-shot call.
type Generation struct {
	Text     string
	Fallback bool
	Usage    metrics.TokenUsage
}

// Generator produces summaries and never fails: provider problems turn into
// FallbackMessage.
type Generator interface {
	Generate(ctx context.Context, transcript, instruction string) Generation
	Stream(ctx context.Context, transcript, instruction string) FragmentStream
}

type generator struct {
	cfg    Config
	client ChatClient
	tokens *metrics.TokenCounter
	tracer trace.Tracer
	logger *slog.Logger
}

// NewGenerator wraps client with the summary prompt and fallback policy.
func NewGenerator(cfg Config, client ChatClient, tokens *metrics.TokenCounter, logger *slog.Logger) Generator {
	return &generator{
		cfg:    cfg,
		client: client,
		tokens: tokens,
		tracer: otel.Tracer("github.com/yanqian/meeting-summarizer/summarizer"),
		logger: logger.With("component", "summarizer.generator"),
	}
}

func (g *generator) Generate(ctx context.Context, transcript, instruction string) Generation {
	ctx, span := g.tracer.Start(ctx, "summarizer.generate", trace.WithAttributes(attribute.String("llm.model", g.cfg.Model)))
	defer span.End()

	prompt := buildPrompt(transcript, instruction)
	resp, err := g.client.Complete(ctx, g.completionRequest(prompt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		g.logger.Error("completion failed, using fallback", "error", err)
		return Generation{Text: FallbackMessage, Fallback: true}
	}
	if strings.TrimSpace(resp.Text) == "" {
		g.logger.Warn("provider returned empty completion, using fallback")
		return Generation{Text: FallbackMessage, Fallback: true}
	}

	usage := resp.Usage
	if usage.IsZero() {
		usage = g.tokens.Estimate(prompt, resp.Text)
	}
	span.SetAttributes(attribute.Int("llm.total_tokens", usage.TotalTokens))
	return Generation{Text: resp.Text, Usage: usage}
}

// Stream opens the upstream stream and waits for its first fragment. Any
// failure up to that point yields a one-shot fallback stream, so callers
// handle both cases with the same Recv loop.
func (g *generator) Stream(ctx context.Context, transcript, instruction string) FragmentStream {
	ctx, span := g.tracer.Start(ctx, "summarizer.stream.open", trace.WithAttributes(attribute.String("llm.model", g.cfg.Model)))
	defer span.End()

	upstream, err := g.client.CompleteStream(ctx, g.completionRequest(buildPrompt(transcript, instruction)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream open failed")
		g.logger.Error("stream open failed, using fallback", "error", err)
		return newFallbackStream()
	}

	first, err := nextFragment(upstream)
	if err != nil {
		_ = upstream.Close()
		if errors.Is(err, io.EOF) {
			g.logger.Warn("provider stream ended before any content, using fallback")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stream failed before first fragment")
			g.logger.Error("stream failed before first fragment, using fallback", "error", err)
		}
		return newFallbackStream()
	}
	return &primedStream{first: first, upstream: upstream}
}

func (g *generator) completionRequest(prompt string) CompletionRequest {
	return CompletionRequest{
		Model:       g.cfg.Model,
		Prompt:      prompt,
		Temperature: g.cfg.Temperature,
	}
}

func buildPrompt(transcript, instruction string) string {
	return fmt.Sprintf(promptTemplate, instruction, transcript)
}

// nextFragment skips empty deltas (role-only or keep-alive frames).
func nextFragment(s FragmentStream) (string, error) {
	for {
		text, err := s.Recv()
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
}

type primedStream struct {
	first    string
	sent     bool
	upstream FragmentStream
}

func (s *primedStream) Recv() (string, error) {
	if !s.sent {
		s.sent = true
		return s.first, nil
	}
	return nextFragment(s.upstream)
}

func (s *primedStream) Close() error {
	return s.upstream.Close()
}

type fallbackStream struct {
	done bool
}

func newFallbackStream() *fallbackStream {
	return &fallbackStream{}
}

func (s *fallbackStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return FallbackMessage, nil
}

func (s *fallbackStream) Close() error { return nil }

// IsFallback reports whether stream is the substitute produced after a
// provider failure.
func IsFallback(stream FragmentStream) bool {
	_, ok := stream.(*fallbackStream)
	return ok
}

// onceStream makes Close idempotent and safe to call concurrently with Recv.
type onceStream struct {
	FragmentStream
	once sync.Once
	err  error
}

func (s *onceStream) Close() error {
	s.once.Do(func() { s.err = s.FragmentStream.Close() })
	return s.err
}
