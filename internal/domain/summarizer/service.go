package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/yanqian/meeting-summarizer/pkg/errors"
	"github.com/yanqian/meeting-summarizer/pkg/metrics"
	"github.com/yanqian/meeting-summarizer/pkg/util"
	"github.com/yanqian/meeting-summarizer/pkg/validation"
)

const defaultHistoryLimit = 10

var requestMessages = validation.Messages{
	"transcript.required": "Transcript cannot be empty.",
	"transcript.min":      fmt.Sprintf("Transcript must be at least %d characters long.", minTranscriptLen),
	"prompt.required":     "Prompt cannot be empty.",
	"prompt.min":          fmt.Sprintf("Prompt must be at least %d characters long.", minPromptLen),
}

// Service exposes summarization capabilities.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
	// StreamSummary validates req and relays the generation to sink. Only
	// failures detected before the stream opens are returned; later ones are
	// reported to the client in-band.
	StreamSummary(ctx context.Context, req Request, sink EventSink) error
	History(ctx context.Context) ([]Record, error)
}

type service struct {
	cfg       Config
	gen       Generator
	relay     *Relay
	history   HistoryRepository
	validator *validation.Validator
	clock     util.Clock
	logger    *slog.Logger
}

// NewService is a wire provider for the summarizer domain.
func NewService(cfg Config, client ChatClient, history HistoryRepository, logger *slog.Logger) Service {
	var tokens *metrics.TokenCounter
	if cfg.EstimateTokens {
		tokens = metrics.NewTokenCounter(cfg.Model)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	gen := NewGenerator(cfg, client, tokens, logger)
	return &service{
		cfg:       cfg,
		gen:       gen,
		relay:     NewRelay(gen, history, cfg.HeartbeatInterval, tokens, logger),
		history:   history,
		validator: validation.New(),
		clock:     util.NowUTC,
		logger:    logger.With("component", "summarizer.service"),
	}
}

func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	req, err := s.validate(req)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	gen := s.gen.Generate(ctx, req.Transcript, req.Prompt)
	if !gen.Fallback && strings.TrimSpace(gen.Text) != "" {
		rec, err := s.history.Append(ctx, Record{Prompt: req.Prompt, Summary: gen.Text, CreatedAt: s.clock()})
		if err != nil {
			return Response{}, apperrors.Wrap("history_error", "failed to store summary", err)
		}
		s.logger.Debug("summary stored", "id", rec.ID)
	}

	resp := Response{
		Summary:    gen.Text,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if !gen.Usage.IsZero() {
		usage := gen.Usage
		resp.TokenUsage = &usage
	}
	return resp, nil
}

func (s *service) StreamSummary(ctx context.Context, req Request, sink EventSink) error {
	req, err := s.validate(req)
	if err != nil {
		return err
	}

	outcome, err := s.relay.Run(ctx, req, sink)
	if err != nil {
		s.logger.Error("summary stream failed", "outcome", outcome, "error", err)
		return nil
	}
	s.logger.Info("summary stream finished", "outcome", outcome)
	return nil
}

func (s *service) History(ctx context.Context) ([]Record, error) {
	records, err := s.history.Recent(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, apperrors.Wrap("history_error", "failed to load history", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *service) validate(req Request) (Request, error) {
	req.Transcript = normalize(req.Transcript)
	req.Prompt = normalize(req.Prompt)
	if err := s.validator.Struct(req, requestMessages); err != nil {
		return Request{}, apperrors.Wrap("invalid_input", "invalid summary request", err)
	}
	return req, nil
}

func normalize(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, text)
	return text
}
