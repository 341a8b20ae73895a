package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
	"github.com/yanqian/meeting-summarizer/internal/infra/config"
	"github.com/yanqian/meeting-summarizer/internal/infra/ratelimit"
	"github.com/yanqian/meeting-summarizer/pkg/tracing"
)

type closingHistory struct {
	closed bool
}

func (h *closingHistory) Append(_ context.Context, rec summarizer.Record) (summarizer.Record, error) {
	return rec, nil
}

func (h *closingHistory) Recent(context.Context, int) ([]summarizer.Record, error) {
	return nil, nil
}

func (h *closingHistory) Close() error {
	h.closed = true
	return nil
}

type closingLimiter struct {
	ratelimit.Limiter
	closed bool
}

func (l *closingLimiter) Close() error {
	l.closed = true
	return nil
}

func TestRunReleasesResourcesOnShutdown(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	history := &closingHistory{}
	limiter := &closingLimiter{}
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NotFoundHandler()}

	app := NewApp(cfg, logger, server, history, limiter, &tracing.Provider{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	require.True(t, history.closed)
	require.True(t, limiter.closed)
}
