package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
	"github.com/yanqian/meeting-summarizer/internal/infra/config"
	"github.com/yanqian/meeting-summarizer/internal/infra/ratelimit"
	"github.com/yanqian/meeting-summarizer/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the HTTP server lifecycle and the resources it owns.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	history summarizer.HistoryRepository
	limiter ratelimit.Limiter
	tracer  *tracing.Provider
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, history summarizer.HistoryRepository, limiter ratelimit.Limiter, tracer *tracing.Provider) *App {
	return &App{
		cfg:     cfg,
		logger:  logger.With("component", "bootstrap"),
		server:  server,
		history: history,
		limiter: limiter,
		tracer:  tracer,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address, "environment", a.cfg.Environment)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received")
		err := a.server.Shutdown(shutdownCtx)
		return errors.Join(err, a.release(shutdownCtx))
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return errors.Join(err, a.release(shutdownCtx))
	}
}

// release closes stores, the limiter and the tracer once no request is in flight.
func (a *App) release(ctx context.Context) error {
	var errs []error
	if closer, ok := a.history.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		a.logger.Error("resource cleanup failed", "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}
