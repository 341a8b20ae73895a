package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yanqian/meeting-summarizer/internal/domain/share"
	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
	"github.com/yanqian/meeting-summarizer/internal/infra/config"
	"github.com/yanqian/meeting-summarizer/internal/infra/historyrepo"
	"github.com/yanqian/meeting-summarizer/internal/infra/llm/chatgpt"
	"github.com/yanqian/meeting-summarizer/internal/infra/llm/gemini"
	"github.com/yanqian/meeting-summarizer/internal/infra/mail"
	"github.com/yanqian/meeting-summarizer/internal/infra/ratelimit"
	"github.com/yanqian/meeting-summarizer/pkg/tracing"
)

const connectTimeout = 5 * time.Second

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		HistoryLimit:      cfg.Summary.HistoryLimit,
		HeartbeatInterval: cfg.Summary.HeartbeatInterval,
		EstimateTokens:    cfg.Summary.EstimateTokens,
	}
}

func provideChatClient(cfg *config.Config, logger *slog.Logger) (summarizer.ChatClient, error) {
	logger.Info("llm provider selected", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	if cfg.LLM.Provider == config.ProviderOpenAI {
		return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	}
	return gemini.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideTracing(cfg *config.Config, logger *slog.Logger) (*tracing.Provider, error) {
	return tracing.New(tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
}

func provideHistoryRepository(cfg *config.Config, logger *slog.Logger) summarizer.HistoryRepository {
	if uri := strings.TrimSpace(cfg.History.Mongo.URI); uri != "" {
		if repo := connectMongo(uri, cfg.History.Mongo.Database, logger); repo != nil {
			return repo
		}
	}
	if dsn := strings.TrimSpace(cfg.History.Postgres.DSN); dsn != "" {
		if repo := connectPostgres(dsn, cfg.History.Postgres, logger); repo != nil {
			return repo
		}
	}
	logger.Info("no reachable history store configured, using memory repository")
	return historyrepo.NewMemoryRepository()
}

func connectMongo(uri, database string, logger *slog.Logger) *historyrepo.MongoRepository {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("failed to initialize mongo client", "error", err)
		return nil
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Error("mongo ping failed", "error", err)
		_ = client.Disconnect(context.Background())
		return nil
	}
	repo := historyrepo.NewMongoRepository(client, database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo index creation failed", "error", err)
	}
	logger.Info("mongo history repository enabled", "database", database)
	return repo
}

func connectPostgres(dsn string, pgCfg config.PostgresConfig, logger *slog.Logger) *historyrepo.PostgresRepository {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn", "error", err)
		return nil
	}
	if pgCfg.MaxConns > 0 {
		poolConfig.MaxConns = pgCfg.MaxConns
	}
	if pgCfg.MinConns > 0 {
		poolConfig.MinConns = pgCfg.MinConns
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed", "error", err)
		pool.Close()
		return nil
	}
	repo := historyrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres history repository enabled")
	return repo
}

func provideRateLimiter(cfg *config.Config, logger *slog.Logger) ratelimit.Limiter {
	rl := cfg.HTTP.RateLimit
	if !rl.Enabled {
		logger.Info("rate limiting disabled")
		return nil
	}
	if rl.Valkey.Enabled {
		if limiter := connectValkey(rl, logger); limiter != nil {
			return limiter
		}
	}
	return ratelimit.NewMemoryLimiter(rl.MaxRequests, rl.Window)
}

func connectValkey(rl config.RateLimitConfig, logger *slog.Logger) *ratelimit.ValkeyLimiter {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(rl.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(rl.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{rl.Valkey.Addr}}
	}
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory limiter", "error", err)
		return nil
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory limiter", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory limiter", "error", err)
		client.Close()
		return nil
	}
	logger.Info("valkey rate limiter enabled", "addr", rl.Valkey.Addr)
	return ratelimit.NewValkeyLimiter(client, rl.Valkey.Prefix, rl.MaxRequests, rl.Window)
}

func provideMailer(cfg *config.Config, logger *slog.Logger) share.Mailer {
	if !cfg.Mail.Configured() {
		logger.Warn("smtp credentials not set, shared summaries stay in the memory outbox")
		return mail.NewMemoryMailer(logger)
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	})
}
