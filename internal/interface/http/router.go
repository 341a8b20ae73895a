package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meeting-summarizer/internal/infra/config"
	"github.com/yanqian/meeting-summarizer/internal/infra/ratelimit"
)

const healthMessage = "AI Summarizer API is running!"

// NewEngine builds the gin engine with middleware and routes.
func NewEngine(cfg *config.Config, summary *SummaryHandler, shareHandler *ShareHandler, limiter ratelimit.Limiter, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	exposeStack := !cfg.IsProduction()
	logger = logger.With("component", "http")

	router := gin.New()
	router.Use(
		recoveryMiddleware(logger, exposeStack),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.CORSAllowedOrigins),
		rateLimitMiddleware(limiter, logger),
		errorHandlingMiddleware(logger, exposeStack),
	)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, healthMessage)
	})

	api := router.Group(strings.TrimRight(cfg.HTTP.BasePath, "/") + "/summary")
	{
		api.POST("/generate", summary.Generate)
		api.POST("/generate-stream", summary.GenerateStream)
		api.GET("/history", summary.History)
		api.POST("/share", shareHandler.Share)
	}

	return router
}

// NewRouter wraps the engine in a configured server.
func NewRouter(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
