package http

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/yanqian/meeting-summarizer/internal/infra/ratelimit"
	apperrors "github.com/yanqian/meeting-summarizer/pkg/errors"
	"github.com/yanqian/meeting-summarizer/pkg/validation"
)

const (
	requestIDHeader  = "X-Request-ID"
	requestIDKey     = "request_id"
	rateLimitMessage = "Too many requests from this IP, please try again after 15 minutes"
)

// errorBody is the envelope of every non-validation failure.
type errorBody struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func errorHandlingMiddleware(logger *slog.Logger, exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, logger, asHTTPError(c.Errors.Last().Err), exposeStack)
	}
}

func writeError(c *gin.Context, logger *slog.Logger, httpErr *HTTPError, exposeStack bool) {
	attrs := []any{"code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey), "error", httpErr.Err}
	if httpErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("request failed", attrs...)
	}

	if fields, ok := validation.Fields(httpErr.Err); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": fields})
		return
	}

	body := errorBody{Message: httpErr.Message}
	if body.Message == "" {
		body.Message = httpErr.Error()
	}
	if exposeStack {
		body.Stack = apperrors.StackOf(httpErr.Err)
	}
	c.AbortWithStatusJSON(httpErr.Status, body)
}

func recoveryMiddleware(logger *slog.Logger, exposeStack bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		err := pkgerrors.New(fmt.Sprint(recovered))
		if c.Writer.Written() {
			logger.Error("panic after response started", "path", c.Request.URL.Path, "error", err)
			c.Abort()
			return
		}
		writeError(c, logger, NewHTTPError(http.StatusInternalServerError, "panic", "Internal Server Error", err), exposeStack)
	})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds(), "request_id", c.GetString(requestIDKey))
	}
}

func rateLimitMiddleware(limiter ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			logger.Error("rate limiter unavailable, letting request through", "ip", ip, "error", err)
			c.Next()
			return
		}

		headers := c.Writer.Header()
		headers.Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
		headers.Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("RateLimit-Reset", strconv.Itoa(secondsUntil(decision.ResetAt)))

		if decision.Allowed {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Message: rateLimitMessage})
	}
}

func secondsUntil(t time.Time) int {
	d := time.Until(t)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
