package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsMiddleware answers preflights and lets browsers read the rate limit headers.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Set("Access-Control-Allow-Origin", resolveOrigin(c.GetHeader("Origin"), allowed))
		headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "Content-Type")
		headers.Set("Access-Control-Expose-Headers", "RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset, X-Request-ID")
		headers.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func resolveOrigin(requestOrigin string, allowed []string) string {
	if len(allowed) == 0 {
		return "*"
	}
	for _, candidate := range allowed {
		if candidate == "*" {
			return "*"
		}
		if requestOrigin != "" && strings.EqualFold(candidate, requestOrigin) {
			return requestOrigin
		}
	}
	return allowed[0]
}
