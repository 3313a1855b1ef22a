package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wpietrzak/kadrio/internal/metrics"
	"github.com/wpietrzak/kadrio/internal/ratelimit"
	"github.com/wpietrzak/kadrio/internal/sanitize"
)

// timingWriter stamps X-Response-Time just before the status line goes
// out; after that point headers are immutable.
type timingWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timingWriter) WriteHeader(code int) {
	w.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(w.start).Milliseconds()))
	w.ResponseWriter.WriteHeader(code)
}

// requestMeta tags every response with a request id and the measured
// handling time, and feeds the metrics collector.
func requestMeta(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)
		c.Set("requestID", requestID)
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}

		c.Next()

		if collector != nil {
			collector.Observe(time.Since(start), c.Writer.Status() >= http.StatusBadRequest)
		}
	}
}

// corsMiddleware answers preflight requests and sets the allow headers
// for the configured origins. A "*" entry allows any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// sanitizeBody strips control characters from every string in a JSON
// request body before the handlers see it.
func sanitizeBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil ||
			(c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPatch) {
			c.Next()
			return
		}
		if ct := c.ContentType(); ct != "" && !strings.Contains(ct, "application/json") {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_JSON", "request body could not be read")
			c.Abort()
			return
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			c.Next()
			return
		}

		var payload interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
			c.Abort()
			return
		}
		cleaned, err := json.Marshal(sanitize.CleanValue(payload))
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(cleaned))
		c.Request.ContentLength = int64(len(cleaned))
		c.Next()
	}
}

// rateLimitMiddleware enforces the fixed-window limit per client IP and
// mirrors the limiter state in X-RateLimit headers.
func rateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := limiter.Check(c.ClientIP())

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", res.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetAt.Unix()))

		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Zbyt wiele żądań. Spróbuj ponownie za chwilę.",
				"code":       "RATE_LIMIT_EXCEEDED",
				"retryAfter": res.RetryAfterSeconds,
			})
			return
		}
		c.Next()
	}
}
