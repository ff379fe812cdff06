package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/briefs-backend/internal/pkg/ctxutil"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

// RequestLogger writes one line per request. Contention (503) is expected under load and
// logs at warn; other 5xx log at error.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if msg := c.Errors.ByType(gin.ErrorTypeAny).String(); msg != "" {
			fields = append(fields, "error", msg)
		}

		switch {
		case status == http.StatusServiceUnavailable, status >= 400 && status < 500:
			log.Warn("request", fields...)
		case status >= 500:
			log.Error("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
