package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/briefs-backend/internal/http/response"
	"github.com/yungbote/briefs-backend/internal/pkg/apierr"
)

var errRateLimited = errors.New("too many requests, retry later")

// RateLimit rejects requests with 429 once l has no tokens left. A nil limiter allows everything.
func RateLimit(l *rate.Limiter) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !l.Allow() {
			retry := time.Second
			if lim := l.Limit(); lim > 0 && lim < 1 {
				retry = time.Duration(float64(time.Second) / float64(lim))
			}
			response.RespondErr(c, &apierr.Error{
				Status:     http.StatusTooManyRequests,
				Code:       "rate_limited",
				Err:        errRateLimited,
				RetryAfter: retry,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
