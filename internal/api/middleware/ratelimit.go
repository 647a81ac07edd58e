package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jafarshop/orderhook/internal/ratelimit"
	apperrors "github.com/jafarshop/orderhook/pkg/errors"
)

// RateLimit throttles requests per client identifier against the given
// limiter instance. Rejections carry Retry-After and X-RateLimit-*
// headers so well-behaved clients can back off.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := limiter.Check(ClientIdentifier(c.Request))

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Max()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			limited := &apperrors.ErrRateLimited{RetryAfter: time.Duration(retryAfter) * time.Second}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   limited.Error(),
			})
			return
		}

		c.Next()
	}
}

// ClientIdentifier derives the rate-limit key from proxy-supplied IP
// headers, falling back to the socket address. Requests with no IP
// signal at all share one "unknown" bucket: degrading to a global
// quota beats failing open.
func ClientIdentifier(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
