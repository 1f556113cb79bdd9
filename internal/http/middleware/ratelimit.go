package middleware

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/casehall-backend/internal/http/response"
	"github.com/yungbote/casehall-backend/internal/observability"
	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
)

// RateLimiter keeps one token bucket per caller. Idle buckets are dropped
// after idleTTL.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	metrics *observability.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter returns nil when perSecond <= 0, which disables limiting.
func NewRateLimiter(perSecond float64, burst int, m *observability.Metrics) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		metrics: m,
		buckets: map[string]*bucket{},
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.swept) > rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) > rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.swept = now
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Handler limits per authenticated user, falling back to the client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := ctxutil.GetIdentity(c.Request.Context()); id != nil {
			key = id.UserID.String()
		}
		if !rl.allow(key, time.Now()) {
			rl.metrics.IncRateLimited(c.FullPath())
			c.Header("Retry-After", "1")
			response.RespondError(c, http.StatusTooManyRequests, "RATE_LIMITED", errors.New("too many requests"))
			return
		}
		c.Next()
	}
}
