package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"voicelink/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterTTL bounds how long an idle caller keeps its token bucket.
// The control API runs for the life of the desktop session, so the
// limiter map must not grow with every address ever seen.
const limiterTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// callerLimiters hands out one token bucket per caller address and
// evicts buckets that have been idle past the TTL.
type callerLimiters struct {
	mu     sync.Mutex
	byAddr map[string]*callerLimiter
	rate   rate.Limit
	burst  int
}

func newCallerLimiters(r rate.Limit, burst int) *callerLimiters {
	return &callerLimiters{
		byAddr: make(map[string]*callerLimiter),
		rate:   r,
		burst:  burst,
	}
}

func (s *callerLimiters) get(addr string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	cl, ok := s.byAddr[addr]
	if !ok {
		s.evictIdleLocked(now)
		cl = &callerLimiter{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.byAddr[addr] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (s *callerLimiters) evictIdleLocked(now time.Time) {
	for addr, cl := range s.byAddr {
		if now.Sub(cl.lastSeen) > limiterTTL {
			delete(s.byAddr, addr)
		}
	}
}

// callerAddr identifies the caller for rate limiting purposes. The
// first X-Forwarded-For hop wins when the request came through a
// proxy; otherwise the remote address without its port.
func callerAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware returns gin middleware throttling the
// control API: a per-caller token bucket plus an optional cap on
// concurrent in-flight requests.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiters := newCallerLimiters(
		rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond),
		cfg.RateLimiting.HTTP.Burst,
	)

	var inflight chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		inflight = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if inflight != nil {
			select {
			case inflight <- struct{}{}:
				defer func() { <-inflight }()
			default:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "too many concurrent requests",
				})
				return
			}
		}

		if !limiters.get(callerAddr(c.Request)).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
