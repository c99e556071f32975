package api

import (
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"dustbinpro/internal/config"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/metrics"
	"dustbinpro/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger attaches a request-scoped logger, tagged with the customer
// once the session is known, and writes one access line per request.
func requestLogger(base *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetString("request_id")
		ctx := logging.WithRequest(c.Request.Context(), base, id, session.Get(c).UID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logging.Ctx(ctx, base).Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

func recovery(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("request_id", c.GetString("request_id")).
					Str("path", c.Request.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// limiterIdle is how long a client's limiter is kept after its last post.
const limiterIdle = 10 * time.Minute

// rateLimiter throttles form posts per client address. Limiters idle for
// longer than idle are dropped by a sweep that runs at most once per idle.
type rateLimiter struct {
	limiters  sync.Map
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

func newRateLimiter(cfg config.RateLimit) *rateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	l := &rateLimiter{rps: rate.Limit(cfg.RPS), burst: burst, idle: limiterIdle, now: time.Now}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func (l *rateLimiter) getLimiter(key string) *limiterEntry {
	if v, ok := l.limiters.Load(key); ok {
		if e, ok := v.(*limiterEntry); ok {
			return e
		}
	}

	e := &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
	actual, loaded := l.limiters.LoadOrStore(key, e)
	if loaded {
		if actualEntry, ok := actual.(*limiterEntry); ok {
			return actualEntry
		}
	}
	return e
}

func (l *rateLimiter) allow(key string) bool {
	now := l.now()
	e := l.getLimiter(key)
	e.lastSeen.Store(now.UnixNano())

	last := l.lastSweep.Load()
	if now.Sub(time.Unix(0, last)) >= l.idle && l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		l.sweep(now)
	}
	return e.lim.AllowN(now, 1)
}

// sweep drops limiters idle since before now-idle and returns how many.
func (l *rateLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-l.idle).UnixNano()
	removed := 0
	l.limiters.Range(func(k, v any) bool {
		if e, ok := v.(*limiterEntry); !ok || e.lastSeen.Load() < cutoff {
			l.limiters.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

func (l *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rps <= 0 || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// jsonCORS allows configured origins to call the JSON endpoints with the
// session cookie. No origins means same-origin only.
func jsonCORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-CSRF-Token", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
