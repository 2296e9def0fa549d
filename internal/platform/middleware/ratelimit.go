package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"loanbroker/internal/platform/metrics"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/httputil"
	"loanbroker/pkg/requestcontext"
)

const (
	bucketIdleThreshold = time.Hour
	cleanupInterval     = 30 * time.Minute
)

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimiter is a per-key token bucket: every key starts with capacity
// tokens and is refilled to capacity once refill has elapsed since the last
// refill.
type RateLimiter struct {
	mu       sync.Mutex
	capacity int
	refill   time.Duration
	clients  map[string]*clientBucket
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter with a background sweeper; call Stop on
// shutdown.
func NewRateLimiter(capacity int, refill time.Duration) *RateLimiter {
	rl := newRateLimiter(capacity, refill, time.Now)
	go rl.cleanupLoop()
	return rl
}

func newRateLimiter(capacity int, refill time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		capacity: capacity,
		refill:   refill,
		clients:  make(map[string]*clientBucket),
		now:      now,
		stop:     make(chan struct{}),
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.clients {
		if now.Sub(b.lastRefill) > bucketIdleThreshold {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow consumes one token for key. It returns whether the request may
// proceed, the tokens left, and when the bucket next refills.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[key]
	if !ok {
		b = &clientBucket{tokens: rl.capacity, lastRefill: now}
		rl.clients[key] = b
	}
	if now.Sub(b.lastRefill) >= rl.refill {
		b.tokens = rl.capacity
		b.lastRefill = now
	}
	resetAt := b.lastRefill.Add(rl.refill)
	if b.tokens <= 0 {
		return false, 0, resetAt
	}
	b.tokens--
	return true, b.tokens, resetAt
}

// RateLimit rejects callers whose client IP has exhausted its bucket. A nil
// limiter disables limiting.
func RateLimit(rl *RateLimiter, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = ClientIPFromRequest(r, nil)
			}

			allowed, remaining, resetAt := rl.Allow(ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if !allowed {
				retryAfter := max(int(time.Until(resetAt).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				m.IncrementRateLimited()
				logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Too many requests. Please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
