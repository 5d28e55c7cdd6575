package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"tour-booking-webapp/errors"
)

// RateLimiter keeps one token bucket per client IP. Buckets that have not
// been used for idleTTL are removed by the janitor.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry

	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	log          *slog.Logger
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type RateLimiterOption func(*RateLimiter)

func WithIdleTTL(d time.Duration) RateLimiterOption {
	return func(l *RateLimiter) { l.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) RateLimiterOption {
	return func(l *RateLimiter) { l.cleanupEvery = d }
}

// NewRateLimiter allows rps requests per second per client with bursts of
// up to burst. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int, log *slog.Logger, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		log:          log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.rps <= 0 {
			return c.Next()
		}

		ip := c.IP()
		if !l.limiter(ip).Allow() {
			l.log.Warn("booking submission rate limited", "ip", ip, "path", c.Path())
			c.Set(fiber.HeaderRetryAfter, "1")
			return errors.RaiseTooManyRequestsError(c, "too many booking attempts, try again later")
		}
		return c.Next()
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *RateLimiter) Cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor removes idle buckets periodically until ctx is cancelled.
func (l *RateLimiter) StartJanitor(ctx context.Context) {
	if l.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}
