package auth

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// A per-IP bucket is dropped after this long without traffic.
const limiterIdle = 10 * time.Minute

type ipLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	mu     sync.Mutex
	perIP  map[string]*ipLimiter
	rps    rate.Limit
	burst  int
	now    func() time.Time
	lastGC time.Time
}

// NewIPRateLimiter allows rps requests per second per IP with the given burst.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		perIP: make(map[string]*ipLimiter),
		rps:   rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

// Allow reports whether a request from ip may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > limiterIdle {
		for k, v := range l.perIP {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(l.perIP, k)
			}
		}
		l.lastGC = now
	}

	e, ok := l.perIP[ip]
	if !ok {
		e = &ipLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.perIP[ip] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

// Middleware rejects over-limit clients with 429.
func (l *IPRateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, slow down")
		}
		return c.Next()
	}
}
