package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemberRateLimiter hands out one token bucket per member.
type MemberRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

// NewMemberRateLimiter allows perMinute requests per member with the given burst.
func NewMemberRateLimiter(perMinute float64, burst int) *MemberRateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	return &MemberRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     3 * time.Minute,
	}
}

func (l *MemberRateLimiter) get(memberID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[memberID]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[memberID] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup drops members not seen for a while. Call it until stop is closed.
func (l *MemberRateLimiter) Cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			for id, v := range l.visitors {
				if time.Since(v.lastSeen) > l.idle {
					delete(l.visitors, id)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Handler must run after UserContextMiddleware.
func (l *MemberRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member, ok := CurrentMember(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing member context"})
		}
		if !l.get(member.ID).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many submissions, slow down",
			})
		}
		return c.Next()
	}
}
