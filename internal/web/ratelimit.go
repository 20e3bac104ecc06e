package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 15 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiter is a per-client token bucket. A nil *loginLimiter allows everything.
type loginLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newLoginLimiter(perMinute, burst int) *loginLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &loginLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *loginLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	e, ok := l.clients[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// evictIdle drops clients not seen for limiterIdleTTL. Callers hold l.mu.
func (l *loginLimiter) evictIdle(now time.Time) {
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.clients, k)
		}
	}
}

// clientIP returns the host part of RemoteAddr. Forwarding headers only
// count when Options.TrustProxyHeaders installed middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
