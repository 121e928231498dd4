// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an address is remembered after its last request
const idleTTL = 10 * time.Minute

// IPLimiter throttles requests per client address. It protects the
// call budget from a single client draining it in a burst.
type IPLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	now     func() time.Time

	// lastSweep bounds sweeps to one per idleTTL
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter allows perMinute requests per address, with bursts of the
// same size. A nil limiter (perMinute <= 0) lets everything through.
func NewIPLimiter(perMinute int) *IPLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &IPLimiter{
		clients: make(map[string]*client),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		now:     time.Now,
	}
}

// Allow reports whether ip may make a request now
func (l *IPLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	allowed := c.limiter.AllowN(now, 1)

	if now.Sub(l.lastSweep) > idleTTL {
		l.sweep(now)
		l.lastSweep = now
	}
	return allowed
}

// sweep forgets addresses idle for longer than idleTTL
func (l *IPLimiter) sweep(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > idleTTL {
			delete(l.clients, ip)
		}
	}
}

// Limit wraps a handler, answering 429 once the caller's address is over its rate
func (l *IPLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			ErrorResponse(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next(w, r)
	}
}
