package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter allows each client `requests` requests per `window`, refilled
// continuously, keyed by client IP.
type rateLimiter struct {
	requests int
	window   time.Duration
	exempt   func(*http.Request) bool

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastPrune time.Time
}

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(requests int, window time.Duration, exempt func(*http.Request) bool) *rateLimiter {
	return &rateLimiter{
		requests:  requests,
		window:    window,
		exempt:    exempt,
		clients:   make(map[string]*clientLimiter),
		lastPrune: time.Now(),
	}
}

func (rl *rateLimiter) limiter(id string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) > rl.window {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.window {
				delete(rl.clients, k)
			}
		}
		rl.lastPrune = now
	}

	c, ok := rl.clients[id]
	if !ok {
		every := rl.window / time.Duration(rl.requests)
		c = &clientLimiter{lim: rate.NewLimiter(rate.Every(every), rl.requests)}
		rl.clients[id] = c
	}
	c.lastSeen = now
	return c.lim
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.requests <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt != nil && rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		now := time.Now()
		lim := rl.limiter(clientID(r), now)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))

		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			retry := int(math.Ceil(delay.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "Rate Limit Exceeded",
				"message":     fmt.Sprintf("Too many requests. Limit: %d requests per %s", rl.requests, rl.window),
				"retry_after": retry,
				"type":        "rate_limit_error",
			})
			return
		}

		remaining := int(lim.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

// clientID keys on RemoteAddr, which middleware.RealIP has already resolved.
func clientID(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
