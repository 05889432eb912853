package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// rateLimitError is the body of a 429 response.
type rateLimitError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"` // seconds
}

// clientLimiter rate limits requests per client address.
type clientLimiter struct {
	clock    clockwork.Clock
	rate     rate.Limit
	burst    int
	idle     time.Duration
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	pruned   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(clock clockwork.Clock, r rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		clock:    clock,
		rate:     r,
		burst:    burst,
		idle:     5 * time.Minute,
		limiters: make(map[string]*limiterEntry),
		pruned:   clock.Now(),
	}
}

// allow reports whether a request from client may proceed now and, if not,
// how long until it could.
func (l *clientLimiter) allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.pruned) >= l.idle {
		cutoff := now.Add(-l.idle)
		for k, e := range l.limiters {
			if e.lastSeen.Before(cutoff) {
				delete(l.limiters, k)
			}
		}
		l.pruned = now
	}

	e, ok := l.limiters[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[client] = e
	}
	e.lastSeen = now

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.allow(clientAddr(r))
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		retrySeconds := max(1, int(retryAfter.Seconds()))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(rateLimitError{
			Error:      "rate_limit_exceeded",
			Message:    "Too many requests. Please slow down.",
			RetryAfter: retrySeconds,
		})
	})
}

// clientAddr is the host part of RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
