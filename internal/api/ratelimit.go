package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a fixed-window per-client rate limiter. Windows reset lazily
// on access, so no janitor goroutine is required at this scale.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*windowCount
}

type windowCount struct {
	start time.Time
	hits  int
}

// NewLimiter allows max requests per client per window. A non-positive max
// disables the limiter.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		clients: make(map[string]*windowCount),
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	wc, ok := l.clients[key]
	if !ok || now.Sub(wc.start) >= l.window {
		l.clients[key] = &windowCount{start: now, hits: 1}
		return true
	}
	wc.hits++
	return wc.hits <= l.max
}

// Middleware rejects over-limit requests with 429. Clients are keyed by
// remote IP; chi's RealIP middleware upstream rewrites RemoteAddr when the
// request came through a proxy.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !l.Allow(host) {
			writeJSON(w, http.StatusTooManyRequests, errorBody("too many requests, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
