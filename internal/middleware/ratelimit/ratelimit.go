// Package ratelimit caps the number of requests a client address may make in
// a fixed window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config sets the per client budget. Requests <= 0 disables limiting.
type Config struct {
	Requests int
	Window   time.Duration

	// Now replaces time.Now.
	Now func() time.Time
}

// DefaultConfig allows 120 requests per minute.
func DefaultConfig() Config {
	return Config{Requests: 120, Window: time.Minute}
}

// Enabled reports whether the config limits anything.
func (c Config) Enabled() bool { return c.Requests > 0 }

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per client in windows that start with the first
// request of the client. Expired windows are swept lazily.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*window
	lastSweep time.Time
	rejected  int64

	requests int
	window   time.Duration
	now      func() time.Time
}

func NewLimiter(config Config) *Limiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Limiter{
		clients:   make(map[string]*window),
		requests:  config.Requests,
		window:    config.Window,
		now:       config.Now,
		lastSweep: config.Now(),
	}
}

// Allow counts a request from client. When the budget is spent it returns
// false and the time left until the window ends.
func (rl *Limiter) Allow(client string) (bool, time.Duration) {
	if rl.requests <= 0 {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	w, ok := rl.clients[client]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[client] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count >= rl.requests {
		rl.rejected++
		return false, w.start.Add(rl.window).Sub(now)
	}
	w.count++
	return true, 0
}

func (rl *Limiter) sweep(now time.Time) {
	for client, w := range rl.clients {
		if now.Sub(w.start) >= rl.window {
			delete(rl.clients, client)
		}
	}
	rl.lastSweep = now
}

// Metrics for monitoring rate limiting.
type Metrics struct {
	Rejected int64
	Clients  int
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return Metrics{Rejected: rl.rejected, Clients: len(rl.clients)}
}

// Middleware rejects requests over budget. onLimit writes the rejection; when
// nil a plain 429 is sent. Retry-After is always set, in whole seconds.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := rl.Allow(extractIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
