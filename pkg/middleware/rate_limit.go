package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"clinicops/pkg/logger"
)

// KeyExtractor derives the rate-limiting bucket for a request, typically a
// staff session identifier or, failing that, the client address.
type KeyExtractor func(r *http.Request) string

type KeyRateLimiter struct {
	mu        sync.RWMutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	stopCh    chan struct{}
}

// DefaultKeyExtractor prefers the X-Staff-Session header so each staff
// member gets an independent budget; anonymous requests fall back to the
// remote host.
func DefaultKeyExtractor(r *http.Request) string {
	if session := r.Header.Get("X-Staff-Session"); session != "" {
		return session
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func NewKeyRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *KeyRateLimiter {
	limiter := &KeyRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *KeyRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *KeyRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *KeyRateLimiter) allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[key]
	recent := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}

	rl.requests[key] = append(recent, now)
	return true
}

func RateLimit(limiter *KeyRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
