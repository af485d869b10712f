package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CORSConfig holds the cross-origin policy for the API.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // preflight cache duration in seconds
}

// CORSMiddleware answers preflight requests and stamps CORS headers on
// responses to allowed origins. Requests from other origins pass through
// unheadered; the browser enforces the denial.
func CORSMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAny = true
			continue
		}
		allowed[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]
			if origin == "" || (!ok && !allowAny) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter tracks a token bucket per client address. Entries idle for
// longer than idleTTL are pruned on the next lookup so the map cannot grow
// without bound under churning client IPs.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int

	idleTTL   time.Duration
	lastPrune time.Time
}

type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rps sustained requests per
// second with the given burst per client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		limit:     rate.Limit(rps),
		burst:     burst,
		idleTTL:   3 * time.Minute,
		lastPrune: time.Now(),
	}
}

// Allow reports whether a request from the given client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) > rl.idleTTL {
		for key, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.idleTTL {
				delete(rl.clients, key)
			}
		}
		rl.lastPrune = now
	}

	c, ok := rl.clients[client]
	if !ok {
		c = &clientLimiter{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = c
	}
	c.lastSeen = now
	return c.bucket.Allow()
}

// RateLimitMiddleware rejects requests exceeding the per-client budget with
// 429. Clients are keyed by X-Real-IP when a proxy sets it, otherwise by
// the connection's remote host.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.Header.Get("X-Real-IP")
			if client == "" {
				if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
					client = host
				} else {
					client = r.RemoteAddr
				}
			}

			if !limiter.Allow(client) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests. Please slow down."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
