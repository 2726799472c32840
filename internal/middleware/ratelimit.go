package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kvistad/russekort/internal/logging"
)

// RateLimiter throttles an endpoint with a fixed window counter in Redis.
// The scan endpoint sits behind one so a phone looping over the same QR
// code cannot inflate a card's scan count.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	prefix string
	keyFn  func(r *http.Request) string
	// failOpen controls behavior when Redis errors: when true, requests
	// are allowed through. Scan counting tolerates overcounting better
	// than dropped scans, so it fails open; fail closed elsewhere.
	failOpen bool
}

// NewRateLimiter builds a limiter keyed by keyFn (nil means client IP).
// A trailing ":" is appended to prefix when missing, so "ratelimit:scan"
// and "ratelimit:scan:" produce the same keyspace.
func NewRateLimiter(redis *redis.Client, limit int64, window time.Duration, prefix string, keyFn func(r *http.Request) string, failOpen bool) *RateLimiter {
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	if keyFn == nil {
		keyFn = GetClientIP
	}
	return &RateLimiter{
		redis:    redis,
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFn:    keyFn,
		failOpen: failOpen,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		keySuffix := rl.keyFn(r)
		if keySuffix == "" {
			keySuffix = GetClientIP(r)
		}

		key := rl.prefix + keySuffix
		ctx := r.Context()

		// Atomically INCR and set EXPIRE on first hit in the window.
		luaScript := `
			local current
			current = redis.call("INCR", KEYS[1])
			if current == 1 then
				redis.call("EXPIRE", KEYS[1], ARGV[1])
			end
			return current
		`
		ttlSeconds := int64(rl.window.Seconds())
		result, err := rl.redis.Eval(ctx, luaScript, []string{key}, ttlSeconds).Result()
		if err != nil {
			logging.Error("Rate limit Redis error", map[string]interface{}{"error": err.Error()})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeLimiterError(w, http.StatusServiceUnavailable, "Rate limiting temporarily unavailable")
			return
		}

		var count int64
		// Lua numbers come back as int64 here, but guard against float64
		// in case the script ever changes.
		switch v := result.(type) {
		case int64:
			count = v
		case float64:
			count = int64(v)
		default:
			logging.Error("Rate limit Redis script returned unexpected type", map[string]interface{}{"type": fmt.Sprintf("%T", result)})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeLimiterError(w, http.StatusServiceUnavailable, "Rate limiting temporarily unavailable")
			return
		}

		if count > rl.limit {
			w.Header().Set("Retry-After", strconv.FormatInt(ttlSeconds, 10))
			writeLimiterError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeLimiterError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetClientIP extracts the client IP from the request, respecting X-Forwarded-For
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; the first one is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
