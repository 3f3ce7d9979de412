package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Rate limit profiles for the portal's endpoint classes.
// These can be overridden via environment variables (see init() below).
var (
	// SetupLimit guards the public begin-setup redirect.
	// Allows 20 requests per source IP per 15 minutes.
	// Override with: RATELIMIT_SETUP_REQUESTS, RATELIMIT_SETUP_WINDOW_SEC, RATELIMIT_SETUP_BURST
	SetupLimit = RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            15 * time.Minute,
		Burst:             20,
	}

	// GuestLimit guards guest self-registration.
	// Allows 10 registrations per source IP per hour.
	// Override with: RATELIMIT_GUEST_REQUESTS, RATELIMIT_GUEST_WINDOW_SEC, RATELIMIT_GUEST_BURST
	GuestLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Hour,
		Burst:             10,
	}

	// ModerateLimit for state-changing operations (recovery, invitations).
	// Override with: RATELIMIT_MODERATE_REQUESTS, RATELIMIT_MODERATE_WINDOW_SEC, RATELIMIT_MODERATE_BURST
	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            time.Minute,
		Burst:             20,
	}

	// LenientLimit for read-only and health endpoints.
	// Override with: RATELIMIT_LENIENT_REQUESTS, RATELIMIT_LENIENT_WINDOW_SEC, RATELIMIT_LENIENT_BURST
	LenientLimit = RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             100,
	}
)

func init() {
	// Allow overriding rate limits via environment variables (useful for testing)
	SetupLimit = ParseRateLimitFromEnv("SETUP", SetupLimit)
	GuestLimit = ParseRateLimitFromEnv("GUEST", GuestLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment
// variables following the pattern RATELIMIT_{prefix}_{field}, e.g.
// RATELIMIT_SETUP_REQUESTS, RATELIMIT_SETUP_WINDOW_SEC, RATELIMIT_SETUP_BURST.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor extracts a grouping key from the request for rate limiting
// purposes (e.g. IP address, form field).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
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

// FormFieldKeyExtractor extracts a key from a form field (works for both GET and POST).
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err == nil {
			return r.FormValue(fieldName)
		}
		return ""
	}
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// Limiter decides whether a request identified by key may proceed.
//
// The counters behind a Limiter are best-effort state: the in-memory
// implementation resets on process restart and is per-instance, while the
// Redis implementation shares a window across replicas. Correctness of the
// endpoints never depends on them.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// memoryLimiter manages per-key token buckets in process memory.
type memoryLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter returns a process-local Limiter backed by token buckets.
func NewMemoryLimiter(config RateLimitConfig) Limiter {
	return &memoryLimiter{
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}
}

func (ml *memoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter := ml.getLimiter(key)
	if limiter.Allow() {
		return true, 0, nil
	}

	// Peek at when the next token becomes available without consuming it.
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()

	return false, delay, nil
}

func (ml *memoryLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := ml.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(ml.rate, ml.burst)
	actual, _ := ml.limiters.LoadOrStore(key, limiter)

	ml.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup removes idle limiters so ephemeral keys don't accumulate.
func (ml *memoryLimiter) maybeCleanup() {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if time.Since(ml.lastCleanup) < 5*time.Minute {
		return
	}
	ml.lastCleanup = time.Now()

	// A limiter with a full bucket hasn't been used recently.
	ml.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(ml.burst) {
			ml.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitWith creates a rate limiting middleware backed by the given Limiter.
// When the limiter itself fails (e.g. shared store unreachable) the request is
// allowed through: throttling is best-effort and must not take the portal down.
func RateLimitWith(config RateLimitConfig, limiter Limiter, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			ok, retryAfter, err := limiter.Allow(ctx, key)
			if err != nil {
				log.Warn("rate limit store unavailable, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				retry := max(int(retryAfter.Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retry,
				)

				WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Error:            "rate_limit_exceeded",
					ErrorDescription: "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP creates an in-memory rate limiter keyed by source IP.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitWith(config, NewMemoryLimiter(config), IPKeyExtractor)
}
