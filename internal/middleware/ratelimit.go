package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/funrun2025/registration-service/internal/config"
)

// FixedWindow returns a fixed-window rate limiter: at most cfg.Limit
// requests per cfg.Window per caller key.  Excess requests get a distinct
// 429 response with a Retry-After header instead of being processed.
//
// With a Redis client the window counters are shared across instances via
// an atomic INCR+EXPIRE script; without one the limiter falls back to an
// in-process window, which is still correct for a single instance.  Redis
// errors fail open so a broken cache never blocks logins.
func FixedWindow(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	var mem *memoryWindow
	if rdb == nil {
		mem = newMemoryWindow()
	}

	windowScript := redis.NewScript(`
		local count = redis.call('INCR', KEYS[1])
		if count == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		local ttl = redis.call('PTTL', KEYS[1])
		return { count, ttl }
	`)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)

			var count int64
			var retryAfter time.Duration

			if rdb != nil {
				vals, err := windowScript.Run(c.Request().Context(), rdb, []string{key}, cfg.Window.Milliseconds()).Result()
				if err != nil {
					if cfg.Debug {
						c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
					}
					return next(c)
				}
				arr, ok := vals.([]interface{})
				if !ok || len(arr) != 2 {
					return next(c)
				}
				count = asInt64(arr[0])
				retryAfter = time.Duration(asInt64(arr[1])) * time.Millisecond
			} else {
				count, retryAfter = mem.hit(key, cfg.Window)
			}

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				secs := int(retryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	switch cfg.KeyStrategy {
	case "ip_route":
		return cfg.Prefix + ":" + ip + ":" + c.Request().Method + " " + c.Path()
	default: // "ip"
		return cfg.Prefix + ":" + ip
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// sweepEvery bounds the fallback map: after this many new keys the map is
// swept of expired windows, so a stream of distinct client IPs cannot grow
// it without limit.
const sweepEvery = 64

// memoryWindow is the single-instance fallback: a mutex-guarded map of
// window counters, lazily expired on access and periodically swept.
type memoryWindow struct {
	mu        sync.Mutex
	entries   map[string]*windowEntry
	sinceScan int
}

type windowEntry struct {
	count   int64
	resetAt time.Time
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{entries: make(map[string]*windowEntry)}
}

// hit registers one request and returns the new count plus the time left
// in the current window.
func (m *memoryWindow) hit(key string, window time.Duration) (int64, time.Duration) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || now.After(e.resetAt) {
		if !ok {
			m.sinceScan++
			if m.sinceScan >= sweepEvery {
				m.sweep(now)
				m.sinceScan = 0
			}
		}
		e = &windowEntry{resetAt: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt.Sub(now)
}

// sweep drops every expired window.  Caller holds the mutex.
func (m *memoryWindow) sweep(now time.Time) {
	for k, e := range m.entries {
		if now.After(e.resetAt) {
			delete(m.entries, k)
		}
	}
}
