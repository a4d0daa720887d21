package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/config"
)

func limiterConfig(limit int, window time.Duration) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:     true,
		Limit:       limit,
		Window:      window,
		KeyStrategy: "ip",
		Prefix:      "rl:test",
	}
}

func hitLimiter(mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return rec
}

func TestFixedWindowMemoryFallback(t *testing.T) {
	t.Parallel()

	mw := FixedWindow(limiterConfig(3, time.Minute), nil)

	for i := 1; i <= 3; i++ {
		rec := hitLimiter(mw)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
		wantRemaining := strconv.Itoa(3 - i)
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d: remaining = %q, want %q", i, got, wantRemaining)
		}
	}

	rec := hitLimiter(mw)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("over limit: missing Retry-After header")
	}
}

func TestFixedWindowResets(t *testing.T) {
	t.Parallel()

	mw := FixedWindow(limiterConfig(1, 50*time.Millisecond), nil)

	if rec := hitLimiter(mw); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	if rec := hitLimiter(mw); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}

	time.Sleep(60 * time.Millisecond)
	if rec := hitLimiter(mw); rec.Code != http.StatusOK {
		t.Errorf("after window: status = %d, want 200", rec.Code)
	}
}

func TestFixedWindowDisabled(t *testing.T) {
	t.Parallel()

	mw := FixedWindow(config.RateLimitConfig{Enabled: false, Limit: 0}, nil)
	for i := 0; i < 5; i++ {
		if rec := hitLimiter(mw); rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter blocked request: status = %d", rec.Code)
		}
	}
}

func TestMemoryWindowSweepsExpiredKeys(t *testing.T) {
	t.Parallel()

	m := newMemoryWindow()
	window := 5 * time.Millisecond

	for i := 0; i < 10; i++ {
		m.hit(fmt.Sprintf("stale-%d", i), window)
	}
	time.Sleep(10 * time.Millisecond)

	// Fresh keys past the sweep threshold trigger a purge of the expired
	// ones, so a stream of distinct clients cannot grow the map forever.
	for i := 0; i < sweepEvery; i++ {
		m.hit(fmt.Sprintf("fresh-%d", i), time.Minute)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) > sweepEvery {
		t.Errorf("entries = %d, want at most %d (stale keys swept)", len(m.entries), sweepEvery)
	}
	for k := range m.entries {
		if strings.HasPrefix(k, "stale-") {
			t.Errorf("expired key %q survived the sweep", k)
		}
	}
}

func TestFixedWindowKeysSeparateClients(t *testing.T) {
	t.Parallel()

	mw := FixedWindow(limiterConfig(1, time.Minute), nil)
	e := echo.New()
	hitFrom := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		_ = mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
		return rec.Code
	}

	if code := hitFrom("203.0.113.1:1000"); code != http.StatusOK {
		t.Fatalf("client A first: %d", code)
	}
	if code := hitFrom("203.0.113.1:1000"); code != http.StatusTooManyRequests {
		t.Fatalf("client A second: %d, want 429", code)
	}
	// A second client gets its own window.
	if code := hitFrom("203.0.113.2:1000"); code != http.StatusOK {
		t.Errorf("client B first: %d, want 200", code)
	}
}
