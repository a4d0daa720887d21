package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/config"
)

func TestCacheable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		size   int64
		limit  int64
		want   bool
	}{
		{"ok within limit", http.StatusOK, 100, 1024, true},
		{"ok at limit", http.StatusOK, 1024, 1024, true},
		{"ok over limit", http.StatusOK, 1025, 1024, false},
		{"ok no limit", http.StatusOK, 1 << 30, 0, true},
		{"error status", http.StatusInternalServerError, 10, 1024, false},
		{"not found", http.StatusNotFound, 10, 1024, false},
	}
	for _, tc := range tests {
		if got := cacheable(tc.status, tc.size, tc.limit); got != tc.want {
			t.Errorf("%s: cacheable(%d, %d, %d) = %v, want %v",
				tc.name, tc.status, tc.size, tc.limit, got, tc.want)
		}
	}
}

func TestCaptureWriterTracksFullSize(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}

	payload := strings.Repeat("x", 25)
	if _, err := cw.Write([]byte(payload)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// The client gets the full response while the buffer stops at the
	// limit; size still counts every byte so the store decision can tell
	// the response was larger than what was captured.
	if rec.Body.String() != payload {
		t.Errorf("client body = %q", rec.Body.String())
	}
	if cw.buf.Len() != 10 {
		t.Errorf("captured = %d bytes, want 10", cw.buf.Len())
	}
	if cw.size != 25 {
		t.Errorf("size = %d, want 25", cw.size)
	}
	if cacheable(cw.status, cw.size, cw.limit) {
		t.Error("truncated capture must not be cacheable")
	}
}

func TestResponseCachePassthroughWithoutRedis(t *testing.T) {
	t.Parallel()

	mw := ResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/field-offices", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})(c)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Errorf("X-Cache set to %q without a cache backend", rec.Header().Get("X-Cache"))
	}
}
