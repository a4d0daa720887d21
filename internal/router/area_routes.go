package router

import (
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/middleware"
)

// RegisterAreas wires the browser-facing dashboard shell.  The service
// hosts the built single-page app from webDir and gates the two areas with
// the session middleware in redirect mode: an unauthenticated browser is
// sent to the login page instead of seeing a bare 401, and signed-in users
// landing in the wrong area are bounced to their home.
func RegisterAreas(e *echo.Echo, sessionSecret, webDir string) {
	index := filepath.Join(webDir, "index.html")
	spa := func(c echo.Context) error { return c.File(index) }

	// The login page itself must stay reachable without a session, or the
	// redirect would loop.
	e.GET(middleware.LoginPath, spa)

	admin := e.Group("/admin",
		middleware.SessionAuth(sessionSecret, true),
		middleware.RequireAdminArea(),
	)
	admin.GET("", spa)
	admin.GET("/*", spa)

	monitor := e.Group("/monitor",
		middleware.SessionAuth(sessionSecret, true),
		middleware.RequireMonitorArea(),
	)
	monitor.GET("", spa)
	monitor.GET("/*", spa)

	// Static assets (JS bundles, styles) are public.
	e.Static("/assets", filepath.Join(webDir, "assets"))
}
