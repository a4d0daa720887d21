package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/funrun2025/registration-service/internal/config"
	"github.com/funrun2025/registration-service/internal/handler"
	"github.com/funrun2025/registration-service/internal/middleware"
)

// RegisterMonitor registers the read-only monitoring API under /v1/monitor
// for the RD/ARD role.  Any other role reaching these routes is redirected
// to the general admin area by the area policy.  The set is strictly
// read-only: no status changes, no deletes, no broadcasts.
//
// Monitor responses are never office-scoped, so the stats endpoint can sit
// behind the shared response cache.  The admin variant cannot: its payload
// depends on the session's office while the cache key does not.
func RegisterMonitor(e *echo.Echo, a *handler.AdminHandler, n *handler.NotificationHandler, rdb *redis.Client, sessionSecret string) {
	g := e.Group(
		"/v1/monitor",
		middleware.SessionAuth(sessionSecret, false),
		middleware.RequireMonitorArea(),
	)

	g.GET("/stats", a.Stats, middleware.ResponseCache(config.LoadCacheConfig(), rdb))
	g.GET("/registrations/individual", a.ListIndividual)
	g.GET("/registrations/group", a.ListGroup)
	g.GET("/registrations/participants", a.MasterList)
	g.GET("/export", a.Export)

	g.GET("/notifications", n.List)
	g.GET("/notifications/unread-count", n.UnreadCount)
}
