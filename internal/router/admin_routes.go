package router

import (
	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/handler"
	"github.com/funrun2025/registration-service/internal/middleware"
	"github.com/funrun2025/registration-service/internal/model"
)

// RegisterAdmin registers the dashboard API under /v1/admin.  Every route
// requires a valid session (API mode: bare 401, no redirect) and the
// general-admin area policy, which bounces the read-only RD/ARD role to the
// monitoring area.  Field admins are further scoped to their own office
// inside the handlers.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, n *handler.NotificationHandler, sessionSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.SessionAuth(sessionSecret, false),
		middleware.RequireAdminArea(),
	)

	// ---- Registrations ----
	g.GET("/registrations/individual", a.ListIndividual)
	g.GET("/registrations/group", a.ListGroup)
	g.GET("/registrations/participants", a.MasterList)
	g.PATCH("/registrations/status", a.Transition)
	g.DELETE("/registrations/:id", a.Delete)

	// ---- Aggregates and exports ----
	g.GET("/stats", a.Stats)
	g.GET("/export", a.Export)
	g.GET("/files/*", a.ServeFile)

	// ---- Notifications ----
	g.GET("/notifications", n.List)
	g.GET("/notifications/unread-count", n.UnreadCount)
	g.POST("/notifications/:id/read", n.MarkRead)
	g.POST("/notifications/read-all", n.MarkAllRead)

	// ---- Main-admin-only maintenance ----
	main := g.Group("", middleware.RequireRole(model.RoleMainAdmin))
	main.POST("/notifications/broadcast", n.Broadcast)
	main.POST("/registrations/reconcile-or-numbers", a.Reconcile)
}
