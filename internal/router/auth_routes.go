package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/funrun2025/registration-service/internal/config"
	"github.com/funrun2025/registration-service/internal/handler"
	"github.com/funrun2025/registration-service/internal/middleware"
)

// RegisterAuth registers the session endpoints.  Login is rate limited per
// client IP to blunt credential stuffing; logout and the identity echo are
// not.  /v1/me requires a valid session cookie (API mode, bare 401 on
// failure).
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rdb *redis.Client, sessionSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, middleware.FixedWindow(config.LoadLoginRateLimit(), rdb))
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.SessionAuth(sessionSecret, false))
}
