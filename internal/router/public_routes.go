package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/funrun2025/registration-service/internal/config"
	"github.com/funrun2025/registration-service/internal/handler"
	"github.com/funrun2025/registration-service/internal/middleware"
)

// RegisterPublic registers the registrant-facing endpoints: field office
// reference data, the roster template workflow and the two submission
// forms.  No session is required; the submission endpoints carry the
// fixed-window rate limiter so one client cannot flood the queue.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, rdb *redis.Client) {
	// Reference data changes rarely, so responses are served from the
	// Redis-backed cache when available.
	cached := middleware.ResponseCache(config.LoadCacheConfig(), rdb)
	e.GET("/v1/field-offices", p.ListFieldOffices, cached)

	// Template workflow: download a per-office workbook, then upload the
	// filled copy for parsing before the real submission.
	e.GET("/v1/registrations/template", p.DownloadTemplate)
	e.POST("/v1/registrations/parse-roster", p.ParseRoster)

	limited := middleware.FixedWindow(config.LoadSubmitRateLimit(), rdb)
	e.POST("/v1/registrations/individual", p.SubmitIndividual, limited)
	e.POST("/v1/registrations/group", p.SubmitGroup, limited)
}
