package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/config"
	"github.com/funrun2025/registration-service/internal/middleware"
	"github.com/funrun2025/registration-service/internal/repository"
	"github.com/funrun2025/registration-service/internal/utils"
)

// AuthHandler bundles dependencies for the login/logout endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Admins  *repository.AdminRepo
	Offices *repository.FieldOfficeRepo
}

func NewAuthHandler(cfg config.Config, a *repository.AdminRepo, o *repository.FieldOfficeRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Admins: a, Offices: o}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type officePart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type loginResp struct {
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	FieldOffice officePart `json:"field_office"`
}

// Login verifies credentials and sets the http-only session cookie.  The
// failure response never reveals whether the username or the password was
// wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Admins.GetByUsername(ctx, req.Username)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	office, err := h.Offices.GetByID(ctx, u.FieldOfficeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load field office failed"})
	}

	token, err := utils.NewSessionToken(h.Cfg.SessionSecret, u.Username, u.Role(), u.FieldOfficeID, h.Cfg.SessionTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    token.Token,
		Path:     "/",
		MaxAge:   h.Cfg.SessionTTLMin * 60,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusOK, loginResp{
		Name:        u.DisplayName,
		Role:        u.Role(),
		FieldOffice: officePart{ID: office.ID, Name: office.Name},
	})
}

// Logout clears the session cookie.  Idempotent: logging out without a
// session still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// Me returns the current session's identity for the dashboard shell.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"subject":         c.Get(middleware.CtxSubject),
		"role":            c.Get(middleware.CtxRole),
		"field_office_id": c.Get(middleware.CtxFieldOfficeID),
	})
}
