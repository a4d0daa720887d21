package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/middleware"
	"github.com/funrun2025/registration-service/internal/notify"
)

// NotificationHandler exposes the in-memory notification feed to the
// dashboard bell.  Field admins only see notifications tagged with their
// office (or untagged broadcasts); everyone else sees the full feed.
type NotificationHandler struct {
	Manager *notify.Manager
}

func NewNotificationHandler(m *notify.Manager) *NotificationHandler {
	return &NotificationHandler{Manager: m}
}

// sessionOfficeTag converts the session's office scope into the tag format
// carried on notifications.  Empty means unfiltered.
func sessionOfficeTag(c echo.Context) string {
	if id := middleware.OfficeScope(c); id != nil {
		return strconv.FormatUint(*id, 10)
	}
	return ""
}

// List returns the notification history, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Manager.Notifications(sessionOfficeTag(c)))
}

// UnreadCount returns the badge number for the bell icon.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"unread": h.Manager.UnreadCount(sessionOfficeTag(c))})
}

// MarkRead marks one notification as read.  Unknown ids are a no-op so
// repeated clicks stay harmless.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id required"})
	}
	h.Manager.MarkAsRead(id)
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead clears the badge for the session's scope.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	h.Manager.MarkAllAsRead(sessionOfficeTag(c))
	return c.NoContent(http.StatusNoContent)
}

type broadcastReq struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	FieldOffice string `json:"field_office,omitempty"`
}

// Broadcast publishes a system alert through the change feed so every
// connected dashboard receives it.  Main-admin only (enforced in routing).
func (h *NotificationHandler) Broadcast(c echo.Context) error {
	var req broadcastReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and message required"})
	}
	n := h.Manager.Broadcast(notify.TypeSystemAlert, req.Title, req.Message, req.FieldOffice)
	return c.JSON(http.StatusCreated, n)
}
