package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/middleware"
	"github.com/funrun2025/registration-service/internal/model"
	"github.com/funrun2025/registration-service/internal/notify"
)

func notifCtx(e *echo.Echo, method, target, body, role string, officeID uint64) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxRole, role)
	c.Set(middleware.CtxFieldOfficeID, officeID)
	return c, rec
}

func TestNotificationEndpointsScopeByOffice(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	m.Handle(notify.Notification{ID: "all", Type: notify.TypeSystemAlert})
	m.Handle(notify.Notification{ID: "fo-5", Type: notify.TypeNewRegistration, FieldOffice: "5"})
	m.Handle(notify.Notification{ID: "fo-6", Type: notify.TypeNewRegistration, FieldOffice: "6"})
	h := NewNotificationHandler(m)
	e := echo.New()

	t.Run("field admin sees own office plus broadcasts", func(t *testing.T) {
		c, rec := notifCtx(e, http.MethodGet, "/v1/admin/notifications", "", model.RoleFieldAdmin, 5)
		if err := h.List(c); err != nil {
			t.Fatal(err)
		}
		var got []notify.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("entries = %d, want 2", len(got))
		}
		for _, n := range got {
			if n.ID == "fo-6" {
				t.Error("other office's notification leaked")
			}
		}
	})

	t.Run("main admin sees everything", func(t *testing.T) {
		c, rec := notifCtx(e, http.MethodGet, "/v1/admin/notifications", "", model.RoleMainAdmin, 1)
		if err := h.List(c); err != nil {
			t.Fatal(err)
		}
		var got []notify.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Errorf("entries = %d, want 3", len(got))
		}
	})

	t.Run("unread count matches filter", func(t *testing.T) {
		c, rec := notifCtx(e, http.MethodGet, "/v1/admin/notifications/unread-count", "", model.RoleFieldAdmin, 5)
		if err := h.UnreadCount(c); err != nil {
			t.Fatal(err)
		}
		var resp map[string]int
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp["unread"] != 2 {
			t.Errorf("unread = %d, want 2", resp["unread"])
		}
	})
}

func TestNotificationMarkRead(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	m.Handle(notify.Notification{ID: "one", Type: notify.TypeSystemAlert})
	m.Handle(notify.Notification{ID: "two", Type: notify.TypeSystemAlert})
	h := NewNotificationHandler(m)
	e := echo.New()

	c, rec := notifCtx(e, http.MethodPost, "/v1/admin/notifications/one/read", "", model.RoleMainAdmin, 1)
	c.SetParamNames("id")
	c.SetParamValues("one")
	if err := h.MarkRead(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := m.UnreadCount(""); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}

	c, rec = notifCtx(e, http.MethodPost, "/v1/admin/notifications/read-all", "", model.RoleMainAdmin, 1)
	if err := h.MarkAllRead(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := m.UnreadCount(""); got != 0 {
		t.Errorf("unread after read-all = %d, want 0", got)
	}
}

func TestNotificationBroadcast(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	h := NewNotificationHandler(m)
	e := echo.New()

	t.Run("valid", func(t *testing.T) {
		body := `{"title":"Heads up","message":"race moved to 6am"}`
		c, rec := notifCtx(e, http.MethodPost, "/v1/admin/notifications/broadcast", body, model.RoleMainAdmin, 1)
		if err := h.Broadcast(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		var n notify.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
			t.Fatal(err)
		}
		if n.ID == "" || n.Type != notify.TypeSystemAlert || n.Title != "Heads up" {
			t.Errorf("broadcast = %+v", n)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		c, rec := notifCtx(e, http.MethodPost, "/v1/admin/notifications/broadcast", `{"title":""}`, model.RoleMainAdmin, 1)
		if err := h.Broadcast(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
