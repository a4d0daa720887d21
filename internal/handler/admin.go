package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/middleware"
	"github.com/funrun2025/registration-service/internal/model"
	"github.com/funrun2025/registration-service/internal/queue"
	"github.com/funrun2025/registration-service/internal/repository"
	"github.com/funrun2025/registration-service/internal/storage"
)

// AdminHandler serves the dashboard API: registration lists, the status
// state machine, deletes, stats, the participant master list, CSV export
// and stored-file retrieval.  Field admins are scoped to their office via
// middleware.OfficeScope; main admin and RD/ARD see all offices.
type AdminHandler struct {
	Regs      *repository.RegistrationRepo
	Files     *storage.FileStore
	Publisher *queue.Publisher
}

func NewAdminHandler(r *repository.RegistrationRepo, f *storage.FileStore, p *queue.Publisher) *AdminHandler {
	return &AdminHandler{Regs: r, Files: f, Publisher: p}
}

// ----- lists -----

// ListIndividual returns individual registrations for the session's scope.
func (h *AdminHandler) ListIndividual(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	regs, err := h.Regs.ListIndividual(ctx, middleware.OfficeScope(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, regs)
}

type groupWithParticipants struct {
	model.GroupRegistration
	ParticipantCount int                      `json:"participant_count"`
	Participants     []model.GroupParticipant `json:"participants"`
}

// ListGroup returns group registrations with their participants.
func (h *AdminHandler) ListGroup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	groups, err := h.Regs.ListGroup(ctx, middleware.OfficeScope(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]groupWithParticipants, 0, len(groups))
	for _, g := range groups {
		parts, err := h.Regs.GetGroupParticipants(ctx, g.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		out = append(out, groupWithParticipants{
			GroupRegistration: g,
			ParticipantCount:  len(parts),
			Participants:      parts,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// MasterList merges individual registrants and group participants.
func (h *AdminHandler) MasterList(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	parts, err := h.Regs.MasterList(ctx, middleware.OfficeScope(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, parts)
}

// Stats returns per-status aggregates for the session's scope.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Regs.Stats(ctx, middleware.OfficeScope(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

// ----- status state machine -----

type transitionReq struct {
	ID       uint64 `json:"id"`
	Type     string `json:"type"`   // individual | group
	Status   string `json:"status"` // approved | rejected
	ORNumber string `json:"or_number,omitempty"`
}

// Transition applies pending -> approved/rejected.  Approvals require an
// 8-digit OR number, which cascades onto group participants atomically.
func (h *AdminHandler) Transition(c echo.Context) error {
	var req transitionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Snapshot name/office/status before the write so the change-feed
	// event can describe the transition.
	name, officeID, prevStatus, err := h.recordSummary(ctx, req.ID, req.Type)
	if err != nil {
		return h.transitionError(c, err)
	}
	// Writes obey the same office scoping as reads: a field admin cannot
	// mutate another office's record by guessing its id.  Out-of-scope
	// records are indistinguishable from absent ones.
	if !inScope(c, officeID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}

	if err := h.Regs.Transition(ctx, req.ID, req.Type, req.Status, req.ORNumber); err != nil {
		return h.transitionError(c, err)
	}

	_ = h.Publisher.PublishChange(ctx, queue.ChangeEvent{
		Kind:             queue.KindStatusUpdated,
		RegistrationType: req.Type,
		RegistrationID:   req.ID,
		Name:             name,
		Status:           req.Status,
		PreviousStatus:   prevStatus,
		FieldOfficeID:    officeID,
		OccurredAt:       time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "status updated"})
}

// inScope reports whether the session may touch a record owned by
// officeID.  Main admin and RD/ARD have a nil scope and pass always.
func inScope(c echo.Context, officeID uint64) bool {
	scope := middleware.OfficeScope(c)
	return scope == nil || *scope == officeID
}

func (h *AdminHandler) recordSummary(ctx context.Context, id uint64, typ string) (name string, officeID uint64, status string, err error) {
	switch typ {
	case model.TypeIndividual:
		reg, e := h.Regs.GetIndividual(ctx, id)
		if e != nil {
			return "", 0, "", e
		}
		return reg.FullName, reg.FieldOfficeID, reg.Status, nil
	case model.TypeGroup:
		g, e := h.Regs.GetGroup(ctx, id)
		if e != nil {
			return "", 0, "", e
		}
		return g.AgencyName, g.FieldOfficeID, g.Status, nil
	default:
		return "", 0, "", repository.ErrInvalidTransition
	}
}

func (h *AdminHandler) transitionError(c echo.Context, err error) error {
	switch err {
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	case repository.ErrInvalidORNumber:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid OR number: must be exactly 8 digits"})
	case repository.ErrInvalidTransition:
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
}

// Reconcile re-applies the approval cascade wherever a participant's OR
// number drifted from its approved parent's.  Idempotent maintenance
// operation, main-admin only.
func (h *AdminHandler) Reconcile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	fixed, err := h.Regs.ReconcileGroupORNumbers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconcile failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"participants_fixed": fixed})
}

// ----- deletion -----

// Delete removes a registration.  Group deletes remove participants first
// inside one transaction, so no orphans survive.  Irreversible.
func (h *AdminHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	typ := c.QueryParam("type")
	if typ != model.TypeIndividual && typ != model.TypeGroup {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be individual or group"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Same scoping rule as transitions: look the record up first and treat
	// out-of-scope ids as absent.
	_, officeID, _, err := h.recordSummary(ctx, id, typ)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if !inScope(c, officeID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}

	switch typ {
	case model.TypeIndividual:
		err = h.Regs.DeleteIndividual(ctx, id)
	case model.TypeGroup:
		err = h.Regs.DeleteGroup(ctx, id)
	}
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- export -----

// Export streams the session-scoped result set as CSV.  type selects the
// data set: individual, group or participants.
func (h *AdminHandler) Export(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	kind := c.QueryParam("type")
	scope := middleware.OfficeScope(c)

	var header []string
	var rows [][]string
	switch kind {
	case model.TypeIndividual:
		regs, err := h.Regs.ListIndividual(ctx, scope)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		header = []string{"ID", "Full Name", "Age", "Gender", "Contact Number", "Email", "Address", "Status", "OR Number", "Submitted At"}
		for _, r := range regs {
			rows = append(rows, []string{
				strconv.FormatUint(r.ID, 10), r.FullName, strconv.Itoa(r.Age), r.Gender,
				r.ContactNumber, r.Email, r.Address, r.Status, deref(r.ORNumber),
				r.SubmittedAt.Format(time.RFC3339),
			})
		}
	case model.TypeGroup:
		groups, err := h.Regs.ListGroup(ctx, scope)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		header = []string{"ID", "Agency", "Contact Number", "Status", "OR Number", "Submitted At"}
		for _, g := range groups {
			rows = append(rows, []string{
				strconv.FormatUint(g.ID, 10), g.AgencyName, g.ContactNumber,
				g.Status, deref(g.ORNumber), g.SubmittedAt.Format(time.RFC3339),
			})
		}
	case "participants":
		parts, err := h.Regs.MasterList(ctx, scope)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		header = []string{"ID", "Full Name", "Age", "Gender", "Source", "Status", "OR Number"}
		for _, p := range parts {
			rows = append(rows, []string{
				strconv.FormatUint(p.ID, 10), p.FullName, strconv.Itoa(p.Age),
				p.Gender, p.Source, p.Status, deref(p.ORNumber),
			})
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be individual, group or participants"})
	}

	var sb strings.Builder
	// UTF-8 BOM so spreadsheet apps pick up the encoding.
	sb.WriteString("\uFEFF")
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err == nil {
		_ = w.WriteAll(rows)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}

	filename := fmt.Sprintf("registrations_%s_%s.csv", kind, time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(sb.String()))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// fileOfficeID extracts the owning office from a stored path.  Uploads are
// laid out as <bucket>/<kind>/<office id>/<name>, so the third segment
// identifies the office.
func fileOfficeID(rel string) (uint64, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) < 4 {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ServeFile streams a stored receipt or roster workbook back to the
// dashboard.  Field admins can only retrieve files owned by their office.
func (h *AdminHandler) ServeFile(c echo.Context) error {
	rel := c.Param("*")
	if scope := middleware.OfficeScope(c); scope != nil {
		id, ok := fileOfficeID(rel)
		if !ok || id != *scope {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
	}
	f, err := h.Files.Open(rel)
	if err != nil {
		if err == storage.ErrOutsideStore {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid path"})
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	}
	defer f.Close()
	return c.Stream(http.StatusOK, "application/octet-stream", f)
}
