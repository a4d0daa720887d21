package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/funrun2025/registration-service/internal/model"
	"github.com/funrun2025/registration-service/internal/queue"
	"github.com/funrun2025/registration-service/internal/repository"
	"github.com/funrun2025/registration-service/internal/roster"
	"github.com/funrun2025/registration-service/internal/storage"
)

// Upload limits are enforced server-side as well as in the form UI.
const (
	maxReceiptBytes = 5 << 20  // 5MB: PDF or raster image receipts
	maxRosterBytes  = 10 << 20 // 10MB: filled-in template workbooks
)

var receiptContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

var rosterContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":                                          true,
}

// PublicHandler serves the registrant-facing endpoints: field office list,
// template download, roster parsing and registration submission.
type PublicHandler struct {
	Offices   *repository.FieldOfficeRepo
	Regs      *repository.RegistrationRepo
	Files     *storage.FileStore
	Publisher *queue.Publisher
}

func NewPublicHandler(o *repository.FieldOfficeRepo, r *repository.RegistrationRepo, f *storage.FileStore, p *queue.Publisher) *PublicHandler {
	return &PublicHandler{Offices: o, Regs: r, Files: f, Publisher: p}
}

// ListFieldOffices returns the static office reference data for the
// registration forms.
func (h *PublicHandler) ListFieldOffices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	offices, err := h.Offices.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load field offices failed"})
	}
	return c.JSON(http.StatusOK, offices)
}

// DownloadTemplate streams a generated roster template workbook for the
// requested field office.
func (h *PublicHandler) DownloadTemplate(c echo.Context) error {
	code := c.QueryParam("field_office")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field_office query param required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	office, err := h.Offices.GetByCode(ctx, code)
	if err != nil {
		if err == repository.ErrOfficeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown field office"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load field office failed"})
	}

	buf, err := roster.Generate(office.Name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate template failed"})
	}

	filename := fmt.Sprintf("Funrun_Group_Registration_Template_%s.xlsx",
		strings.ReplaceAll(office.Name, " ", "_"))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

// ParseRoster accepts an uploaded template workbook and returns the parsed
// roster, or a validation error specific enough to fix the sheet.  This is
// the preview step before group submission.
func (h *PublicHandler) ParseRoster(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "spreadsheet file required"})
	}
	if err := checkUpload(fh, maxRosterBytes, rosterContentTypes); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read upload failed"})
	}
	defer f.Close()

	tpl, err := roster.Parse(f)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, tpl)
}

// SubmitIndividual accepts the individual registration form (multipart,
// optional receipt file) and writes a pending record.
func (h *PublicHandler) SubmitIndividual(c echo.Context) error {
	reg := model.IndividualRegistration{
		FullName:      strings.TrimSpace(c.FormValue("full_name")),
		Gender:        strings.TrimSpace(c.FormValue("gender")),
		ContactNumber: strings.TrimSpace(c.FormValue("contact_number")),
		Email:         strings.TrimSpace(c.FormValue("email")),
		Address:       strings.TrimSpace(c.FormValue("address")),
	}
	age, err := strconv.Atoi(strings.TrimSpace(c.FormValue("age")))
	if err != nil || age <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid age required"})
	}
	reg.Age = age
	if reg.FullName == "" || reg.Gender == "" || reg.ContactNumber == "" || reg.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	office, err := h.Offices.GetByCode(ctx, c.FormValue("field_office_code"))
	if err != nil {
		if err == repository.ErrOfficeNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field office"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load field office failed"})
	}
	reg.FieldOfficeID = office.ID

	if fh, err := c.FormFile("receipt"); err == nil {
		url, err := h.saveUpload(fh, storage.BucketReceipts,
			fmt.Sprintf("individual/%d", office.ID), maxReceiptBytes, receiptContentTypes)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		reg.ReceiptURL = &url
	}

	id, err := h.Regs.CreateIndividual(ctx, reg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// The change feed drives admin notifications; a publish failure only
	// degrades the bell, the registration itself is already stored.
	_ = h.Publisher.PublishChange(ctx, queue.ChangeEvent{
		Kind:             queue.KindRegistrationCreated,
		RegistrationType: model.TypeIndividual,
		RegistrationID:   id,
		Name:             reg.FullName,
		Status:           model.StatusPending,
		FieldOfficeID:    office.ID,
		OccurredAt:       time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "registration submitted"})
}

// SubmitGroup accepts a previously parsed roster (echoed back as JSON in
// the multipart form) plus the original workbook and receipt files, and
// writes the group with its participants in one transaction.
func (h *PublicHandler) SubmitGroup(c echo.Context) error {
	rosterJSON := c.FormValue("roster")
	if rosterJSON == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roster required"})
	}
	var tpl roster.Template
	if err := json.Unmarshal([]byte(rosterJSON), &tpl); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid roster payload"})
	}
	if tpl.OrganizationName == "" || tpl.ContactNumber == "" || len(tpl.Participants) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roster is incomplete"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	office, err := h.Offices.GetByCode(ctx, c.FormValue("field_office_code"))
	if err != nil {
		if err == repository.ErrOfficeNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field office"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load field office failed"})
	}

	g := model.GroupRegistration{
		AgencyName:    tpl.OrganizationName,
		ContactNumber: tpl.ContactNumber,
		FieldOfficeID: office.ID,
	}
	if fh, err := c.FormFile("excel"); err == nil {
		url, err := h.saveUpload(fh, storage.BucketRosters,
			fmt.Sprintf("group/%d", office.ID), maxRosterBytes, rosterContentTypes)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		g.ExcelFileURL = &url
	}
	if fh, err := c.FormFile("receipt"); err == nil {
		url, err := h.saveUpload(fh, storage.BucketReceipts,
			fmt.Sprintf("group/%d", office.ID), maxReceiptBytes, receiptContentTypes)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		g.ReceiptURL = &url
	}

	participants := make([]model.GroupParticipant, 0, len(tpl.Participants))
	for _, p := range tpl.Participants {
		participants = append(participants, model.GroupParticipant{
			FullName: p.FullName,
			Age:      p.Age,
			Gender:   p.Gender,
			Email:    p.Email,
		})
	}

	id, err := h.Regs.CreateGroup(ctx, g, participants)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "group registration failed"})
	}

	_ = h.Publisher.PublishChange(ctx, queue.ChangeEvent{
		Kind:             queue.KindRegistrationCreated,
		RegistrationType: model.TypeGroup,
		RegistrationID:   id,
		Name:             g.AgencyName,
		Status:           model.StatusPending,
		FieldOfficeID:    office.ID,
		OccurredAt:       time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":           id,
		"participants": len(participants),
		"message":      "group registration submitted",
	})
}

// saveUpload validates and persists one multipart file, returning the
// stored relative path.
func (h *PublicHandler) saveUpload(fh *multipart.FileHeader, bucket, dir string, maxBytes int64, types map[string]bool) (string, error) {
	if err := checkUpload(fh, maxBytes, types); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("read upload failed")
	}
	defer f.Close()
	return h.Files.Save(bucket, dir, fh.Filename, f)
}

func checkUpload(fh *multipart.FileHeader, maxBytes int64, types map[string]bool) error {
	if fh.Size > maxBytes {
		return fmt.Errorf("file too large (max %dMB)", maxBytes>>20)
	}
	ct := fh.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if !types[strings.TrimSpace(strings.ToLower(ct))] {
		return fmt.Errorf("unsupported file type %q", ct)
	}
	return nil
}
