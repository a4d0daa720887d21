package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/funrun2025/registration-service/internal/roster"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// filledRoster builds a minimal valid template workbook in memory.
func filledRoster(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Organization Info"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Participants"); err != nil {
		t.Fatal(err)
	}
	org := [][]interface{}{
		{"Organization Name:", "Test Org"},
		{"Contact Number:", "09170000000"},
	}
	parts := [][]interface{}{
		{"Full Name", "Age", "Gender", "Email Address"},
		{"Ana Santos", 23, "Female", "ana@example.org"},
	}
	for i, row := range org {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Organization Info", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	for i, row := range parts {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Participants", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func TestParseRosterEndpoint(t *testing.T) {
	t.Parallel()

	h := &PublicHandler{}
	e := echo.New()

	t.Run("valid workbook", func(t *testing.T) {
		t.Parallel()
		body, ct := multipartUpload(t, "file", "roster.xlsx", xlsxMIME, filledRoster(t))
		req := httptest.NewRequest(http.MethodPost, "/v1/registrations/parse-roster", body)
		req.Header.Set(echo.HeaderContentType, ct)
		rec := httptest.NewRecorder()
		if err := h.ParseRoster(e.NewContext(req, rec)); err != nil {
			t.Fatalf("ParseRoster: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var tpl roster.Template
		if err := json.Unmarshal(rec.Body.Bytes(), &tpl); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if tpl.OrganizationName != "Test Org" || len(tpl.Participants) != 1 {
			t.Errorf("parsed = %+v", tpl)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		body, ct := multipartUpload(t, "other", "x.xlsx", xlsxMIME, []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/v1/registrations/parse-roster", body)
		req.Header.Set(echo.HeaderContentType, ct)
		rec := httptest.NewRecorder()
		_ = h.ParseRoster(e.NewContext(req, rec))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()
		body, ct := multipartUpload(t, "file", "roster.txt", "text/plain", []byte("nope"))
		req := httptest.NewRequest(http.MethodPost, "/v1/registrations/parse-roster", body)
		req.Header.Set(echo.HeaderContentType, ct)
		rec := httptest.NewRecorder()
		_ = h.ParseRoster(e.NewContext(req, rec))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		t.Parallel()
		body, ct := multipartUpload(t, "file", "roster.xlsx", xlsxMIME, []byte("not a zip"))
		req := httptest.NewRequest(http.MethodPost, "/v1/registrations/parse-roster", body)
		req.Header.Set(echo.HeaderContentType, ct)
		rec := httptest.NewRecorder()
		_ = h.ParseRoster(e.NewContext(req, rec))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestSubmitIndividualRejectsBadAge(t *testing.T) {
	t.Parallel()

	h := &PublicHandler{}
	e := echo.New()

	// Age and required-field validation happen before any storage access,
	// so a handler without dependencies exercises them fully.
	submit := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/registrations/individual",
			strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		if err := h.SubmitIndividual(e.NewContext(req, rec)); err != nil {
			t.Fatalf("SubmitIndividual: %v", err)
		}
		return rec
	}

	for _, age := range []string{"", "abc", "12abc", "-3", "0", "12.5"} {
		form := url.Values{"age": {age}, "full_name": {"Ana"}, "gender": {"Female"},
			"contact_number": {"0917"}, "email": {"ana@example.org"}}
		if rec := submit(form); rec.Code != http.StatusBadRequest {
			t.Errorf("age %q: status = %d, want 400", age, rec.Code)
		}
	}

	// A well-formed age with missing required fields still stops at 400.
	form := url.Values{"age": {"21"}}
	if rec := submit(form); rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", rec.Code)
	}
}

func TestCheckUpload(t *testing.T) {
	t.Parallel()

	fh := func(size int64, ct string) *multipart.FileHeader {
		h := &multipart.FileHeader{Filename: "f", Size: size}
		h.Header = textproto.MIMEHeader{}
		h.Header.Set("Content-Type", ct)
		return h
	}

	if err := checkUpload(fh(100, "application/pdf"), maxReceiptBytes, receiptContentTypes); err != nil {
		t.Errorf("pdf receipt rejected: %v", err)
	}
	if err := checkUpload(fh(100, "Image/PNG; charset=binary"), maxReceiptBytes, receiptContentTypes); err != nil {
		t.Errorf("case/parameter handling failed: %v", err)
	}
	if err := checkUpload(fh(maxReceiptBytes+1, "application/pdf"), maxReceiptBytes, receiptContentTypes); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("oversized file: err = %v", err)
	}
	if err := checkUpload(fh(100, "application/x-msdownload"), maxReceiptBytes, receiptContentTypes); err == nil {
		t.Error("executable content type accepted")
	}
}
