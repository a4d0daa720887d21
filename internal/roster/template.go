// Package roster implements the group-registration template codec: it
// generates the downloadable spreadsheet organizations fill in, and parses
// the filled-in upload back into a structured roster.
package roster

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names inside the template workbook.  Parsing locates sheets by
// these exact names.
const (
	orgSheetName          = "Organization Info"
	participantsSheetName = "Participants"
)

// Example rows shipped with the template.  Filled-in uploads that still
// contain them are silently dropped during parsing.
var exampleNames = map[string]bool{
	"John Doe":   true,
	"Jane Smith": true,
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Participant is one valid row of the participants sheet with gender
// normalized to "Male"/"Female".
type Participant struct {
	FullName string `json:"full_name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Email    string `json:"email"`
}

// Template is the parsed roster: organization info plus the participant
// list.  It is transient: consumed immediately to build a group
// registration and never persisted.
type Template struct {
	OrganizationName string        `json:"organization_name"`
	ContactPerson    string        `json:"contact_person"`
	ContactNumber    string        `json:"contact_number"`
	ContactEmail     string        `json:"contact_email"`
	Participants     []Participant `json:"participants"`
}

// Generate produces the downloadable template workbook for one field
// office: an organization-info sheet with labeled prompt rows and a
// participants sheet with the expected header and two example rows.
func Generate(fieldOfficeName string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", orgSheetName); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(participantsSheetName); err != nil {
		return nil, err
	}

	orgRows := [][]interface{}{
		{"FUNRUN REGISTRATION - GROUP TEMPLATE"},
		{},
		{"Field Office:", fieldOfficeName},
		{},
		{"ORGANIZATION INFORMATION"},
		{"Organization Name:", ""},
		{"Contact Person:", ""},
		{"Contact Number:", ""},
		{"Contact Email:", ""},
		{},
		{"INSTRUCTIONS:"},
		{"1. Fill in the organization information above"},
		{`2. Go to the "Participants" sheet to add participant details`},
		{"3. Save the file and upload it back to the system"},
		{"4. Make sure all required fields are filled"},
	}
	if err := writeRows(f, orgSheetName, orgRows); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(orgSheetName, "A", "A", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(orgSheetName, "B", "B", 30); err != nil {
		return nil, err
	}

	participantRows := [][]interface{}{
		{"PARTICIPANT LIST"},
		{},
		{"Full Name", "Age", "Gender", "Email Address"},
		{"John Doe", 25, "Male", "john@example.com"},
		{"Jane Smith", 30, "Female", "jane@example.com"},
	}
	if err := writeRows(f, participantsSheetName, participantRows); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(participantsSheetName, "A", "A", 25); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(participantsSheetName, "B", "C", 15); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(participantsSheetName, "D", "D", 30); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads an uploaded template workbook and assembles the roster, or
// fails with an error specific enough to guide correction.
//
// Validation is layered: rows missing a name, positive age, gender or email
// are skipped (as are the shipped example rows); rows with an unrecognized
// gender are logged and skipped; rows with a malformed email fail the
// whole parse as a batch, listing every offender.  The parse also fails
// when the organization name or contact number is absent or no valid
// participants remain.
func Parse(r io.Reader) (*Template, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	tpl := &Template{}
	if err := parseOrganization(f, tpl); err != nil {
		return nil, err
	}
	if err := parseParticipants(f, tpl); err != nil {
		return nil, err
	}

	if tpl.OrganizationName == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	if tpl.ContactNumber == "" {
		return nil, fmt.Errorf("contact number is required")
	}
	if len(tpl.Participants) == 0 {
		return nil, fmt.Errorf("at least one participant is required")
	}
	return tpl, nil
}

// parseOrganization extracts the labeled organization rows.  Labels are
// matched case-insensitively by substring, so minor formatting changes to
// the template do not break uploads.
func parseOrganization(f *excelize.File, tpl *Template) error {
	rows, err := f.GetRows(orgSheetName)
	if err != nil {
		return fmt.Errorf("%s sheet not found", orgSheetName)
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(coerceString(row[0]))
		value := coerceString(row[1])
		if key == "" || value == "" {
			continue
		}
		switch {
		case strings.Contains(key, "organization name"):
			tpl.OrganizationName = value
		case strings.Contains(key, "contact person"):
			tpl.ContactPerson = value
		case strings.Contains(key, "contact number"):
			tpl.ContactNumber = value
		case strings.Contains(key, "contact email"):
			tpl.ContactEmail = value
		}
	}
	return nil
}

func parseParticipants(f *excelize.File, tpl *Template) error {
	rows, err := f.GetRows(participantsSheetName)
	if err != nil {
		return fmt.Errorf("%s sheet not found", participantsSheetName)
	}

	// Locate the header row: the first row whose first four cells loosely
	// match the expected labels.  First match wins.
	headerIdx := -1
	for i, row := range rows {
		if len(row) < 4 {
			continue
		}
		c1 := strings.ToLower(coerceString(row[0]))
		c2 := strings.ToLower(coerceString(row[1]))
		c3 := strings.ToLower(coerceString(row[2]))
		c4 := strings.ToLower(coerceString(row[3]))
		if strings.Contains(c1, "full name") && strings.Contains(c2, "age") &&
			strings.Contains(c3, "gender") && strings.Contains(c4, "email") {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return fmt.Errorf("participant header row not found; the %s sheet must have columns: Full Name, Age, Gender, Email Address", participantsSheetName)
	}

	var invalidEmails []string
	for _, row := range rows[headerIdx+1:] {
		if len(row) < 4 {
			continue
		}
		fullName := coerceString(row[0])
		age, ageErr := coerceAge(row[1])
		if ageErr != nil {
			age = 0
		}
		gender := coerceString(row[2])
		email := coerceString(row[3])

		// Skip empty rows and the shipped example rows.
		if fullName == "" || exampleNames[fullName] || age <= 0 || gender == "" || email == "" {
			continue
		}

		if !emailPattern.MatchString(email) {
			invalidEmails = append(invalidEmails, fmt.Sprintf("%s (%s)", fullName, email))
			continue
		}

		switch strings.ToLower(gender) {
		case "male", "m":
			tpl.Participants = append(tpl.Participants, Participant{FullName: fullName, Age: age, Gender: "Male", Email: email})
		case "female", "f":
			tpl.Participants = append(tpl.Participants, Participant{FullName: fullName, Age: age, Gender: "Female", Email: email})
		default:
			log.Printf("roster: invalid gender %q for participant %q, skipping row", gender, fullName)
		}
	}

	// Email validation is all-or-nothing: one malformed address fails the
	// entire upload so the organization fixes the sheet instead of silently
	// losing people.
	if len(invalidEmails) > 0 {
		return fmt.Errorf("invalid email addresses found: %s", strings.Join(invalidEmails, ", "))
	}
	return nil
}

// ParseBytes is a convenience wrapper over Parse for in-memory uploads.
func ParseBytes(b []byte) (*Template, error) {
	return Parse(bytes.NewReader(b))
}
