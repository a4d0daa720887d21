package model

import (
	"regexp"
	"time"
)

// Registration statuses.  pending is the initial state; approved and
// rejected are terminal.  Re-opening a closed registration is modeled as
// delete + re-submit, never as a transition out of a terminal state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Registration record kinds, used by the shared transition and delete
// endpoints to select the target table.
const (
	TypeIndividual = "individual"
	TypeGroup      = "group"
)

// orNumberPattern matches an official receipt number: exactly 8 digits.
var orNumberPattern = regexp.MustCompile(`^\d{8}$`)

// ValidORNumber reports whether s is a well-formed OR number.
func ValidORNumber(s string) bool { return orNumberPattern.MatchString(s) }

// IndividualRegistration mirrors the `individual_registrations` table.
// ORNumber is set if and only if the status is approved.
type IndividualRegistration struct {
	ID            uint64    // individual_registrations.id
	FullName      string    // individual_registrations.full_name
	Age           int       // individual_registrations.age
	Gender        string    // individual_registrations.gender
	ContactNumber string    // individual_registrations.contact_number
	Email         string    // individual_registrations.email_address
	Address       string    // individual_registrations.address
	FieldOfficeID uint64    // individual_registrations.field_office_id
	ReceiptURL    *string   // individual_registrations.receipt_url (nullable)
	Status        string    // individual_registrations.status
	ORNumber      *string   // individual_registrations.or_number (nullable)
	SubmittedAt   time.Time // individual_registrations.submitted_at
}

// GroupRegistration mirrors the `group_registrations` table.  A group owns
// a set of GroupParticipant rows created in bulk from a parsed roster.
type GroupRegistration struct {
	ID            uint64    // group_registrations.id
	AgencyName    string    // group_registrations.agency_name
	ContactNumber string    // group_registrations.contact_number
	FieldOfficeID uint64    // group_registrations.field_office_id
	ExcelFileURL  *string   // group_registrations.excel_file_url (nullable)
	ReceiptURL    *string   // group_registrations.receipt_url (nullable)
	Status        string    // group_registrations.status
	ORNumber      *string   // group_registrations.or_number (nullable)
	SubmittedAt   time.Time // group_registrations.submitted_at
}

// GroupParticipant mirrors the `group_participants` table.  Participants
// are not approved independently: on parent approval every participant
// receives the parent's OR number.
type GroupParticipant struct {
	ID                  uint64  // group_participants.id
	GroupRegistrationID uint64  // group_participants.group_registration_id
	FullName            string  // group_participants.full_name
	Age                 int     // group_participants.age
	Gender              string  // group_participants.gender
	Email               string  // group_participants.email_address
	ORNumber            *string // group_participants.or_number (nullable)
}

// Participant is a merged master-list row covering both individual
// registrants and group participants.  Source tells the two apart.
type Participant struct {
	ID       uint64
	FullName string
	Age      int
	Gender   string
	Source   string // "individual" | "group"
	Status   string
	ORNumber *string
}

// StatusCounts aggregates per-status totals for one registration kind.
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// RegistrationStats is the cross-cutting aggregate served to dashboards.
type RegistrationStats struct {
	Individual StatusCounts `json:"individual"`
	Group      struct {
		StatusCounts
		Participants int `json:"participants"`
	} `json:"group"`
	Totals struct {
		Registrations int `json:"registrations"`
		Participants  int `json:"participants"`
		Pending       int `json:"pending"`
		Approved      int `json:"approved"`
		Rejected      int `json:"rejected"`
	} `json:"totals"`
}
