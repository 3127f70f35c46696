package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("appointment: not found")
	ErrInvalidInput = errors.New("appointment: invalid input")
	ErrForbidden    = errors.New("appointment: forbidden")
)

// Status of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// ParseStatus validates an appointment status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(s))) {
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusNoShow:
		return StatusNoShow, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, s)
	}
}

// Kind of meeting.
type Kind string

const (
	KindConsultation Kind = "consultation"
	KindFollowUp     Kind = "follow_up"
	KindCourtDate    Kind = "court_date"
	KindSigning      Kind = "signing"
	KindOther        Kind = "other"
)

// ParseKind validates an appointment kind; empty defaults to consultation.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(strings.ToLower(s))) {
	case "":
		return KindConsultation, nil
	case KindConsultation:
		return KindConsultation, nil
	case KindFollowUp:
		return KindFollowUp, nil
	case KindCourtDate:
		return KindCourtDate, nil
	case KindSigning:
		return KindSigning, nil
	case KindOther:
		return KindOther, nil
	default:
		return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidInput, s)
	}
}

// Appointment is a scheduled meeting between a lawyer and a client,
// optionally tied to a case.
type Appointment struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	LawyerID  string    `json:"lawyer_id"`
	ClientID  string    `json:"client_id"`
	CaseID    string    `json:"case_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Involves reports whether the user is a party to the appointment.
func (a *Appointment) Involves(userID string) bool {
	return a.LawyerID == userID || a.ClientID == userID
}
