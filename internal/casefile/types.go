package casefile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("casefile: not found")
	ErrInvalidInput = errors.New("casefile: invalid input")
	ErrForbidden    = errors.New("casefile: forbidden")
)

// Status of a case through its lifecycle.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
	StatusClosed     Status = "closed"
	StatusArchived   Status = "archived"
)

// ParseStatus validates a case status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(s))) {
	case StatusNew:
		return StatusNew, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusPending:
		return StatusPending, nil
	case StatusClosed:
		return StatusClosed, nil
	case StatusArchived:
		return StatusArchived, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, s)
	}
}

// Priority of a case.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority string; empty defaults to normal.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.TrimSpace(strings.ToLower(s))) {
	case "":
		return PriorityNormal, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityNormal:
		return PriorityNormal, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityUrgent:
		return PriorityUrgent, nil
	default:
		return "", fmt.Errorf("%w: unsupported priority %q", ErrInvalidInput, s)
	}
}

// Deadline is a dated task attached to a case.
type Deadline struct {
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// Note is a free-form annotation on a case.
type Note struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Case is a legal matter handled for a client by one or more lawyers.
// Reference follows the YYMM-NNNN pattern, sequential within the month.
type Case struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Reference   string     `json:"reference"`
	ClientID    string     `json:"client_id"`
	LawyerIDs   []string   `json:"lawyer_ids,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category"`
	Deadlines   []Deadline `json:"deadlines,omitempty"`
	Notes       []Note     `json:"notes,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	ClosedDate  *time.Time `json:"closed_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AssignedTo reports whether the lawyer works this case.
func (c *Case) AssignedTo(lawyerID string) bool {
	for _, id := range c.LawyerIDs {
		if id == lawyerID {
			return true
		}
	}
	return false
}

// FormatReference renders the case reference for a month and sequence.
func FormatReference(when time.Time, seq int) string {
	return fmt.Sprintf("%02d%02d-%04d", when.Year()%100, int(when.Month()), seq)
}
