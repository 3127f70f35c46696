package appointment

import (
	"context"
	"time"
)

// Filter narrows List results.
type Filter struct {
	LawyerID string
	ClientID string
	CaseID   string
	Status   Status
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Store describes persistence for appointments.
type Store interface {
	Create(ctx context.Context, a *Appointment) error
	Find(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]*Appointment, int, error)
	Update(ctx context.Context, a *Appointment) error
	// Overlaps reports whether the lawyer has a non-cancelled appointment
	// intersecting [from, to), excluding excludeID.
	Overlaps(ctx context.Context, lawyerID string, from, to time.Time, excludeID string) (bool, error)
}
