package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legalflow/internal/auth"
	"legalflow/internal/ids"
)

// Service implements scheduling operations. A lawyer's calendar rejects
// overlapping bookings; status moves scheduled -> confirmed -> completed
// with cancelled and no_show as terminal branches.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the appointment service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries new-appointment fields.
type CreateInput struct {
	Title    string
	LawyerID string
	ClientID string
	CaseID   string
	Kind     string
	StartsAt time.Time
	EndsAt   time.Time
	Location string
	Notes    string
}

// Create books an appointment. Clients may only book themselves; staff
// may book on behalf of any client.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*Appointment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	lawyerID := strings.TrimSpace(in.LawyerID)
	clientID := strings.TrimSpace(in.ClientID)
	if lawyerID == "" || clientID == "" {
		return nil, fmt.Errorf("%w: lawyer and client are required", ErrInvalidInput)
	}
	if actor.Role == auth.RoleClient && clientID != actor.UserID {
		return nil, ErrForbidden
	}
	if actor.Role == auth.RoleLawyer && lawyerID != actor.UserID {
		return nil, ErrForbidden
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return nil, fmt.Errorf("%w: start and end times are required", ErrInvalidInput)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	now := s.now().UTC()
	if in.StartsAt.Before(now) {
		return nil, fmt.Errorf("%w: start is in the past", ErrInvalidInput)
	}
	busy, err := s.store.Overlaps(ctx, lawyerID, in.StartsAt, in.EndsAt, "")
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("%w: lawyer already booked for that slot", ErrInvalidInput)
	}

	a := &Appointment{
		ID:        ids.New(),
		Title:     title,
		LawyerID:  lawyerID,
		ClientID:  clientID,
		CaseID:    strings.TrimSpace(in.CaseID),
		Kind:      kind,
		Status:    StatusScheduled,
		StartsAt:  in.StartsAt.UTC(),
		EndsAt:    in.EndsAt.UTC(),
		Location:  strings.TrimSpace(in.Location),
		Notes:     strings.TrimSpace(in.Notes),
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns an appointment the actor may see.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*Appointment, error) {
	a, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, a) {
		return nil, ErrForbidden
	}
	return a, nil
}

func canSee(actor auth.Principal, a *Appointment) bool {
	switch actor.Role {
	case auth.RoleAdmin, auth.RoleSecretary:
		return true
	default:
		return a.Involves(actor.UserID)
	}
}

// List returns appointments visible to the actor.
func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter) ([]*Appointment, int, error) {
	switch actor.Role {
	case auth.RoleAdmin, auth.RoleSecretary:
		// No implicit restriction.
	case auth.RoleLawyer:
		f.LawyerID = actor.UserID
	case auth.RoleClient:
		f.ClientID = actor.UserID
	default:
		return nil, 0, ErrForbidden
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

// Reschedule moves a scheduled or confirmed appointment to a new slot.
func (s *Service) Reschedule(ctx context.Context, actor auth.Principal, id string, startsAt, endsAt time.Time) (*Appointment, error) {
	a, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, a) {
		return nil, ErrForbidden
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidInput, a.Status)
	}
	if !endsAt.After(startsAt) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	busy, err := s.store.Overlaps(ctx, a.LawyerID, startsAt, endsAt, a.ID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("%w: lawyer already booked for that slot", ErrInvalidInput)
	}
	a.StartsAt = startsAt.UTC()
	a.EndsAt = endsAt.UTC()
	a.Status = StatusScheduled
	a.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetStatus transitions an appointment. Confirmation is reserved for the
// lawyer or staff; either party may cancel.
func (s *Service) SetStatus(ctx context.Context, actor auth.Principal, id string, status Status) (*Appointment, error) {
	a, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, a) {
		return nil, ErrForbidden
	}
	staff := actor.Role == auth.RoleAdmin || actor.Role == auth.RoleSecretary
	switch status {
	case StatusConfirmed:
		if a.Status != StatusScheduled {
			return nil, fmt.Errorf("%w: cannot confirm a %s appointment", ErrInvalidInput, a.Status)
		}
		if !staff && actor.UserID != a.LawyerID {
			return nil, ErrForbidden
		}
	case StatusCancelled:
		if a.Status == StatusCompleted || a.Status == StatusCancelled {
			return nil, fmt.Errorf("%w: cannot cancel a %s appointment", ErrInvalidInput, a.Status)
		}
	case StatusCompleted, StatusNoShow:
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			return nil, fmt.Errorf("%w: cannot mark a %s appointment %s", ErrInvalidInput, a.Status, status)
		}
		if !staff && actor.UserID != a.LawyerID {
			return nil, ErrForbidden
		}
	default:
		return nil, fmt.Errorf("%w: unsupported transition to %q", ErrInvalidInput, status)
	}
	a.Status = status
	a.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
