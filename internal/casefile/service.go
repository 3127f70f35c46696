package casefile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legalflow/internal/auth"
	"legalflow/internal/ids"
)

// Service implements case operations. Staff (admin, lawyer, secretary)
// manage cases; clients only read their own.
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

// NewService constructs the case service.
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

func isStaff(role auth.Role) bool {
	return role == auth.RoleAdmin || role == auth.RoleLawyer || role == auth.RoleSecretary
}

// CreateInput carries new-case fields.
type CreateInput struct {
	Title       string
	ClientID    string
	LawyerIDs   []string
	Description string
	Priority    string
	Category    string
}

// Create opens a new case with a generated monthly reference.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*Case, error) {
	if !isStaff(actor.Role) {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	seq, err := s.store.NextReference(ctx, now.Format("0601"))
	if err != nil {
		return nil, err
	}
	c := &Case{
		ID:          ids.New(),
		Title:       title,
		Reference:   FormatReference(now, seq),
		ClientID:    clientID,
		LawyerIDs:   in.LawyerIDs,
		Description: strings.TrimSpace(in.Description),
		Status:      StatusNew,
		Priority:    priority,
		Category:    category,
		StartDate:   now,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a case the actor may read.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*Case, error) {
	c, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(actor, c) {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *Service) canRead(actor auth.Principal, c *Case) bool {
	switch actor.Role {
	case auth.RoleAdmin, auth.RoleSecretary:
		return true
	case auth.RoleLawyer:
		return c.AssignedTo(actor.UserID) || c.CreatedBy == actor.UserID
	case auth.RoleClient:
		return c.ClientID == actor.UserID
	default:
		return false
	}
}

// List returns cases visible to the actor.
func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter) ([]*Case, int, error) {
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

// UpdateInput carries optional case changes; nil fields stay untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Category    *string
	LawyerIDs   []string
}

// Update mutates a case. Staff only; closing stamps ClosedDate once.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in UpdateInput) (*Case, error) {
	if !isStaff(actor.Role) {
		return nil, ErrForbidden
	}
	c, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleLawyer && !s.canRead(actor, c) {
		return nil, ErrForbidden
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		c.Title = title
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
		}
		c.Category = category
	}
	if in.Priority != nil {
		priority, err := ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		c.Priority = priority
	}
	if in.Status != nil {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		if status == StatusClosed && c.Status != StatusClosed {
			when := s.now().UTC()
			c.ClosedDate = &when
		}
		c.Status = status
	}
	if in.LawyerIDs != nil {
		c.LawyerIDs = in.LawyerIDs
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddNote appends an annotation authored by the actor.
func (s *Service) AddNote(ctx context.Context, actor auth.Principal, id, content string) (*Case, error) {
	if !isStaff(actor.Role) {
		return nil, ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: note content is required", ErrInvalidInput)
	}
	c, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleLawyer && !s.canRead(actor, c) {
		return nil, ErrForbidden
	}
	return s.store.AddNote(ctx, id, Note{
		Content:   content,
		CreatedBy: actor.UserID,
		CreatedAt: s.now().UTC(),
	})
}

// AddDeadline attaches a dated task to the case.
func (s *Service) AddDeadline(ctx context.Context, actor auth.Principal, id, title string, date time.Time) (*Case, error) {
	if !isStaff(actor.Role) {
		return nil, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: deadline title is required", ErrInvalidInput)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: deadline date is required", ErrInvalidInput)
	}
	c, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleLawyer && !s.canRead(actor, c) {
		return nil, ErrForbidden
	}
	return s.store.AddDeadline(ctx, id, Deadline{Title: title, Date: date.UTC()})
}
