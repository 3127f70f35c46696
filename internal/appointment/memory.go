package appointment

import (
	"context"
	"sync"
	"time"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu    sync.RWMutex
	appts map[string]*Appointment
	order []string
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{appts: make(map[string]*Appointment)}
}

func cloneAppt(a *Appointment) *Appointment {
	cp := *a
	return &cp
}

func (s *InMemory) Create(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appts[a.ID] = cloneAppt(a)
	s.order = append(s.order, a.ID)
	return nil
}

func (s *InMemory) Find(_ context.Context, id string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAppt(a), nil
}

func matchesAppt(a *Appointment, f Filter) bool {
	if f.LawyerID != "" && a.LawyerID != f.LawyerID {
		return false
	}
	if f.ClientID != "" && a.ClientID != f.ClientID {
		return false
	}
	if f.CaseID != "" && a.CaseID != f.CaseID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && a.EndsAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !a.StartsAt.Before(f.To) {
		return false
	}
	return true
}

func (s *InMemory) List(_ context.Context, f Filter) ([]*Appointment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*Appointment
	for _, id := range s.order {
		a := s.appts[id]
		if matchesAppt(a, f) {
			all = append(all, a)
		}
	}
	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	out := make([]*Appointment, len(all))
	for i, a := range all {
		out[i] = cloneAppt(a)
	}
	return out, total, nil
}

func (s *InMemory) Update(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appts[a.ID]; !ok {
		return ErrNotFound
	}
	s.appts[a.ID] = cloneAppt(a)
	return nil
}

func (s *InMemory) Overlaps(_ context.Context, lawyerID string, from, to time.Time, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appts {
		if a.ID == excludeID || a.LawyerID != lawyerID || a.Status == StatusCancelled {
			continue
		}
		if a.StartsAt.Before(to) && from.Before(a.EndsAt) {
			return true, nil
		}
	}
	return false, nil
}
