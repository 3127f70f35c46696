package casefile

import (
	"context"
	"sync"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	cases    map[string]*Case
	order    []string
	counters map[string]int
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		cases:    make(map[string]*Case),
		counters: make(map[string]int),
	}
}

func cloneCase(c *Case) *Case {
	cp := *c
	if c.LawyerIDs != nil {
		cp.LawyerIDs = append([]string(nil), c.LawyerIDs...)
	}
	if c.Deadlines != nil {
		cp.Deadlines = append([]Deadline(nil), c.Deadlines...)
	}
	if c.Notes != nil {
		cp.Notes = append([]Note(nil), c.Notes...)
	}
	if c.ClosedDate != nil {
		closed := *c.ClosedDate
		cp.ClosedDate = &closed
	}
	return &cp
}

func (s *InMemory) Create(_ context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = cloneCase(c)
	s.order = append(s.order, c.ID)
	return nil
}

func (s *InMemory) Find(_ context.Context, id string) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCase(c), nil
}

func matchesCase(c *Case, f Filter) bool {
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.LawyerID != "" && !c.AssignedTo(f.LawyerID) && c.CreatedBy != f.LawyerID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

func (s *InMemory) List(_ context.Context, f Filter) ([]*Case, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*Case
	for _, id := range s.order {
		c := s.cases[id]
		if matchesCase(c, f) {
			all = append(all, c)
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
	out := make([]*Case, len(all))
	for i, c := range all {
		out[i] = cloneCase(c)
	}
	return out, total, nil
}

func (s *InMemory) Update(_ context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; !ok {
		return ErrNotFound
	}
	s.cases[c.ID] = cloneCase(c)
	return nil
}

func (s *InMemory) AddNote(_ context.Context, id string, note Note) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Notes = append(c.Notes, note)
	c.UpdatedAt = note.CreatedAt
	return cloneCase(c), nil
}

func (s *InMemory) AddDeadline(_ context.Context, id string, d Deadline) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Deadlines = append(c.Deadlines, d)
	return cloneCase(c), nil
}

func (s *InMemory) NextReference(_ context.Context, yearMonth string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[yearMonth]++
	return s.counters[yearMonth], nil
}
