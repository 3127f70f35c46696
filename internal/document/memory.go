package document

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"legalflow/internal/policy"
)

// InMemory implements Store with in-process concurrency safety. Grant and
// signature upserts run under the store lock, mirroring the conditional
// writes the SQL store performs.
type InMemory struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty in-memory document store.
func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[string]*Document)}
}

func (s *InMemory) Create(ctx context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneDoc(d)
	s.docs[d.ID] = cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(d), nil
}

func (s *InMemory) List(ctx context.Context, f Filter) ([]*Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Document
	for _, d := range s.docs {
		if !matches(d, f) {
			continue
		}
		matched = append(matched, cloneDoc(d))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *InMemory) UpdateMeta(ctx context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[d.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = d.Name
	cur.Description = d.Description
	cur.Category = d.Category
	cur.Tags = append([]string(nil), d.Tags...)
	cur.Version = d.Version
	cur.UpdatedAt = d.UpdatedAt
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *InMemory) UpsertGrant(ctx context.Context, docID, userID string, level policy.Level) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok {
		return nil, ErrNotFound
	}
	found := false
	for i := range d.SharedWith {
		if d.SharedWith[i].UserID == userID {
			d.SharedWith[i].Level = level
			found = true
			break
		}
	}
	if !found {
		d.SharedWith = append(d.SharedWith, policy.Grant{UserID: userID, Level: level})
	}
	d.UpdatedAt = time.Now().UTC()
	return cloneDoc(d), nil
}

func (s *InMemory) UpsertSignature(ctx context.Context, docID, userID string, status policy.SignatureStatus, at time.Time, onlyIfAbsent bool) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok {
		return nil, ErrNotFound
	}
	found := false
	for i := range d.Signatures {
		if d.Signatures[i].UserID == userID {
			if !onlyIfAbsent {
				d.Signatures[i].Status = status
				when := at
				d.Signatures[i].SignedAt = &when
			}
			found = true
			break
		}
	}
	if !found {
		sig := policy.Signature{UserID: userID, Status: status}
		if status != policy.SignaturePending {
			when := at
			sig.SignedAt = &when
		}
		d.Signatures = append(d.Signatures, sig)
	}
	d.UpdatedAt = time.Now().UTC()
	return cloneDoc(d), nil
}

func matches(d *Document, f Filter) bool {
	if f.CaseID != "" && d.CaseID != f.CaseID {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.VisibleTo != "" && !visibleTo(d, f.VisibleTo) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(d.Name), needle) &&
			!strings.Contains(strings.ToLower(d.Description), needle) &&
			!tagsContain(d.Tags, needle) {
			return false
		}
	}
	return true
}

func visibleTo(d *Document, userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	for _, g := range d.SharedWith {
		if g.UserID == userID {
			return true
		}
	}
	return false
}

func tagsContain(tags []string, needle string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func cloneDoc(d *Document) *Document {
	cp := *d
	cp.Tags = append([]string(nil), d.Tags...)
	cp.SharedWith = append([]policy.Grant(nil), d.SharedWith...)
	cp.Signatures = append([]policy.Signature(nil), d.Signatures...)
	return &cp
}
