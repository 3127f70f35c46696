package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. Used for
// tests and dev mode without a database.
type InMemory struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
	lawyers map[string]*LawyerProfile
	clients map[string]*ClientProfile
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		lawyers: make(map[string]*LawyerProfile),
		clients: make(map[string]*ClientProfile),
	}
}

func (s *InMemory) Users(ctx context.Context) UserStore       { return (*memUserStore)(s) }
func (s *InMemory) Profiles(ctx context.Context) ProfileStore { return (*memProfileStore)(s) }

type memUserStore InMemory

func (s *memUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[email] = u.ID
	return nil
}

func (s *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *memUserStore) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memUserStore) UpdateStatus(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memUserStore) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &when
	return nil
}

func (s *memUserStore) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ConsumeResetToken performs the read-modify-write under a single lock so a
// one-time token cannot be consumed twice by concurrent requests.
func (s *memUserStore) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetTokenHash == "" || u.ResetTokenHash != tokenHash {
			continue
		}
		if u.ResetTokenExpiresAt == nil || !u.ResetTokenExpiresAt.After(now) {
			break
		}
		u.PasswordHash = passwordHash
		u.ResetTokenHash = ""
		u.ResetTokenExpiresAt = nil
		u.UpdatedAt = now
		cp := *u
		return &cp, nil
	}
	return nil, ErrInvalidResetToken
}

type memProfileStore InMemory

func (s *memProfileStore) CreateLawyer(ctx context.Context, p *LawyerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.lawyers[p.UserID] = &cp
	return nil
}

func (s *memProfileStore) CreateClient(ctx context.Context, p *ClientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.clients[p.UserID] = &cp
	return nil
}

func (s *memProfileStore) FindLawyer(ctx context.Context, userID string) (*LawyerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.lawyers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProfileStore) FindClient(ctx context.Context, userID string) (*ClientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.clients[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}
