package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/internal/auth"
	"legalflow/internal/ids"
)

const maxBodyLength = 10000

// UserDirectory resolves recipients before a message is accepted.
type UserDirectory interface {
	FindUser(ctx context.Context, id string) (*auth.User, error)
}

// Service implements messaging. Only the recipient can mark a message
// read, and the read timestamp never moves once set.
type Service struct {
	store Store
	users UserDirectory
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

// NewService constructs the message service.
func NewService(store Store, users UserDirectory, opts ...ServiceOption) (*Service, error) {
	if store == nil || users == nil {
		return nil, fmt.Errorf("%w: store and user directory are required", ErrInvalidInput)
	}
	s := &Service{store: store, users: users, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SendInput carries new-message fields.
type SendInput struct {
	RecipientID string
	CaseID      string
	Subject     string
	Body        string
}

// Send delivers a message from the actor to an existing, active user.
func (s *Service) Send(ctx context.Context, actor auth.Principal, in SendInput) (*Message, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if len(body) > maxBodyLength {
		return nil, fmt.Errorf("%w: body exceeds %d characters", ErrInvalidInput, maxBodyLength)
	}
	recipientID := strings.TrimSpace(in.RecipientID)
	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	if recipientID == actor.UserID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}
	recipient, err := s.users.FindUser(ctx, recipientID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, fmt.Errorf("%w: recipient %s", ErrNotFound, recipientID)
		}
		return nil, err
	}
	if !recipient.Active {
		return nil, fmt.Errorf("%w: recipient account is disabled", ErrInvalidInput)
	}

	m := &Message{
		ID:          ids.New(),
		SenderID:    actor.UserID,
		RecipientID: recipient.ID,
		CaseID:      strings.TrimSpace(in.CaseID),
		Subject:     strings.TrimSpace(in.Subject),
		Body:        body,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns a message the actor sent or received.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*Message, error) {
	m, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID != actor.UserID && m.RecipientID != actor.UserID {
		return nil, ErrForbidden
	}
	return m, nil
}

// Thread returns the conversation between the actor and a peer.
func (s *Service) Thread(ctx context.Context, actor auth.Principal, peerID string, limit, offset int) ([]*Message, int, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, 0, fmt.Errorf("%w: peer is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Thread(ctx, actor.UserID, peerID, limit, offset)
}

// Conversations lists the actor's threads, most recent first.
func (s *Service) Conversations(ctx context.Context, actor auth.Principal) ([]*Conversation, error) {
	return s.store.Conversations(ctx, actor.UserID)
}

// MarkRead stamps a message read. Only the recipient may do so, and a
// repeat call keeps the original timestamp.
func (s *Service) MarkRead(ctx context.Context, actor auth.Principal, id string) (*Message, error) {
	m, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.RecipientID != actor.UserID {
		return nil, ErrForbidden
	}
	if m.Read() {
		return m, nil
	}
	return s.store.MarkRead(ctx, id, s.now().UTC())
}

// UnreadCount returns the number of unread messages addressed to the actor.
func (s *Service) UnreadCount(ctx context.Context, actor auth.Principal) (int, error) {
	return s.store.CountUnread(ctx, actor.UserID)
}
