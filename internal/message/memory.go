package message

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	messages map[string]*Message
	order    []string
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{messages: make(map[string]*Message)}
}

func cloneMsg(m *Message) *Message {
	cp := *m
	if m.ReadAt != nil {
		at := *m.ReadAt
		cp.ReadAt = &at
	}
	return &cp
}

func (s *InMemory) Create(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ID] = cloneMsg(m)
	s.order = append(s.order, m.ID)
	return nil
}

func (s *InMemory) Find(_ context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMsg(m), nil
}

func between(m *Message, a, b string) bool {
	return (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)
}

func (s *InMemory) Thread(_ context.Context, userA, userB string, limit, offset int) ([]*Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*Message
	for _, id := range s.order {
		m := s.messages[id]
		if between(m, userA, userB) {
			all = append(all, m)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]*Message, len(all))
	for i, m := range all {
		out[i] = cloneMsg(m)
	}
	return out, total, nil
}

func (s *InMemory) Conversations(_ context.Context, userID string) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byPeer := make(map[string]*Conversation)
	for _, id := range s.order {
		m := s.messages[id]
		var peer string
		switch userID {
		case m.SenderID:
			peer = m.RecipientID
		case m.RecipientID:
			peer = m.SenderID
		default:
			continue
		}
		c, ok := byPeer[peer]
		if !ok {
			c = &Conversation{PeerID: peer}
			byPeer[peer] = c
		}
		c.LastMessage = cloneMsg(m)
		c.UpdatedAt = m.CreatedAt
		if m.RecipientID == userID && !m.Read() {
			c.Unread++
		}
	}
	out := make([]*Conversation, 0, len(byPeer))
	for _, c := range byPeer {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemory) MarkRead(_ context.Context, id string, at time.Time) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.ReadAt == nil {
		m.ReadAt = &at
	}
	return cloneMsg(m), nil
}

func (s *InMemory) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if m.RecipientID == userID && !m.Read() {
			n++
		}
	}
	return n, nil
}
