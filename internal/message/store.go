package message

import (
	"context"
	"time"
)

// Store describes persistence for direct messages.
type Store interface {
	Create(ctx context.Context, m *Message) error
	Find(ctx context.Context, id string) (*Message, error)
	// Thread returns messages exchanged between two users, oldest first.
	Thread(ctx context.Context, userA, userB string, limit, offset int) ([]*Message, int, error)
	// Conversations summarizes every thread the user participates in,
	// most recently active first.
	Conversations(ctx context.Context, userID string) ([]*Conversation, error)
	// MarkRead stamps the message read once; later calls keep the first
	// timestamp.
	MarkRead(ctx context.Context, id string, at time.Time) (*Message, error)
	// CountUnread returns the number of unread messages addressed to the
	// user.
	CountUnread(ctx context.Context, userID string) (int, error)
}
