package message

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("message: not found")
	ErrInvalidInput = errors.New("message: invalid input")
	ErrForbidden    = errors.New("message: forbidden")
)

// Message is a direct message between two users, optionally attached
// to a case.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	CaseID      string     `json:"case_id,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Read reports whether the recipient has opened the message.
func (m *Message) Read() bool {
	return m.ReadAt != nil
}

// Conversation summarizes the thread between two users.
type Conversation struct {
	PeerID      string    `json:"peer_id"`
	LastMessage *Message  `json:"last_message"`
	Unread      int       `json:"unread"`
	UpdatedAt   time.Time `json:"updated_at"`
}
