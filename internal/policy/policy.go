// Package policy decides, per resource instance and requested action,
// whether an acting identity is permitted. The decision function is pure:
// it sees only the actor and a snapshot of the resource's ownership, grants
// and signature entries, so the whole table is unit-testable in isolation
// from storage and transport.
package policy

import (
	"fmt"
	"strings"
	"time"

	"legalflow/internal/auth"
)

// Action is a requested operation on a protected resource.
type Action int

const (
	ActionRead Action = iota
	ActionDownload
	ActionUpdate
	ActionComment
	ActionDelete
	ActionShare
	ActionSign
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionDownload:
		return "download"
	case ActionUpdate:
		return "update"
	case ActionComment:
		return "comment"
	case ActionDelete:
		return "delete"
	case ActionShare:
		return "share"
	case ActionSign:
		return "sign"
	default:
		return "unknown"
	}
}

// Level is the permission level of an explicit grant.
type Level string

const (
	LevelView    Level = "view"
	LevelEdit    Level = "edit"
	LevelComment Level = "comment"
)

// ParseLevel validates a grant level string.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.TrimSpace(strings.ToLower(s))) {
	case LevelView:
		return LevelView, nil
	case LevelEdit:
		return LevelEdit, nil
	case LevelComment:
		return LevelComment, nil
	default:
		return "", fmt.Errorf("unsupported permission level %q", s)
	}
}

// SignatureStatus is the state of one identity's signature entry.
type SignatureStatus string

const (
	SignaturePending  SignatureStatus = "pending"
	SignatureSigned   SignatureStatus = "signed"
	SignatureRejected SignatureStatus = "rejected"
)

// Grant is an explicit, additive permission record for a non-owner identity.
// A resource holds at most one grant per identity; re-sharing updates it.
type Grant struct {
	UserID string `json:"user_id"`
	Level  Level  `json:"permission"`
}

// Signature is one identity's signature entry on a document-like resource.
// A resource holds at most one entry per identity.
type Signature struct {
	UserID   string          `json:"user_id"`
	Status   SignatureStatus `json:"status"`
	SignedAt *time.Time      `json:"date,omitempty"`
}

// Actor is the identity requesting an action.
type Actor struct {
	ID   string
	Role auth.Role
}

// Resource is the snapshot of a protected entity's access state.
type Resource struct {
	OwnerID    string
	Grants     []Grant
	Signatures []Signature
}

// Can evaluates the decision table. Deny by default; the owner/admin
// short-circuit always wins over grant-level checks.
func Can(actor Actor, action Action, res Resource) bool {
	if actor.ID == "" {
		return false
	}
	if actor.Role == auth.RoleAdmin {
		return true
	}
	if actor.ID == res.OwnerID {
		return true
	}

	switch action {
	case ActionShare, ActionDelete:
		// Only owner or admin, both handled above.
		return false
	case ActionSign:
		// A non-owner may sign only when a pending entry is reserved for them.
		for _, sig := range res.Signatures {
			if sig.UserID == actor.ID && sig.Status == SignaturePending {
				return true
			}
		}
		return false
	}

	for _, g := range res.Grants {
		if g.UserID != actor.ID {
			continue
		}
		switch g.Level {
		case LevelView:
			return action == ActionRead || action == ActionDownload
		case LevelEdit:
			return action == ActionRead || action == ActionDownload || action == ActionUpdate
		case LevelComment:
			return action == ActionRead || action == ActionDownload || action == ActionComment
		}
	}
	return false
}
