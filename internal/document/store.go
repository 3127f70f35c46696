package document

import (
	"context"
	"time"

	"legalflow/internal/policy"
)

// Filter narrows List results. VisibleTo restricts documents to those owned
// by or shared with the given user; empty means no restriction.
type Filter struct {
	CaseID    string
	Category  string
	Search    string
	VisibleTo string
	Limit     int
	Offset    int
}

// Store describes persistence for document metadata, grants and signatures.
// Grant and signature upserts are atomic per (document, user) pair so that
// concurrent requests cannot produce duplicate entries.
type Store interface {
	Create(ctx context.Context, d *Document) error
	Find(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, f Filter) ([]*Document, int, error)
	UpdateMeta(ctx context.Context, d *Document) error
	Delete(ctx context.Context, id string) error

	// UpsertGrant inserts or updates the single grant for (docID, userID)
	// and returns the refreshed document.
	UpsertGrant(ctx context.Context, docID, userID string, level policy.Level) (*Document, error)

	// UpsertSignature inserts or updates the single signature entry for
	// (docID, userID). When onlyIfAbsent is set an existing entry is left
	// untouched (used when reserving pending entries).
	UpsertSignature(ctx context.Context, docID, userID string, status policy.SignatureStatus, at time.Time, onlyIfAbsent bool) (*Document, error)
}
