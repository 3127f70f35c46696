package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"legalflow/internal/auth"
	"legalflow/internal/ids"
	"legalflow/internal/policy"
)

// UserDirectory resolves user existence for share and signature targets.
type UserDirectory interface {
	FindUser(ctx context.Context, id string) (*auth.User, error)
}

// Service implements document operations with per-request policy decisions.
// Decisions are never cached across requests; ownership and grants can
// change between calls.
type Service struct {
	store Store
	blobs *BlobStore
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

// NewService constructs the document service.
func NewService(store Store, blobs *BlobStore, users UserDirectory, opts ...ServiceOption) (*Service, error) {
	if store == nil || users == nil {
		return nil, fmt.Errorf("%w: store and user directory are required", ErrInvalidInput)
	}
	s := &Service{store: store, blobs: blobs, users: users, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries upload metadata; the blob is already stored.
type CreateInput struct {
	Name         string
	OriginalName string
	Description  string
	FilePath     string
	FileType     string
	FileSize     int64
	Category     string
	Tags         []string
	CaseID       string
}

// Create records an uploaded document owned by the actor.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*Document, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSpace(in.OriginalName)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", ErrInvalidInput)
	}
	category, err := NormalizeCategory(in.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	now := s.now().UTC()
	doc := &Document{
		ID:           ids.New(),
		Name:         name,
		OriginalName: strings.TrimSpace(in.OriginalName),
		Description:  strings.TrimSpace(in.Description),
		FilePath:     in.FilePath,
		FileType:     in.FileType,
		FileSize:     in.FileSize,
		Category:     category,
		Tags:         splitTags(in.Tags),
		CaseID:       strings.TrimSpace(in.CaseID),
		OwnerID:      actor.ID,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UploadInput carries an incoming file and its metadata.
type UploadInput struct {
	Name         string
	OriginalName string
	Description  string
	ContentType  string
	Category     string
	Tags         []string
	CaseID       string
	Content      io.Reader
}

// Upload stores the file and records the document in one step. The blob is
// removed again if the metadata write fails.
func (s *Service) Upload(ctx context.Context, actor policy.Actor, in UploadInput) (*Document, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("%w: uploads are not configured", ErrInvalidInput)
	}
	if in.Content == nil {
		return nil, fmt.Errorf("%w: file content is required", ErrInvalidInput)
	}
	path, size, err := s.blobs.Save(in.OriginalName, in.Content)
	if err != nil {
		return nil, err
	}
	doc, err := s.Create(ctx, actor, CreateInput{
		Name:         in.Name,
		OriginalName: in.OriginalName,
		Description:  in.Description,
		FilePath:     path,
		FileType:     in.ContentType,
		FileSize:     size,
		Category:     in.Category,
		Tags:         in.Tags,
		CaseID:       in.CaseID,
	})
	if err != nil {
		_ = s.blobs.Remove(path)
		return nil, err
	}
	return doc, nil
}

// Get returns a document the actor may read.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (*Document, error) {
	doc, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionRead, doc.AccessState()) {
		return nil, ErrForbidden
	}
	return doc, nil
}

// List returns documents visible to the actor. Admins see everything;
// everyone else sees owned or shared documents only.
func (s *Service) List(ctx context.Context, actor policy.Actor, f Filter) ([]*Document, int, error) {
	if actor.Role != auth.RoleAdmin {
		f.VisibleTo = actor.ID
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.List(ctx, f)
}

// UpdateInput carries optional metadata changes; nil fields stay untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *string
	Tags        []string
}

// Update mutates document metadata. Requires edit rights.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, in UpdateInput) (*Document, error) {
	doc, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionUpdate, doc.AccessState()) {
		return nil, ErrForbidden
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: document name is required", ErrInvalidInput)
		}
		doc.Name = name
	}
	if in.Description != nil {
		doc.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		category, err := NormalizeCategory(*in.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *in.Category)
		}
		doc.Category = category
	}
	if in.Tags != nil {
		doc.Tags = splitTags(in.Tags)
	}
	doc.Version++
	doc.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateMeta(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the record and its blob. Owner or admin only.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	doc, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Can(actor, policy.ActionDelete, doc.AccessState()) {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.blobs != nil {
		_ = s.blobs.Remove(doc.FilePath)
	}
	return nil
}

// Share creates or updates the grant for a target user. Owner or admin
// only; grants are additive and never revoke owner rights.
func (s *Service) Share(ctx context.Context, actor policy.Actor, docID, targetUserID string, level policy.Level) (*Document, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return nil, fmt.Errorf("%w: target user is required", ErrInvalidInput)
	}
	doc, err := s.store.Find(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionShare, doc.AccessState()) {
		return nil, ErrForbidden
	}
	if _, err := s.users.FindUser(ctx, targetUserID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.UpsertGrant(ctx, docID, targetUserID, level)
}

// RequestSignature reserves a pending signature entry for a signer. Owner
// or admin only. An existing entry, pending or signed, is left untouched.
func (s *Service) RequestSignature(ctx context.Context, actor policy.Actor, docID, signerID string) (*Document, error) {
	signerID = strings.TrimSpace(signerID)
	if signerID == "" {
		return nil, fmt.Errorf("%w: signer is required", ErrInvalidInput)
	}
	doc, err := s.store.Find(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionShare, doc.AccessState()) {
		return nil, ErrForbidden
	}
	if _, err := s.users.FindUser(ctx, signerID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.UpsertSignature(ctx, docID, signerID, policy.SignaturePending, s.now().UTC(), true)
}

// Sign records the actor's signature. Permitted for holders of a pending
// entry and for the owner/admin, who may self-add. Repeated calls update
// the actor's single entry rather than create duplicates.
func (s *Service) Sign(ctx context.Context, actor policy.Actor, docID string) (*Document, error) {
	doc, err := s.store.Find(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionSign, doc.AccessState()) {
		return nil, ErrForbidden
	}
	return s.store.UpsertSignature(ctx, docID, actor.ID, policy.SignatureSigned, s.now().UTC(), false)
}

// Download opens the blob for a document the actor may download; any grant
// level suffices.
func (s *Service) Download(ctx context.Context, actor policy.Actor, id string) (*Document, io.ReadCloser, error) {
	doc, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !policy.Can(actor, policy.ActionDownload, doc.AccessState()) {
		return nil, nil, ErrForbidden
	}
	if s.blobs == nil {
		return nil, nil, ErrNotFound
	}
	var f *os.File
	f, err = s.blobs.Open(doc.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return doc, f, nil
}

func splitTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
