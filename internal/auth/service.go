package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/internal/ids"
)

const (
	minPasswordLength = 6
	resetTokenTTL     = time.Hour
	resetTokenBytes   = 32
)

// Service provides account lifecycle and credential operations: register,
// login, current-user resolution and the password-reset token flow.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the credential service.
func NewService(store Store, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token service is required", ErrInvalidInput)
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens exposes the token service for middleware verification.
func (s *Service) Tokens() *TokenService { return s.tokens }

// RegisterInput carries registration fields, including the role-specific
// profile data for lawyers and clients.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Phone     string

	// Lawyer profile fields.
	BarNumber   string
	Specialties []string
	Bio         string

	// Client profile fields.
	Address        Address
	Company        Company
	Matters        []string
	ReferralSource string
}

// Session is the result of a successful register or login.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account, its role profile, and issues a session
// token. Fails with ErrAlreadyExists when the email is taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if len(in.Password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return Session{}, err
	}
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if firstName == "" || lastName == "" {
		return Session{}, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if role == RoleLawyer && strings.TrimSpace(in.BarNumber) == "" {
		return Session{}, fmt.Errorf("%w: bar number is required for lawyers", ErrInvalidInput)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		Phone:        strings.TrimSpace(in.Phone),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return Session{}, err
	}

	switch role {
	case RoleLawyer:
		profile := &LawyerProfile{
			UserID:      user.ID,
			BarNumber:   strings.TrimSpace(in.BarNumber),
			Specialties: in.Specialties,
			Bio:         strings.TrimSpace(in.Bio),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.Profiles(ctx).CreateLawyer(ctx, profile); err != nil {
			return Session{}, err
		}
	case RoleClient:
		profile := &ClientProfile{
			UserID:         user.ID,
			Address:        in.Address,
			Company:        in.Company,
			Matters:        in.Matters,
			ReferralSource: strings.TrimSpace(in.ReferralSource),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.store.Profiles(ctx).CreateClient(ctx, profile); err != nil {
			return Session{}, err
		}
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !user.Active {
		return Session{}, ErrAccountDisabled
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	// Best effort: a failed last-login write never fails the login.
	when := s.now().UTC()
	if err := s.store.Users(ctx).TouchLastLogin(ctx, user.ID, when); err == nil {
		user.LastLogin = &when
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// CurrentUser resolves a user and their role profile, if any. Profiles are
// looked up explicitly rather than kept in ambient registries.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, any, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	switch user.Role {
	case RoleLawyer:
		profile, err := s.store.Profiles(ctx).FindLawyer(ctx, user.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		if profile != nil {
			return user, profile, nil
		}
	case RoleClient:
		profile, err := s.store.Profiles(ctx).FindClient(ctx, user.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		if profile != nil {
			return user, profile, nil
		}
	}
	return user, nil, nil
}

// FindUser looks up a user by id.
func (s *Service) FindUser(ctx context.Context, userID string) (*User, error) {
	return s.store.Users(ctx).Find(ctx, userID)
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

// SetUserStatus activates or deactivates an account. Deactivation blocks
// future logins; tokens already issued stay valid until expiry.
func (s *Service) SetUserStatus(ctx context.Context, userID string, active bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users(ctx).UpdateStatus(ctx, userID, active)
}

// RequestPasswordReset generates a single-use reset token for the account,
// valid for one hour. Only the SHA-256 of the token is persisted; the raw
// token goes out of band to the user and is never logged.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	expiresAt := s.now().UTC().Add(resetTokenTTL)
	if err := s.store.Users(ctx).SetResetToken(ctx, user.ID, hashResetToken(token), expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and replaces the password. The store
// clears token and expiry in the same conditional write, so a second attempt
// with the same token fails with ErrInvalidResetToken.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidResetToken
	}
	if len(newPassword) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	return s.store.Users(ctx).ConsumeResetToken(ctx, hashResetToken(token), hash, s.now().UTC())
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
