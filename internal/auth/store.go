package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Profiles(ctx context.Context) ProfileStore
}

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateStatus(ctx context.Context, id string, active bool) error

	// TouchLastLogin updates last_login; callers treat failures as
	// best-effort and never fail the surrounding flow.
	TouchLastLogin(ctx context.Context, id string, when time.Time) error

	// SetResetToken records the reset token hash and its expiry on the user.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// ConsumeResetToken atomically replaces the password hash and clears the
	// reset token for the user holding tokenHash with a future expiry. It
	// returns ErrInvalidResetToken when no such user exists; the conditional
	// write guarantees a token is consumed at most once under concurrency.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error)
}

// ProfileStore manages the one-to-one role side records.
type ProfileStore interface {
	CreateLawyer(ctx context.Context, p *LawyerProfile) error
	CreateClient(ctx context.Context, p *ClientProfile) error
	FindLawyer(ctx context.Context, userID string) (*LawyerProfile, error)
	FindClient(ctx context.Context, userID string) (*ClientProfile, error)
}
