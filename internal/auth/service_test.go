package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, clock func() time.Time) *Service {
	t.Helper()
	opts := []TokenOption{}
	if clock != nil {
		opts = append(opts, WithClock(clock))
	}
	tokens, err := NewTokenService("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svcOpts := []ServiceOption{}
	if clock != nil {
		svcOpts = append(svcOpts, WithServiceClock(clock))
	}
	svc, err := NewService(NewInMemory(), tokens, svcOpts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func registerLawyer(t *testing.T, svc *Service, email string) Session {
	t.Helper()
	sess, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "hunter22",
		FirstName: "Ada",
		LastName:  "Moreau",
		Role:      "lawyer",
		BarNumber: "PAR-1042",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return sess
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess := registerLawyer(t, svc, "Ada@Example.com")
	if sess.Token == "" {
		t.Fatal("expected a session token")
	}
	if sess.User.Email != "ada@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", sess.User.Email)
	}
	if sess.User.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}

	if _, err := svc.Register(ctx, RegisterInput{
		Email: "ada@example.com", Password: "hunter22",
		FirstName: "Ada", LastName: "Moreau", Role: "lawyer", BarNumber: "PAR-1042",
	}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate register = %v, want ErrAlreadyExists", err)
	}

	login, err := svc.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLogin == nil {
		t.Fatal("expected last login to be stamped")
	}

	if _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"bad email", RegisterInput{Email: "nope", Password: "hunter22", FirstName: "A", LastName: "B", Role: "client"}},
		{"short password", RegisterInput{Email: "a@b.fr", Password: "abc", FirstName: "A", LastName: "B", Role: "client"}},
		{"missing name", RegisterInput{Email: "a@b.fr", Password: "hunter22", Role: "client"}},
		{"unknown role", RegisterInput{Email: "a@b.fr", Password: "hunter22", FirstName: "A", LastName: "B", Role: "root"}},
		{"lawyer without bar number", RegisterInput{Email: "a@b.fr", Password: "hunter22", FirstName: "A", LastName: "B", Role: "lawyer"}},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestDisabledAccountCannotLogIn(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess := registerLawyer(t, svc, "ada@example.com")
	if err := svc.SetUserStatus(ctx, sess.User.ID, false); err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "hunter22"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("disabled login = %v, want ErrAccountDisabled", err)
	}

	// Already-issued tokens are not revoked by deactivation.
	if _, err := svc.Tokens().Verify(sess.Token); err != nil {
		t.Fatalf("Verify after deactivation: %v", err)
	}
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return now })
	ctx := context.Background()

	sess := registerLawyer(t, svc, "ada@example.com")

	token, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if token == "" {
		t.Fatal("expected a reset token")
	}
	stored, err := svc.FindUser(ctx, sess.User.ID)
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if stored.ResetTokenHash == token {
		t.Fatal("raw reset token persisted; only its hash may be stored")
	}

	if _, err := svc.ResetPassword(ctx, token, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "brand-new-pass"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}

	if _, err := svc.ResetPassword(ctx, token, "another-pass"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("token reuse = %v, want ErrInvalidResetToken", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return now })
	ctx := context.Background()

	registerLawyer(t, svc, "ada@example.com")
	token, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	now = now.Add(61 * time.Minute)
	if _, err := svc.ResetPassword(ctx, token, "brand-new-pass"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expired token = %v, want ErrInvalidResetToken", err)
	}
}

func TestCurrentUserIncludesProfile(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{
		Email:     "client@example.com",
		Password:  "hunter22",
		FirstName: "Nora",
		LastName:  "Blanc",
		Role:      "client",
		Address:   Address{City: "Lyon", Country: "FR"},
		Company:   Company{Name: "Blanc SARL"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, profile, err := svc.CurrentUser(ctx, sess.User.ID)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.Email != "client@example.com" {
		t.Fatalf("email = %q", user.Email)
	}
	cp, ok := profile.(*ClientProfile)
	if !ok {
		t.Fatalf("profile type = %T, want *ClientProfile", profile)
	}
	if cp.Address.City != "Lyon" || cp.Company.Name != "Blanc SARL" {
		t.Fatalf("profile = %+v", cp)
	}
}
