package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"legalflow/internal/auth"
)

var (
	lawyer    = auth.Principal{UserID: "u-lawyer", Role: auth.RoleLawyer}
	client    = auth.Principal{UserID: "u-client", Role: auth.RoleClient}
	secretary = auth.Principal{UserID: "u-sec", Role: auth.RoleSecretary}
)

func newTestService(t *testing.T, at time.Time) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory(), WithClock(func() time.Time { return at }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validInput(start time.Time) CreateInput {
	return CreateInput{
		Title:    "Initial consultation",
		LawyerID: lawyer.UserID,
		ClientID: client.UserID,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
	}
}

func TestCreateRejectsOverlappingSlot(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()
	start := now.Add(24 * time.Hour)

	if _, err := svc.Create(ctx, client, validInput(start)); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, secretary, validInput(start.Add(30*time.Minute)))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("overlap err = %v, want ErrInvalidInput", err)
	}
	// Back-to-back is fine.
	if _, err := svc.Create(ctx, secretary, validInput(start.Add(time.Hour))); err != nil {
		t.Fatalf("adjacent slot: %v", err)
	}
}

func TestCreateValidatesTimesAndParties(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	in := validInput(now.Add(-time.Hour))
	if _, err := svc.Create(ctx, client, in); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("past start err = %v, want ErrInvalidInput", err)
	}

	in = validInput(now.Add(time.Hour))
	in.EndsAt = in.StartsAt
	if _, err := svc.Create(ctx, client, in); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero-length err = %v, want ErrInvalidInput", err)
	}

	in = validInput(now.Add(time.Hour))
	in.ClientID = "someone-else"
	if _, err := svc.Create(ctx, client, in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("client booking for another err = %v, want ErrForbidden", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	a, err := svc.Create(ctx, client, validInput(now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Fatalf("status = %s, want scheduled", a.Status)
	}

	// Only the lawyer (or staff) confirms.
	if _, err := svc.SetStatus(ctx, client, a.ID, StatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Fatalf("client confirm err = %v, want ErrForbidden", err)
	}
	a, err = svc.SetStatus(ctx, lawyer, a.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", a.Status)
	}

	a, err = svc.SetStatus(ctx, lawyer, a.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.SetStatus(ctx, client, a.ID, StatusCancelled); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("cancel completed err = %v, want ErrInvalidInput", err)
	}
}

func TestClientMayCancelOwnAppointment(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	a, err := svc.Create(ctx, client, validInput(now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a, err = svc.SetStatus(ctx, client, a.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", a.Status)
	}

	// Cancelled slots free the calendar.
	if _, err := svc.Create(ctx, client, validInput(now.Add(time.Hour))); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestRescheduleResetsConfirmation(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	a, err := svc.Create(ctx, client, validInput(now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetStatus(ctx, lawyer, a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	newStart := now.Add(48 * time.Hour)
	a, err = svc.Reschedule(ctx, client, a.ID, newStart, newStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Fatalf("status = %s, want scheduled after reschedule", a.Status)
	}
	if !a.StartsAt.Equal(newStart) {
		t.Fatalf("starts_at = %v, want %v", a.StartsAt, newStart)
	}
}

func TestListVisibility(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	if _, err := svc.Create(ctx, client, validInput(now.Add(time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := validInput(now.Add(3 * time.Hour))
	other.LawyerID = "u-other-lawyer"
	other.ClientID = "u-other-client"
	if _, err := svc.Create(ctx, secretary, other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	if _, total, _ := svc.List(ctx, client, Filter{}); total != 1 {
		t.Fatalf("client sees %d, want 1", total)
	}
	if _, total, _ := svc.List(ctx, lawyer, Filter{}); total != 1 {
		t.Fatalf("lawyer sees %d, want 1", total)
	}
	if _, total, _ := svc.List(ctx, secretary, Filter{}); total != 2 {
		t.Fatalf("secretary sees %d, want 2", total)
	}

	stranger := auth.Principal{UserID: "ghost", Role: auth.RoleClient}
	if _, total, _ := svc.List(ctx, stranger, Filter{}); total != 0 {
		t.Fatalf("stranger sees %d, want 0", total)
	}
}
