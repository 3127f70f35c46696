package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the coarse account role carried inside session tokens.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLawyer    Role = "lawyer"
	RoleSecretary Role = "secretary"
	RoleClient    Role = "client"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleLawyer:
		return RoleLawyer, nil
	case RoleSecretary:
		return RoleSecretary, nil
	case RoleClient:
		return RoleClient, nil
	default:
		return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, s)
	}
}

// User represents a registered account. PasswordHash and the reset token
// fields never serialize into API responses.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Role                Role       `json:"role"`
	Phone               string     `json:"phone,omitempty"`
	Active              bool       `json:"active"`
	ResetTokenHash      string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// LawyerProfile is the one-to-one side record for role=lawyer, resolved by
// an explicit repository lookup at the call site.
type LawyerProfile struct {
	UserID      string    `json:"user_id"`
	BarNumber   string    `json:"bar_number"`
	Specialties []string  `json:"specialties,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClientProfile is the one-to-one side record for role=client.
type ClientProfile struct {
	UserID         string    `json:"user_id"`
	Address        Address   `json:"address"`
	Company        Company   `json:"company"`
	Matters        []string  `json:"matters,omitempty"`
	ReferralSource string    `json:"referral_source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Company struct {
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	SIREN    string `json:"siren,omitempty"`
}
