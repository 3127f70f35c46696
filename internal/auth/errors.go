package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrInvalidResetToken  = errors.New("auth: invalid or expired reset token")

	// ErrInvalidToken covers malformed, unsigned and wrongly signed session
	// tokens; ErrExpiredToken is reserved for tokens past their expiry.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: expired token")

	// ErrSigning indicates an infrastructure failure while signing a token.
	ErrSigning = errors.New("auth: token signing failed")
)
