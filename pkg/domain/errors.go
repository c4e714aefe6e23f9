package domain

import "errors"

// Verification session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("operation not valid in current state")
	ErrSessionStale    = errors.New("session was modified concurrently")
	// ErrSessionExpired is returned by session stores for a record found past
	// its validity window. The store deletes the record before returning.
	ErrSessionExpired  = errors.New("verification session expired")
	ErrExpired         = errors.New("expired, restart the flow")
	ErrCodeMismatch    = errors.New("invalid code")
	ErrTokenMismatch   = errors.New("token mismatch")
	ErrTooManyAttempts = errors.New("too many failed attempts, restart the flow")
	ErrDeliveryFailed  = errors.New("failed to deliver notification")
	ErrInvalidRole     = errors.New("unrecognized role")
	ErrInvalidDecision = errors.New("unrecognized decision")
)

// Account errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrConflict        = errors.New("email already in use")
	ErrUnauthorized    = errors.New("authentication required")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet requirements")
	ErrInvalidInput = errors.New("invalid input")
)
