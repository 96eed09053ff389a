package models

import "errors"

// Domain-level sentinel errors for business logic
// These errors should not contain HTTP-specific information

var (
	// ErrSessionNotFound indicates that a session with the given ID does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionTerminal indicates a mutation was attempted on an
	// ended or failed session
	ErrSessionTerminal = errors.New("session is already terminal")

	// ErrInvalidSessionStatus indicates that the session status is invalid
	ErrInvalidSessionStatus = errors.New("invalid session status")

	// ErrInvalidOutcome indicates that the session outcome is invalid
	ErrInvalidOutcome = errors.New("invalid session outcome")

	// ErrStorageUnavailable indicates the persistence layer failed; fatal
	// for the request, not for the process
	ErrStorageUnavailable = errors.New("session storage unavailable")
)
