// Package common holds the sentinel errors, retry loop, logger setup, and
// HTML text extraction shared by the other packages.
package common

import "errors"

// Common application errors.
var (
	// Database errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Classification errors.
	ErrInvalidInput = errors.New("invalid input")

	// Reasoning service errors.
	ErrExternalService = errors.New("external service failure")
	ErrEmptyResponse   = errors.New("empty response")

	// Session errors.
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSessionTerminal   = errors.New("session is in a terminal state")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)
