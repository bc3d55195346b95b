package service

import "errors"

// Terminal, user-visible failure classes. Handlers map these to HTTP
// statuses; anything else surfaces as an internal error.
var (
	// ErrForbidden indicates an authenticated user who is not a participant
	// of the conversation they addressed.
	ErrForbidden = errors.New("not a conversation participant")
	// ErrNotFound indicates a referenced conversation, partner, or property
	// that does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates a malformed or empty request payload.
	ErrValidation = errors.New("validation failed")
)
