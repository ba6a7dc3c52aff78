package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job or session id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when the session status forbids the operation
	// or the caller worked on a stale copy.
	ErrInvalidState = errors.New("invalid session state")

	ErrJobNotFound     = fmt.Errorf("job %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)

	// ErrConflict is returned by a Store when the saved version moved on.
	ErrConflict = errors.New("session version conflict")
	// ErrDuplicate is returned by a Store.Create when the pair already has an
	// active session.
	ErrDuplicate = errors.New("active session already exists")
)
