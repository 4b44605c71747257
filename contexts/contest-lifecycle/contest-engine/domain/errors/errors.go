package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("authenticated user is required")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("invalid challenge transition")
	ErrInvalidState       = errors.New("challenge state does not allow this operation")
	ErrTooEarly           = errors.New("transition requested before its scheduled date")
	ErrInvalidDateRange   = errors.New("challenge dates are out of order")
	ErrDuplicateVote      = errors.New("user already voted for this submission")
	ErrSelfVote           = errors.New("self voting is forbidden")
	ErrBadgeNotConfigured = errors.New("badge is not configured")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConflict           = errors.New("contest engine conflict")
)

var (
	ErrChallengeNotFound  = fmt.Errorf("challenge %w", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	ErrProfileNotFound    = fmt.Errorf("profile %w", ErrNotFound)
)
