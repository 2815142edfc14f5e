package report

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced report does not exist in either store
	ErrNotFound = errors.New("report not found")

	// ErrNetwork means a remote store call failed to complete
	ErrNetwork = errors.New("remote store unavailable")

	// ErrPermission means the caller lacks the role required for an action
	ErrPermission = errors.New("permission denied")

	// ErrValidation is the root of all precondition failures below
	ErrValidation = errors.New("validation failed")

	// ErrInconsistentState marks divergence between cache and remote store
	// beyond what a pull can repair. Reserved: divergence is currently
	// repaired silently by the next pull and never raised.
	ErrInconsistentState = errors.New("stores diverged")
)

var (
	ErrInvalidType        = fmt.Errorf("%w: unknown report type", ErrValidation)
	ErrInvalidCoordinates = fmt.Errorf("%w: coordinates out of range", ErrValidation)
	ErrEmptyTitle         = fmt.Errorf("%w: title is required", ErrValidation)
	ErrEmptyReason        = fmt.Errorf("%w: rejection reason is required", ErrValidation)
	ErrEmptyMessage       = fmt.Errorf("%w: message is required", ErrValidation)
	ErrMissingModerator   = fmt.Errorf("%w: moderator identity is required", ErrValidation)
	ErrNotPending         = fmt.Errorf("%w: report is no longer pending", ErrValidation)
	ErrNothingToEdit      = fmt.Errorf("%w: no fields supplied", ErrValidation)
)
