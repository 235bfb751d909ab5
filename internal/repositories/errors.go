package repositories

import "errors"

var (
	// ErrSessionRevisionMismatch indicates a session write-back raced with a
	// concurrent update and must be retried from a fresh load.
	ErrSessionRevisionMismatch = errors.New("session repository: revision mismatch")
	// ErrOrderTransitionInvalid indicates the requested status change is not
	// permitted from the order's current status.
	ErrOrderTransitionInvalid = errors.New("order repository: invalid status transition")
)

// IsNotFound reports whether err carries not-found repository semantics.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

// IsConflict reports whether err carries conflict repository semantics.
func IsConflict(err error) bool {
	if errors.Is(err, ErrSessionRevisionMismatch) {
		return true
	}
	var repoErr RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}
