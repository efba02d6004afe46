package clipaccess

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied matches every *AccessDeniedError.
	ErrAccessDenied = errors.New("clipboard access denied")

	ErrLockedInProcess      = errors.New("clipboard is already locked by another goroutine in this process")
	ErrLockedByOtherProcess = errors.New("clipboard is locked by another process")
	ErrNotLocked            = errors.New("clipboard is no longer locked, check release logic")

	// ErrFormatUnavailable is returned by ReadInfo when the clipboard holds
	// no data for the requested format.
	ErrFormatUnavailable = errors.New("clipboard format not available")

	// ErrInvalidSize is returned by WriteInfo for sizes below one byte.
	ErrInvalidSize = errors.New("clipboard write size must be positive")
)

// AccessDeniedError reports an attempt to use the clipboard through a token
// that does not hold it. Reason is ErrLockedInProcess,
// ErrLockedByOtherProcess or ErrNotLocked.
type AccessDeniedError struct {
	Reason error
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccessDenied, e.Reason)
}

func (e *AccessDeniedError) Unwrap() error { return e.Reason }

func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }

// OSError is a non-transient failure of an OS clipboard or memory call.
type OSError struct {
	Op     string
	Format uint32
	Err    error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s (format %d): %s", e.Op, e.Format, e.Err)
}

func (e *OSError) Unwrap() error { return e.Err }
