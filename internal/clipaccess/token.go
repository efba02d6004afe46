package clipaccess

import (
	"sync"
	"sync/atomic"

	"go.klb.dev/clipgate/internal/native"
)

// Token is the outcome of one acquisition attempt. A token that can access
// the clipboard holds both the in-process slot and the OS clipboard until
// Release is called; every Info built from it must be closed first.
type Token struct {
	api         native.API
	canAccess   atomic.Bool
	lockTimeout bool
	openTimeout bool
	release     func()
	once        sync.Once
}

func grantedToken(api native.API, release func()) *Token {
	t := &Token{api: api, release: release}
	t.canAccess.Store(true)
	return t
}

func lockTimeoutToken() *Token { return &Token{lockTimeout: true} }

func openTimeoutToken() *Token { return &Token{openTimeout: true} }

// CanAccess reports whether the token currently holds the clipboard.
func (t *Token) CanAccess() bool { return t.canAccess.Load() }

// IsLockTimeout reports that another goroutine in this process held the
// clipboard for the whole wait.
func (t *Token) IsLockTimeout() bool { return t.lockTimeout }

// IsOpenTimeout reports that the OS clipboard stayed open elsewhere through
// every retry.
func (t *Token) IsOpenTimeout() bool { return t.openTimeout }

// CheckAccess returns nil if the token holds the clipboard and an
// *AccessDeniedError explaining why not otherwise.
func (t *Token) CheckAccess() error {
	if t.CanAccess() {
		return nil
	}
	switch {
	case t.lockTimeout:
		return &AccessDeniedError{Reason: ErrLockedInProcess}
	case t.openTimeout:
		return &AccessDeniedError{Reason: ErrLockedByOtherProcess}
	default:
		return &AccessDeniedError{Reason: ErrNotLocked}
	}
}

// Release closes the OS clipboard and frees the in-process slot. It is safe
// to call more than once and on tokens that never had access.
func (t *Token) Release() {
	t.canAccess.Store(false)
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}

// Close calls Release. It always returns nil.
func (t *Token) Close() error {
	t.Release()
	return nil
}
