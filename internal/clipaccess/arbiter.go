// Package clipaccess serialises access to the OS clipboard. An Arbiter hands
// out Tokens: first it takes an in-process slot of capacity one, then it
// polls OpenClipboard with bounded retries. Contention is reported through
// token flags; hard OS failures while reading or writing are returned as
// errors.
//
// Typical use:
//
//	tok := arb.Acquire()
//	defer tok.Release()
//	if err := tok.CheckAccess(); err != nil {
//		return err
//	}
//	data, err := clipaccess.ReadBytes(tok, native.CFUnicodeText)
package clipaccess

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"go.klb.dev/clipgate/internal/native"
)

const (
	DefaultTimeout       = 200 * time.Millisecond
	DefaultRetryInterval = 100 * time.Millisecond
	DefaultRetries       = 5
)

// Config holds the acquisition parameters. Timeout bounds the wait for the
// in-process slot; Retries and RetryInterval bound the OpenClipboard loop.
type Config struct {
	Retries       int           `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns 5 retries, 100ms apart, and a 200ms slot timeout.
func DefaultConfig() Config {
	return Config{
		Retries:       DefaultRetries,
		RetryInterval: DefaultRetryInterval,
		Timeout:       DefaultTimeout,
	}
}

// Arbiter owns the in-process clipboard slot. Construct one per process (or
// per test) and pass it to whatever needs the clipboard.
type Arbiter struct {
	api      native.API
	slot     *semaphore.Weighted
	defaults Config
	owner    func() native.HWND
	log      *slog.Logger
	closed   atomic.Bool
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithDefaults replaces the default acquisition parameters.
func WithDefaults(c Config) Option {
	return func(a *Arbiter) { a.defaults = c }
}

// WithOwnerFunc sets the provider of the window that owns the clipboard when
// an acquisition does not name one.
func WithOwnerFunc(fn func() native.HWND) Option {
	return func(a *Arbiter) { a.owner = fn }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) { a.log = l }
}

// New returns an Arbiter that opens the clipboard through api.
func New(api native.API, opts ...Option) *Arbiter {
	a := &Arbiter{
		api:      api,
		slot:     semaphore.NewWeighted(1),
		defaults: DefaultConfig(),
		owner:    func() native.HWND { return 0 },
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type request struct {
	Config
	owner    native.HWND
	hasOwner bool
}

// AcquireOption overrides one parameter for a single acquisition.
type AcquireOption func(*request)

// WithRetries sets how many extra OpenClipboard attempts follow the first.
func WithRetries(n int) AcquireOption {
	return func(r *request) { r.Retries = n }
}

// WithRetryInterval sets the pause between OpenClipboard attempts.
func WithRetryInterval(d time.Duration) AcquireOption {
	return func(r *request) { r.RetryInterval = d }
}

// WithTimeout bounds the wait for the in-process slot; zero means do not wait.
func WithTimeout(d time.Duration) AcquireOption {
	return func(r *request) { r.Timeout = d }
}

// WithOwner makes hwnd the clipboard owner instead of the default window.
func WithOwner(hwnd native.HWND) AcquireOption {
	return func(r *request) {
		r.owner = hwnd
		r.hasOwner = true
	}
}

func (a *Arbiter) resolve(opts []AcquireOption) request {
	r := request{Config: a.defaults}
	for _, opt := range opts {
		opt(&r)
	}
	if !r.hasOwner {
		r.owner = a.owner()
	}
	if r.Retries < 0 {
		r.Retries = 0
	}
	return r
}

// Acquire blocks until it holds the clipboard or gives up. The returned
// token is never nil; check CanAccess or CheckAccess before using it and
// always Release it.
func (a *Arbiter) Acquire(opts ...AcquireOption) *Token {
	t, _ := a.acquire(context.Background(), a.resolve(opts))
	return t
}

// AcquireContext is Acquire with cancellation. When ctx ends the attempt it
// returns a denied token together with ctx.Err(); the in-process slot is
// never left held in that case.
func (a *Arbiter) AcquireContext(ctx context.Context, opts ...AcquireOption) (*Token, error) {
	return a.acquire(ctx, a.resolve(opts))
}

func (a *Arbiter) acquire(ctx context.Context, r request) (*Token, error) {
	if a.closed.Load() {
		return lockTimeoutToken(), nil
	}
	if !a.waitSlot(ctx, r.Timeout) {
		a.log.Debug("clipboard slot wait timed out", "timeout", r.Timeout)
		return lockTimeoutToken(), ctx.Err()
	}

	attempts := r.Retries + 1
	for i := 1; ; i++ {
		err := a.api.OpenClipboard(r.owner)
		if err == nil {
			return grantedToken(a.api, a.releaser()), nil
		}
		a.log.Debug("open clipboard failed", "attempt", i, "attempts", attempts, "err", err)
		if i == attempts {
			break
		}
		if err := sleep(ctx, r.RetryInterval); err != nil {
			a.slot.Release(1)
			return openTimeoutToken(), err
		}
	}
	a.slot.Release(1)
	return openTimeoutToken(), nil
}

func (a *Arbiter) waitSlot(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		return a.slot.TryAcquire(1)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.slot.Acquire(ctx, 1) == nil
}

func (a *Arbiter) releaser() func() {
	return func() {
		defer a.slot.Release(1)
		if err := a.api.CloseClipboard(); err != nil {
			a.log.Warn("close clipboard failed", "err", err)
		}
	}
}

// Close waits for the live token, if any, to be released and then keeps the
// slot, so every later acquisition reports a lock timeout immediately.
func (a *Arbiter) Close(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := a.slot.Acquire(ctx, 1); err != nil {
		a.closed.Store(false)
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
