package clipaccess

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipgate/internal/native"
)

func TestAcquireUncontended(t *testing.T) {
	mem := native.NewMemory()
	arb := New(mem)

	tok := arb.Acquire()
	require.True(t, tok.CanAccess())
	require.False(t, tok.IsLockTimeout())
	require.False(t, tok.IsOpenTimeout())
	require.NoError(t, tok.CheckAccess())
	require.True(t, mem.IsOpen())
	require.Equal(t, 1, mem.OpenAttempts())

	tok.Release()
	require.False(t, tok.CanAccess())
	require.False(t, mem.IsOpen())

	require.NotPanics(t, tok.Release)
	require.NoError(t, tok.Close())

	again := arb.Acquire(WithTimeout(0))
	require.True(t, again.CanAccess())
	again.Release()
}

func TestAcquireLockTimeout(t *testing.T) {
	mem := native.NewMemory()
	arb := New(mem)

	held := arb.Acquire()
	require.True(t, held.CanAccess())
	t.Cleanup(held.Release)

	const timeout = 50 * time.Millisecond
	start := time.Now()
	tok := arb.Acquire(WithTimeout(timeout))
	elapsed := time.Since(start)

	require.False(t, tok.CanAccess())
	require.True(t, tok.IsLockTimeout())
	require.False(t, tok.IsOpenTimeout())
	require.GreaterOrEqual(t, elapsed, timeout)
	require.Less(t, elapsed, timeout+150*time.Millisecond)
	require.Equal(t, 1, mem.OpenAttempts(), "a timed-out caller must not touch the OS clipboard")

	require.NotPanics(t, tok.Release)
	require.NotPanics(t, tok.Release)
	require.True(t, mem.IsOpen(), "releasing a denied token must not close the holder's clipboard")
}

func TestAcquireZeroTimeout(t *testing.T) {
	arb := New(native.NewMemory())

	tok := arb.Acquire(WithTimeout(0))
	require.True(t, tok.CanAccess())

	denied := arb.Acquire(WithTimeout(0))
	require.True(t, denied.IsLockTimeout())

	tok.Release()
}

func TestAcquireOpenRetryBound(t *testing.T) {
	mem := native.NewMemory()
	mem.HoldExternally()
	arb := New(mem)

	tok := arb.Acquire(WithRetries(3), WithRetryInterval(time.Millisecond))
	require.False(t, tok.CanAccess())
	require.True(t, tok.IsOpenTimeout())
	require.False(t, tok.IsLockTimeout())
	require.Equal(t, 4, mem.OpenAttempts())

	mem.ReleaseExternal()
	next := arb.Acquire(WithTimeout(0))
	require.True(t, next.CanAccess(), "the slot must be released after an open timeout")
	next.Release()
}

func TestAcquireNegativeRetries(t *testing.T) {
	mem := native.NewMemory()
	mem.HoldExternally()
	arb := New(mem)

	tok := arb.Acquire(WithRetries(-3), WithRetryInterval(time.Hour))
	require.True(t, tok.IsOpenTimeout())
	require.Equal(t, 1, mem.OpenAttempts())
}

func TestAcquireNoSleepAfterLastAttempt(t *testing.T) {
	mem := native.NewMemory()
	mem.HoldExternally()
	arb := New(mem)

	start := time.Now()
	tok := arb.Acquire(WithRetries(0), WithRetryInterval(time.Second))
	require.True(t, tok.IsOpenTimeout())
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAcquireRetriesUntilExternalRelease(t *testing.T) {
	mem := native.NewMemory()
	mem.HoldExternally()
	arb := New(mem)

	time.AfterFunc(20*time.Millisecond, mem.ReleaseExternal)

	tok := arb.Acquire(WithRetries(200), WithRetryInterval(5*time.Millisecond))
	require.True(t, tok.CanAccess())
	require.Greater(t, mem.OpenAttempts(), 1)
	tok.Release()
}

func TestAcquireContextCancelWhileWaitingForSlot(t *testing.T) {
	arb := New(native.NewMemory())

	held := arb.Acquire()
	t.Cleanup(held.Release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	tok, err := arb.AcquireContext(ctx, WithTimeout(time.Minute))
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, tok.IsLockTimeout())
	require.False(t, tok.CanAccess())
}

func TestAcquireContextCancelDuringRetries(t *testing.T) {
	mem := native.NewMemory()
	mem.HoldExternally()
	arb := New(mem)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	tok, err := arb.AcquireContext(ctx, WithRetries(1000), WithRetryInterval(5*time.Millisecond))
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, tok.IsOpenTimeout())
	require.Less(t, time.Since(start), time.Second)

	mem.ReleaseExternal()
	next := arb.Acquire(WithTimeout(0))
	require.True(t, next.CanAccess(), "cancellation must release the slot")
	next.Release()
}

func TestAcquireContextSuccess(t *testing.T) {
	arb := New(native.NewMemory())

	tok, err := arb.AcquireContext(context.Background())
	require.NoError(t, err)
	require.True(t, tok.CanAccess())
	tok.Release()
}

func TestBlockingAndContextShareSlot(t *testing.T) {
	arb := New(native.NewMemory())

	held := arb.Acquire()
	require.True(t, held.CanAccess())

	tok, err := arb.AcquireContext(context.Background(), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	require.True(t, tok.IsLockTimeout())

	held.Release()

	tok, err = arb.AcquireContext(context.Background())
	require.NoError(t, err)
	require.True(t, tok.CanAccess())

	blocked := arb.Acquire(WithTimeout(20 * time.Millisecond))
	require.True(t, blocked.IsLockTimeout())
	tok.Release()
}

func TestMutualExclusion(t *testing.T) {
	arb := New(native.NewMemory())

	const (
		workers    = 16
		iterations = 5
	)

	var live, granted atomic.Int32
	group := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		useContext := w%2 == 0
		group.Go(func() error {
			for i := 0; i < iterations; i++ {
				var tok *Token
				if useContext {
					var err error
					tok, err = arb.AcquireContext(context.Background(), WithTimeout(10*time.Second))
					if err != nil {
						return err
					}
				} else {
					tok = arb.Acquire(WithTimeout(10 * time.Second))
				}
				if !tok.CanAccess() {
					return fmt.Errorf("worker denied: lock=%v open=%v", tok.IsLockTimeout(), tok.IsOpenTimeout())
				}
				if n := live.Add(1); n != 1 {
					return fmt.Errorf("%d live tokens", n)
				}
				granted.Add(1)
				time.Sleep(100 * time.Microsecond)
				live.Add(-1)
				tok.Release()
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
	require.EqualValues(t, workers*iterations, granted.Load())
}

func TestReleaseClosesBeforeFreeingSlotEvenOnError(t *testing.T) {
	mem := native.NewMemory()
	arb := New(mem)

	tok := arb.Acquire()
	require.True(t, tok.CanAccess())

	mem.FailNext("CloseClipboard", errors.New("close failed"))
	require.NotPanics(t, tok.Release)
	require.False(t, mem.IsOpen())

	next := arb.Acquire(WithTimeout(0))
	require.True(t, next.CanAccess())
	next.Release()
}

func TestReleaseFromAnotherGoroutine(t *testing.T) {
	mem := native.NewMemory()
	arb := New(mem)

	tokens := make(chan *Token)
	go func() { tokens <- arb.Acquire() }()
	tok := <-tokens
	require.True(t, tok.CanAccess())

	done := make(chan error)
	go func() {
		w, err := WriteInfo(tok, native.CFUnicodeText, 4)
		if err != nil {
			done <- err
			return
		}
		copy(w.Bytes(), "hi\x00\x00")
		err = w.Close()
		tok.Release()
		done <- err
	}()
	require.NoError(t, <-done)
	require.False(t, mem.IsOpen())

	data, ok := mem.Snapshot(native.CFUnicodeText)
	require.True(t, ok)
	require.Equal(t, []byte("hi\x00\x00"), data)

	next := arb.Acquire(WithTimeout(0))
	require.True(t, next.CanAccess())
	next.Release()
}

func TestOwnerWindow(t *testing.T) {
	mem := native.NewMemory()
	arb := New(mem, WithOwnerFunc(func() native.HWND { return 42 }))

	t.Run("default owner", func(t *testing.T) {
		tok := arb.Acquire()
		t.Cleanup(tok.Release)
		require.NoError(t, Empty(tok))
		require.Equal(t, native.HWND(42), mem.Owner())
	})

	t.Run("explicit owner", func(t *testing.T) {
		tok := arb.Acquire(WithOwner(7))
		t.Cleanup(tok.Release)
		require.NoError(t, Empty(tok))
		require.Equal(t, native.HWND(7), mem.Owner())
	})
}

func TestWithDefaults(t *testing.T) {
	mem := native.NewMemory()
	mem.HoldExternally()
	arb := New(mem, WithDefaults(Config{Retries: 2, RetryInterval: time.Millisecond, Timeout: time.Millisecond}))

	tok := arb.Acquire()
	require.True(t, tok.IsOpenTimeout())
	require.Equal(t, 3, mem.OpenAttempts())
}

func TestArbiterClose(t *testing.T) {
	arb := New(native.NewMemory())

	tok := arb.Acquire()
	require.True(t, tok.CanAccess())

	done := make(chan error, 1)
	go func() { done <- arb.Close(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Close returned while a token was live: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	tok.Release()
	require.NoError(t, <-done)

	start := time.Now()
	after := arb.Acquire(WithTimeout(time.Minute))
	require.True(t, after.IsLockTimeout())
	require.Less(t, time.Since(start), time.Second)

	require.NoError(t, arb.Close(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	require.Equal(t, Config{
		Retries:       5,
		RetryInterval: 100 * time.Millisecond,
		Timeout:       200 * time.Millisecond,
	}, DefaultConfig())
}
