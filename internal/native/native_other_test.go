//go:build !windows

package native

import (
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDesktopSessionLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipgate.lock")
	first := newDesktop(path, false)
	second := newDesktop(path, false)

	require.NoError(t, first.OpenClipboard(0))
	require.ErrorIs(t, second.OpenClipboard(0), ErrClipboardBusy)

	require.NoError(t, first.CloseClipboard())
	require.NoError(t, second.OpenClipboard(0))
	require.NoError(t, second.CloseClipboard())
}

func TestDesktopSecondOpenKeepsSessionLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipgate.lock")
	d := newDesktop(path, false)

	require.NoError(t, d.OpenClipboard(0))
	require.ErrorIs(t, d.OpenClipboard(0), ErrClipboardBusy)
	require.True(t, d.IsOpen())

	other := flock.New(path)
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.False(t, ok, "session lock dropped while the clipboard is open")

	require.NoError(t, d.CloseClipboard())
	ok, err = other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, other.Unlock())
}

func TestDesktopConcurrentOpenersOnOneBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipgate.lock")
	d := newDesktop(path, false)
	require.NoError(t, d.OpenClipboard(0))

	var group errgroup.Group
	for range 8 {
		group.Go(func() error {
			if err := d.OpenClipboard(0); err == nil {
				return d.CloseClipboard()
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
	require.True(t, d.IsOpen())

	ok, err := flock.New(path).TryLock()
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, d.CloseClipboard())
}

func TestDesktopCloseWithoutOpen(t *testing.T) {
	d := newDesktop(filepath.Join(t.TempDir(), "clipgate.lock"), false)
	require.ErrorIs(t, d.CloseClipboard(), ErrClipboardNotOpen)
}

func TestDesktopMarksTextDirty(t *testing.T) {
	d := newDesktop(filepath.Join(t.TempDir(), "clipgate.lock"), false)
	require.NoError(t, d.OpenClipboard(0))

	h, err := d.GlobalAlloc(GHND, 2)
	require.NoError(t, err)
	require.NoError(t, d.SetClipboardData(0xC001, h))
	require.False(t, d.dirty.Load())

	h, err = d.GlobalAlloc(GHND, 2)
	require.NoError(t, err)
	require.NoError(t, d.SetClipboardData(CFUnicodeText, h))
	require.True(t, d.dirty.Load())

	require.NoError(t, d.CloseClipboard())
	require.False(t, d.dirty.Load())
}

func TestLockPathOverride(t *testing.T) {
	t.Setenv("CLIPGATE_LOCK", "/tmp/custom.lock")
	require.Equal(t, "/tmp/custom.lock", LockPath())

	t.Setenv("CLIPGATE_LOCK", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	require.Equal(t, "/run/user/1000/clipgate.lock", LockPath())
}
