//go:build !windows

package native

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.design/x/clipboard"

	"go.klb.dev/clipgate/internal/textfmt"
)

// desktop keeps handles in a Memory table and arbitrates OpenClipboard
// between processes with a lock file. Plain text is mirrored to and from the
// system clipboard when one is available.
type desktop struct {
	*Memory
	mu     sync.Mutex // serialises open and close around the file lock
	lock   *flock.Flock
	system bool
	dirty  atomic.Bool
	pulled []byte
}

// LockPath returns the lock file that stands in for the desktop-wide
// clipboard lock. Override with $CLIPGATE_LOCK.
func LockPath() string {
	if p := os.Getenv("CLIPGATE_LOCK"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipgate.lock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("clipgate-%d.lock", os.Getuid()))
}

// New returns the portable clipboard backend. clipboard.Init is called here
// so that a headless host degrades to a session-local clipboard instead of
// failing.
func New() (API, error) {
	path := LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("lock dir: %w", err)
	}
	system := true
	if err := clipboard.Init(); err != nil {
		slog.Warn("system clipboard unavailable, using session-local store", "err", err)
		system = false
	}
	return newDesktop(path, system), nil
}

func newDesktop(path string, system bool) *desktop {
	d := &desktop{
		Memory: NewMemory(),
		lock:   flock.New(path),
		system: system,
	}
	d.Memory.OnPublish(func(format uint32) {
		if format == CFUnicodeText || format == CFText {
			d.dirty.Store(true)
		}
	})
	return d
}

func (d *desktop) OpenClipboard(owner HWND) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// TryLock reports success without a syscall when this Flock already holds
	// the file, so a second opener on the same desktop must stop here.
	if d.Memory.IsOpen() {
		return ErrClipboardBusy
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClipboardBusy, err)
	}
	if !ok {
		return ErrClipboardBusy
	}
	if err := d.Memory.OpenClipboard(owner); err != nil {
		return errors.Join(err, d.lock.Unlock())
	}
	d.pull()
	return nil
}

func (d *desktop) CloseClipboard() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dirty.Swap(false) {
		d.push()
	}
	err := d.Memory.CloseClipboard()
	return errors.Join(err, d.lock.Unlock())
}

// pull seeds the text formats from the system clipboard when it changed
// since the last pull or push.
func (d *desktop) pull() {
	if !d.system {
		return
	}
	text := clipboard.Read(clipboard.FmtText)
	if text == nil || bytes.Equal(text, d.pulled) {
		return
	}
	d.pulled = text
	d.Memory.Seed(CFUnicodeText, textfmt.EncodeUnicode(string(text)))
	d.Memory.Seed(CFText, textfmt.EncodeANSI(string(text)))
	slog.Debug("pulled system clipboard text", "size_bytes", len(text))
}

func (d *desktop) push() {
	if !d.system {
		return
	}
	var text string
	if data, ok := d.Memory.Snapshot(CFUnicodeText); ok {
		text = textfmt.DecodeUnicode(data)
	} else if data, ok := d.Memory.Snapshot(CFText); ok {
		text = textfmt.DecodeANSI(data)
	} else {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	d.pulled = []byte(text)
	slog.Debug("pushed text to system clipboard", "size_bytes", len(text))
}
