package clipaccess

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"go.klb.dev/clipgate/internal/native"
)

// Info is one locked global memory block bound to a clipboard format. Read
// infos view the clipboard's own block; write infos own a fresh block that
// is handed to the clipboard when Close succeeds. Bytes is valid only until
// Close or Abort, and an Info must be closed before its token is released.
type Info struct {
	api        native.API
	handle     native.Handle
	ptr        unsafe.Pointer
	format     uint32
	size       int
	needsWrite bool
	once       sync.Once
}

// Handle returns the global memory handle behind the info.
func (i *Info) Handle() native.Handle { return i.handle }

// Format returns the clipboard format the block is bound to.
func (i *Info) Format() uint32 { return i.format }

// Size returns the block size in bytes.
func (i *Info) Size() int { return i.size }

// NeedsWrite reports whether Close publishes the block to the clipboard.
func (i *Info) NeedsWrite() bool { return i.needsWrite }

// Bytes returns the locked memory region.
func (i *Info) Bytes() []byte {
	if i.ptr == nil || i.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(i.ptr), i.size)
}

// Close unlocks the block and, for write infos, publishes it as the
// clipboard data for the format. If publishing fails the block is freed and
// the error returned. Later calls return nil.
func (i *Info) Close() error {
	var err error
	i.once.Do(func() {
		i.unlock()
		if !i.needsWrite {
			return
		}
		if perr := i.api.SetClipboardData(i.format, i.handle); perr != nil {
			if ferr := i.api.GlobalFree(i.handle); ferr != nil {
				slog.Debug("free unpublished clipboard block", "format", i.format, "err", ferr)
			}
			err = &OSError{Op: "SetClipboardData", Format: i.format, Err: perr}
		}
	})
	return err
}

// Abort unlocks the block without publishing it. Write blocks are freed.
// It is a no-op after Close.
func (i *Info) Abort() {
	i.once.Do(func() {
		i.unlock()
		if !i.needsWrite {
			return
		}
		if err := i.api.GlobalFree(i.handle); err != nil {
			slog.Debug("free aborted clipboard block", "format", i.format, "err", err)
		}
	})
}

func (i *Info) unlock() {
	i.ptr = nil
	if err := i.api.GlobalUnlock(i.handle); err != nil {
		slog.Debug("unlock clipboard block", "format", i.format, "err", err)
	}
}

// ReadInfo locks the clipboard's block for format. It returns an
// *AccessDeniedError if t does not hold the clipboard, ErrFormatUnavailable
// if the format is absent, and an *OSError for any other failure.
func ReadInfo(t *Token, format uint32) (*Info, error) {
	if err := t.CheckAccess(); err != nil {
		return nil, err
	}
	h, err := t.api.GetClipboardData(format)
	if err != nil {
		if !t.api.IsClipboardFormatAvailable(format) {
			return nil, fmt.Errorf("%w: %d", ErrFormatUnavailable, format)
		}
		return nil, &OSError{Op: "GetClipboardData", Format: format, Err: err}
	}
	return lockInfo(t.api, h, format, false)
}

// TryReadInfo is ReadInfo without errors: it reports false when access, the
// format or the lock is unavailable.
func TryReadInfo(t *Token, format uint32) (*Info, bool) {
	if !t.CanAccess() {
		return nil, false
	}
	h, err := t.api.GetClipboardData(format)
	if err != nil {
		return nil, false
	}
	info, err := lockInfo(t.api, h, format, false)
	if err != nil {
		return nil, false
	}
	return info, true
}

// WriteInfo allocates a zeroed movable block of size bytes for format and
// locks it for writing. Nothing reaches the clipboard until Close.
func WriteInfo(t *Token, format uint32, size int) (*Info, error) {
	if err := t.CheckAccess(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	h, err := t.api.GlobalAlloc(native.GHND, uintptr(size))
	if err != nil {
		return nil, &OSError{Op: "GlobalAlloc", Format: format, Err: err}
	}
	info, err := lockInfo(t.api, h, format, true)
	if err != nil {
		if ferr := t.api.GlobalFree(h); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return nil, err
	}
	info.size = size
	return info, nil
}

func lockInfo(api native.API, h native.Handle, format uint32, write bool) (*Info, error) {
	size, err := api.GlobalSize(h)
	if err != nil {
		return nil, &OSError{Op: "GlobalSize", Format: format, Err: err}
	}
	ptr, err := api.GlobalLock(h)
	if err != nil {
		return nil, &OSError{Op: "GlobalLock", Format: format, Err: err}
	}
	return &Info{
		api:        api,
		handle:     h,
		ptr:        ptr,
		format:     format,
		size:       int(size),
		needsWrite: write,
	}, nil
}

// ReadBytes returns a copy of the clipboard data for format.
func ReadBytes(t *Token, format uint32) ([]byte, error) {
	info, err := ReadInfo(t, format)
	if err != nil {
		return nil, err
	}
	defer info.Close()
	return append([]byte(nil), info.Bytes()...), nil
}

// WriteBytes publishes data as the clipboard data for format.
func WriteBytes(t *Token, format uint32, data []byte) error {
	info, err := WriteInfo(t, format, len(data))
	if err != nil {
		return err
	}
	copy(info.Bytes(), data)
	return info.Close()
}

// Empty clears the clipboard and makes the window the token was acquired
// for its owner. Call it before writing a new set of formats.
func Empty(t *Token) error {
	if err := t.CheckAccess(); err != nil {
		return err
	}
	if err := t.api.EmptyClipboard(); err != nil {
		return &OSError{Op: "EmptyClipboard", Err: err}
	}
	return nil
}

// IsFormatAvailable reports whether the clipboard holds data for format.
func IsFormatAvailable(t *Token, format uint32) bool {
	return t.CanAccess() && t.api.IsClipboardFormatAvailable(format)
}
