// Package native exposes the operating-system clipboard and global memory
// primitives behind a small interface. Build constraints select the backend:
//
//	native_windows.go — user32/kernel32 via golang.org/x/sys/windows
//	native_other.go   — Memory handle table, gofrs/flock session lock and
//	                    golang.design/x/clipboard text sync
//
// Memory is also usable on its own as a simulated clipboard in tests.
package native

import (
	"errors"
	"unsafe"
)

// Handle is an opaque global memory handle (HGLOBAL).
type Handle uintptr

// HWND is an opaque window handle. The zero value binds the clipboard to the
// calling task rather than a window.
type HWND uintptr

// Standard clipboard format ids.
const (
	CFText        uint32 = 1
	CFBitmap      uint32 = 2
	CFOEMText     uint32 = 7
	CFDIB         uint32 = 8
	CFUnicodeText uint32 = 13
	CFHDrop       uint32 = 15
	CFLocale      uint32 = 16
	CFDIBV5       uint32 = 17
)

// GlobalAlloc flags.
const (
	GMemMoveable uint32 = 0x0002
	GMemZeroInit uint32 = 0x0040
	GHND                = GMemMoveable | GMemZeroInit
)

var (
	// ErrClipboardBusy is returned by OpenClipboard when another process or
	// thread currently has the clipboard open.
	ErrClipboardBusy = errors.New("clipboard is open elsewhere")

	// ErrClipboardNotOpen is returned by operations that require the caller
	// to have opened the clipboard.
	ErrClipboardNotOpen = errors.New("clipboard is not open")

	// ErrNoData is returned by GetClipboardData when the format is absent.
	ErrNoData = errors.New("no data for clipboard format")

	// ErrInvalidHandle is returned for handles that were never allocated or
	// have been freed.
	ErrInvalidHandle = errors.New("invalid global memory handle")

	// ErrNotLocked is returned by GlobalUnlock on a handle whose lock count
	// is already zero.
	ErrNotLocked = errors.New("global memory handle is not locked")
)

// API is the set of OS calls the clipboard access layer depends on. The
// signatures follow the Win32 functions of the same name with errors in
// place of GetLastError.
type API interface {
	OpenClipboard(owner HWND) error
	CloseClipboard() error
	EmptyClipboard() error
	IsClipboardFormatAvailable(format uint32) bool
	GetClipboardData(format uint32) (Handle, error)
	SetClipboardData(format uint32, h Handle) error

	GlobalAlloc(flags uint32, size uintptr) (Handle, error)
	GlobalLock(h Handle) (unsafe.Pointer, error)
	GlobalUnlock(h Handle) error
	GlobalSize(h Handle) (uintptr, error)
	GlobalFree(h Handle) error
}

// FormatName returns a short name for the standard formats and "" otherwise.
func FormatName(format uint32) string {
	switch format {
	case CFText:
		return "CF_TEXT"
	case CFBitmap:
		return "CF_BITMAP"
	case CFOEMText:
		return "CF_OEMTEXT"
	case CFDIB:
		return "CF_DIB"
	case CFUnicodeText:
		return "CF_UNICODETEXT"
	case CFHDrop:
		return "CF_HDROP"
	case CFLocale:
		return "CF_LOCALE"
	case CFDIBV5:
		return "CF_DIBV5"
	default:
		return ""
	}
}
