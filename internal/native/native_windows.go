//go:build windows

package native

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard              = user32.NewProc("OpenClipboard")
	procCloseClipboard             = user32.NewProc("CloseClipboard")
	procEmptyClipboard             = user32.NewProc("EmptyClipboard")
	procGetClipboardData           = user32.NewProc("GetClipboardData")
	procSetClipboardData           = user32.NewProc("SetClipboardData")
	procIsClipboardFormatAvailable = user32.NewProc("IsClipboardFormatAvailable")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalFree   = kernel32.NewProc("GlobalFree")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
	procGlobalSize   = kernel32.NewProc("GlobalSize")
)

// win32 sends the clipboard calls to one locked OS thread so that a token
// opened on one goroutine can be closed from another. The Global* calls are
// not thread-bound and run on the caller.
type win32 struct {
	th *thread
}

// New returns the Win32 clipboard API. It fails only if user32 or kernel32
// cannot be loaded.
func New() (API, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("load user32: %w", err)
	}
	if err := kernel32.Load(); err != nil {
		return nil, fmt.Errorf("load kernel32: %w", err)
	}
	return win32{th: newThread()}, nil
}

// call invokes p on the clipboard thread. GetLastError is read there too.
func (w win32) call(p *windows.LazyProc, args ...uintptr) (r uintptr, err error) {
	w.th.do(func() { r, _, err = p.Call(args...) })
	return r, err
}

// lastError converts the error returned by LazyProc.Call, which is never
// nil, into nil when GetLastError reported success.
func lastError(err error) error {
	if errno, ok := err.(windows.Errno); ok && errno == 0 {
		return nil
	}
	return err
}

func (w win32) OpenClipboard(owner HWND) error {
	r, err := w.call(procOpenClipboard, uintptr(owner))
	if r == 0 {
		if err = lastError(err); err == nil {
			return ErrClipboardBusy
		}
		return fmt.Errorf("%w: %w", ErrClipboardBusy, err)
	}
	return nil
}

func (w win32) CloseClipboard() error {
	r, err := w.call(procCloseClipboard)
	if r == 0 {
		if err = lastError(err); err == nil {
			return ErrClipboardNotOpen
		}
		return err
	}
	return nil
}

func (w win32) EmptyClipboard() error {
	r, err := w.call(procEmptyClipboard)
	if r == 0 {
		if err = lastError(err); err == nil {
			return ErrClipboardNotOpen
		}
		return err
	}
	return nil
}

func (w win32) IsClipboardFormatAvailable(format uint32) bool {
	r, _ := w.call(procIsClipboardFormatAvailable, uintptr(format))
	return r != 0
}

func (w win32) GetClipboardData(format uint32) (Handle, error) {
	r, err := w.call(procGetClipboardData, uintptr(format))
	if r == 0 {
		if err = lastError(err); err == nil {
			return 0, ErrNoData
		}
		return 0, err
	}
	return Handle(r), nil
}

func (w win32) SetClipboardData(format uint32, h Handle) error {
	r, err := w.call(procSetClipboardData, uintptr(format), uintptr(h))
	if r == 0 {
		if err = lastError(err); err == nil {
			return fmt.Errorf("SetClipboardData(%d) returned NULL", format)
		}
		return err
	}
	return nil
}

func (win32) GlobalAlloc(flags uint32, size uintptr) (Handle, error) {
	r, _, err := procGlobalAlloc.Call(uintptr(flags), size)
	if r == 0 {
		if err = lastError(err); err == nil {
			return 0, fmt.Errorf("GlobalAlloc(%d) returned NULL", size)
		}
		return 0, err
	}
	return Handle(r), nil
}

func (win32) GlobalLock(h Handle) (unsafe.Pointer, error) {
	r, _, err := procGlobalLock.Call(uintptr(h))
	if r == 0 {
		if err = lastError(err); err == nil {
			return nil, ErrInvalidHandle
		}
		return nil, err
	}
	// The block is outside the Go heap; copy the address through memory so
	// vet does not flag the uintptr conversion.
	return *(*unsafe.Pointer)(unsafe.Pointer(&r)), nil
}

func (win32) GlobalUnlock(h Handle) error {
	r, _, err := procGlobalUnlock.Call(uintptr(h))
	if r == 0 {
		// Zero with NO_ERROR means the lock count reached zero.
		if err = lastError(err); err == nil {
			return nil
		}
		if err == windows.ERROR_NOT_LOCKED {
			return ErrNotLocked
		}
		return err
	}
	return nil
}

func (win32) GlobalSize(h Handle) (uintptr, error) {
	r, _, err := procGlobalSize.Call(uintptr(h))
	if r == 0 {
		if err = lastError(err); err == nil {
			return 0, nil
		}
		return 0, err
	}
	return r, nil
}

func (win32) GlobalFree(h Handle) error {
	r, _, err := procGlobalFree.Call(uintptr(h))
	if r != 0 {
		if err = lastError(err); err == nil {
			return ErrInvalidHandle
		}
		return err
	}
	return nil
}
