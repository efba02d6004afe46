package native

import (
	"fmt"
	"sync"
	"unsafe"
)

const firstHandle Handle = 0x1000

type block struct {
	data  []byte
	locks int
	// owned is set once the block has been handed to the clipboard.
	owned bool
}

// Memory is an in-process clipboard with Win32 handle semantics: blocks are
// allocated, locked and unlocked by handle, and SetClipboardData transfers
// ownership of a block to the clipboard. It is safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	next      Handle
	blocks    map[Handle]*block
	formats   map[uint32]Handle
	open      bool
	opener    HWND
	owner     HWND
	external  bool
	attempts  int
	sequence  uint64
	failNext  map[string]error
	onPublish func(format uint32)
}

// NewMemory returns an empty, closed clipboard.
func NewMemory() *Memory {
	return &Memory{
		next:     firstHandle,
		blocks:   make(map[Handle]*block),
		formats:  make(map[uint32]Handle),
		failNext: make(map[string]error),
	}
}

func (m *Memory) injected(op string) error {
	if err, ok := m.failNext[op]; ok {
		delete(m.failNext, op)
		return err
	}
	return nil
}

func (m *Memory) lookup(h Handle) (*block, error) {
	b, ok := m.blocks[h]
	if !ok {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidHandle, uintptr(h))
	}
	return b, nil
}

func (m *Memory) OpenClipboard(owner HWND) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if err := m.injected("OpenClipboard"); err != nil {
		return err
	}
	if m.external || m.open {
		return ErrClipboardBusy
	}
	m.open = true
	m.opener = owner
	return nil
}

func (m *Memory) CloseClipboard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CloseClipboard"); err != nil {
		m.open = false
		return err
	}
	if !m.open {
		return ErrClipboardNotOpen
	}
	m.open = false
	m.opener = 0
	return nil
}

func (m *Memory) EmptyClipboard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("EmptyClipboard"); err != nil {
		return err
	}
	if !m.open {
		return ErrClipboardNotOpen
	}
	for f, h := range m.formats {
		delete(m.blocks, h)
		delete(m.formats, f)
	}
	m.owner = m.opener
	m.sequence++
	return nil
}

func (m *Memory) IsClipboardFormatAvailable(format uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.formats[format]
	return ok
}

func (m *Memory) GetClipboardData(format uint32) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetClipboardData"); err != nil {
		return 0, err
	}
	if !m.open {
		return 0, ErrClipboardNotOpen
	}
	h, ok := m.formats[format]
	if !ok {
		return 0, ErrNoData
	}
	return h, nil
}

func (m *Memory) SetClipboardData(format uint32, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("SetClipboardData"); err != nil {
		return err
	}
	if !m.open {
		return ErrClipboardNotOpen
	}
	b, err := m.lookup(h)
	if err != nil {
		return err
	}
	if prev, ok := m.formats[format]; ok && prev != h {
		delete(m.blocks, prev)
	}
	b.owned = true
	m.formats[format] = h
	m.sequence++
	if m.onPublish != nil {
		m.onPublish(format)
	}
	return nil
}

func (m *Memory) GlobalAlloc(flags uint32, size uintptr) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GlobalAlloc"); err != nil {
		return 0, err
	}
	h := m.next
	m.next += 8
	m.blocks[h] = &block{data: make([]byte, size)}
	return h, nil
}

func (m *Memory) GlobalLock(h Handle) (unsafe.Pointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GlobalLock"); err != nil {
		return nil, err
	}
	b, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if len(b.data) == 0 {
		return nil, fmt.Errorf("%w: zero-length block %#x", ErrInvalidHandle, uintptr(h))
	}
	b.locks++
	return unsafe.Pointer(&b.data[0]), nil
}

func (m *Memory) GlobalUnlock(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.lookup(h)
	if err != nil {
		return err
	}
	if b.locks == 0 {
		return ErrNotLocked
	}
	b.locks--
	return nil
}

func (m *Memory) GlobalSize(h Handle) (uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.lookup(h)
	if err != nil {
		return 0, err
	}
	return uintptr(len(b.data)), nil
}

func (m *Memory) GlobalFree(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.lookup(h)
	if err != nil {
		return err
	}
	if b.owned {
		return fmt.Errorf("%w: %#x is owned by the clipboard", ErrInvalidHandle, uintptr(h))
	}
	delete(m.blocks, h)
	return nil
}

// HoldExternally makes every OpenClipboard fail with ErrClipboardBusy, as if
// another process had the clipboard open, until ReleaseExternal is called.
func (m *Memory) HoldExternally() {
	m.mu.Lock()
	m.external = true
	m.mu.Unlock()
}

// ReleaseExternal undoes HoldExternally.
func (m *Memory) ReleaseExternal() {
	m.mu.Lock()
	m.external = false
	m.mu.Unlock()
}

// FailNext makes the next call of the named API method return err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	m.failNext[op] = err
	m.mu.Unlock()
}

// OpenAttempts reports how many times OpenClipboard has been called.
func (m *Memory) OpenAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// IsOpen reports whether the clipboard is currently open.
func (m *Memory) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Owner returns the window that last emptied the clipboard.
func (m *Memory) Owner() HWND {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// LockCount returns the lock count of h, or -1 if h is not allocated.
func (m *Memory) LockCount(h Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[h]
	if !ok {
		return -1
	}
	return b.locks
}

// Allocated returns the number of live blocks, including those owned by the
// clipboard.
func (m *Memory) Allocated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

// Sequence increments every time the clipboard contents change.
func (m *Memory) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequence
}

// Snapshot returns a copy of the published data for format without opening
// the clipboard.
func (m *Memory) Snapshot(format uint32) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.formats[format]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), m.blocks[h].data...), true
}

// Seed publishes data for format directly, replacing any previous entry. It
// does not require the clipboard to be open and does not fire the publish
// callback.
func (m *Memory) Seed(format uint32, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.formats[format]; ok {
		delete(m.blocks, prev)
	}
	h := m.next
	m.next += 8
	m.blocks[h] = &block{data: append([]byte(nil), data...), owned: true}
	m.formats[format] = h
	m.sequence++
}

// OnPublish registers fn to be called, with the Memory lock held, each time
// SetClipboardData succeeds.
func (m *Memory) OnPublish(fn func(format uint32)) {
	m.mu.Lock()
	m.onPublish = fn
	m.mu.Unlock()
}
