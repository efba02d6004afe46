package native

import "runtime"

// thread runs calls one at a time on a single goroutine locked to its OS
// thread. Win32 binds an open clipboard to the thread that opened it, so
// OpenClipboard, SetClipboardData, EmptyClipboard and CloseClipboard must all
// run here no matter which goroutine holds the token.
type thread struct {
	calls chan func()
}

func newThread() *thread {
	t := &thread{calls: make(chan func())}
	started := make(chan struct{})
	go t.loop(started)
	<-started
	return t
}

// loop never unlocks the OS thread; the goroutine lives as long as the
// backend that owns it.
func (t *thread) loop(started chan<- struct{}) {
	runtime.LockOSThread()
	close(started)
	for fn := range t.calls {
		fn()
	}
}

// do runs fn on the locked thread and waits for it to return.
func (t *thread) do(fn func()) {
	done := make(chan struct{})
	t.calls <- func() {
		defer close(done)
		fn()
	}
	<-done
}
