package window

import "sync"

// lockable holds the in-use and lock bookkeeping shared by every window variant.
// All fields are guarded by mu.
type lockable struct {
	mu     sync.Mutex
	cond   *sync.Cond
	marked int
	locked bool
	closed bool
	dirty  bool
}

func (l *lockable) init() {
	l.cond = sync.NewCond(&l.mu)
}

// MarkAsInUse registers an upcoming Lock. It fails once the window is closed.
func (l *lockable) MarkAsInUse() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.marked++
	return true
}

// Lock waits for the current holder to leave, then takes the window and consumes one mark.
func (l *lockable) Lock(op OperationType) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.locked {
		l.cond.Wait()
	}

	l.locked = true
	if l.marked > 0 {
		l.marked--
	}
	if op == Write {
		l.dirty = true
	}
}

func (l *lockable) Unlock() {
	l.mu.Lock()
	l.locked = false
	l.mu.Unlock()
	l.cond.Signal()
}

func (l *lockable) IsDirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// marksPending reports whether another caller has marked the window and not locked it yet.
// Callers hold mu.
func (l *lockable) marksPending() bool {
	return l.marked > 0
}
