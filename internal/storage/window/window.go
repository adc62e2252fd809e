// Package window implements the lockable byte-range handles the window pool hands out:
// single-record row windows, fully buffered plain windows and memory mapped windows.
package window

import (
	"github.com/iamBelugaa/brickpool/pkg/errors"
)

// OperationType is the kind of access a window is locked for.
type OperationType uint8

const (
	Read OperationType = iota
	Write
)

func (op OperationType) String() string {
	if op == Write {
		return "write"
	}
	return "read"
}

// Kind identifies the window variant. The pool picks behaviour from it instead of
// inspecting concrete types.
type Kind uint8

const (
	KindRow Kind = iota
	KindPlain
	KindMapped
)

func (k Kind) String() string {
	switch k {
	case KindRow:
		return "row"
	case KindPlain:
		return "plain"
	case KindMapped:
		return "mapped"
	default:
		return "unknown"
	}
}

// Window is a lockable handle over a range of records in the store file.
//
// A caller first marks the window in use, then locks it, works on the bytes returned by
// Record and finally unlocks it. MarkAsInUse fails once the window has been closed,
// which is how a caller notices it lost a race against eviction.
type Window interface {
	// Position is the first record covered by the window.
	Position() int64
	// Size is the number of records covered by the window.
	Size() int
	Kind() Kind
	Encapsulates(position int64) bool
	// Record returns the bytes of the record at position. The slice is only valid
	// while the window is locked.
	Record(position int64) ([]byte, error)

	MarkAsInUse() bool
	Lock(op OperationType)
	Unlock()

	IsDirty() bool
	Force() error
	AcceptContents(other Window) error
	// WriteOutAndCloseIfFree writes dirty contents and closes the window, unless some
	// other caller still has it marked or locked.
	WriteOutAndCloseIfFree(readOnly bool) (bool, error)
	Reset() error
	Close() error
}

func errOutOfWindow(w Window, position int64) error {
	return errors.NewPoolError(nil, errors.ErrPoolOutOfWindow, "position is not covered by window").
		WithPosition(position).
		WithDetail("windowPosition", w.Position()).
		WithDetail("windowSize", w.Size()).
		WithDetail("kind", w.Kind().String())
}

func errWindowClosed(w Window) error {
	return errors.NewPoolError(nil, errors.ErrPoolWindowClosed, "window is closed").
		WithPosition(w.Position()).
		WithDetail("kind", w.Kind().String())
}
