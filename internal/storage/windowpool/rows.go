package windowpool

import (
	"sync"
	"sync/atomic"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
)

// activeRows maps a record position to the row window currently serving it.
// Lookups and installs never take a lock.
type activeRows struct {
	rows  sync.Map // int64 -> *window.RowWindow
	count atomic.Int64
}

func (t *activeRows) get(position int64) (*window.RowWindow, bool) {
	v, ok := t.rows.Load(position)
	if !ok {
		return nil, false
	}
	return v.(*window.RowWindow), true
}

// putIfAbsent installs row unless another row is already there, in which case that row
// is returned with loaded set.
func (t *activeRows) putIfAbsent(position int64, row *window.RowWindow) (*window.RowWindow, bool) {
	v, loaded := t.rows.LoadOrStore(position, row)
	if !loaded {
		t.count.Add(1)
	}
	return v.(*window.RowWindow), loaded
}

// replace swaps a row that is being closed for a fresh one.
func (t *activeRows) replace(position int64, old, fresh *window.RowWindow) bool {
	return t.rows.CompareAndSwap(position, old, fresh)
}

// remove deletes the entry only if it still holds row.
func (t *activeRows) remove(position int64, row window.Window) bool {
	if t.rows.CompareAndDelete(position, row) {
		t.count.Add(-1)
		return true
	}
	return false
}

// anyWithin reports whether a row is installed for a position in [from, to).
func (t *activeRows) anyWithin(from, to int64) bool {
	if t.count.Load() == 0 {
		return false
	}

	found := false
	t.rows.Range(func(key, _ any) bool {
		if position := key.(int64); position >= from && position < to {
			found = true
		}
		return !found
	})
	return found
}

func (t *activeRows) len() int64 {
	return t.count.Load()
}

func (t *activeRows) clear() {
	t.rows.Clear()
	t.count.Store(0)
}
