package window

import (
	"io"

	"github.com/iamBelugaa/brickpool/pkg/errors"
	"github.com/iamBelugaa/brickpool/pkg/filesys"
)

// RowWindow covers a single record. The pool creates one whenever the record's brick has
// no resident window.
//
// The record is loaded on the first Record call rather than at construction: a row only
// becomes visible to other callers once it is installed in the pool, and any previous row
// for the same position has written itself out by then.
type RowWindow struct {
	lockable
	position   int64
	recordSize int
	channel    filesys.FileChannel
	buffer     []byte
	loaded     bool
}

// NewRowWindow creates an unloaded row window for position.
func NewRowWindow(position int64, recordSize int, channel filesys.FileChannel) *RowWindow {
	row := &RowWindow{
		position:   position,
		recordSize: recordSize,
		channel:    channel,
		buffer:     make([]byte, recordSize),
	}
	row.init()
	return row
}

func (r *RowWindow) offset() int64 {
	return r.position * int64(r.recordSize)
}

// read loads the record. Bytes past the end of the file read as zero.
func (r *RowWindow) read() error {
	n, err := r.channel.ReadAt(r.buffer, r.offset())
	if err != nil && err != io.EOF {
		return errors.NewStorageError(err, errors.ErrIOReadFailed, "failed to read record").
			WithPath(r.channel.Name()).
			WithOffset(r.offset())
	}
	clear(r.buffer[n:])
	r.loaded = true
	return nil
}

func (r *RowWindow) writeOut() error {
	if _, err := r.channel.WriteAt(r.buffer, r.offset()); err != nil {
		return errors.NewStorageError(err, errors.ErrIOWriteFailed, "failed to write record").
			WithPath(r.channel.Name()).
			WithOffset(r.offset())
	}
	r.dirty = false
	return nil
}

func (r *RowWindow) Position() int64 { return r.position }
func (r *RowWindow) Size() int       { return 1 }
func (r *RowWindow) Kind() Kind      { return KindRow }

func (r *RowWindow) Encapsulates(position int64) bool {
	return position == r.position
}

func (r *RowWindow) Record(position int64) ([]byte, error) {
	if position != r.position {
		return nil, errOutOfWindow(r, position)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errWindowClosed(r)
	}
	if !r.loaded {
		if err := r.read(); err != nil {
			return nil, err
		}
	}
	return r.buffer, nil
}

// Force writes the record when it is dirty.
func (r *RowWindow) Force() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.dirty || !r.loaded {
		return nil
	}
	return r.writeOut()
}

// AcceptContents is not supported: rows are the source of merges, never the target.
func (r *RowWindow) AcceptContents(other Window) error {
	return errors.NewPoolError(nil, errors.ErrPoolInvalidWindow, "row windows do not accept contents").
		WithPosition(r.position).
		WithDetail("sourceKind", other.Kind().String())
}

// WriteOutAndCloseIfFree is called by the holder on release, so the lock it holds does
// not count as busy. Any pending mark does.
func (r *RowWindow) WriteOutAndCloseIfFree(readOnly bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true, nil
	}
	if r.marksPending() {
		return false, nil
	}

	if r.dirty && r.loaded && !readOnly {
		if err := r.writeOut(); err != nil {
			return false, err
		}
	}
	r.closed = true
	return true, nil
}

// Reset prepares the row for the next waiting holder. A clean row is reloaded on its next
// use so it picks up writes that reached the file through other windows.
func (r *RowWindow) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		r.loaded = false
	}
	return nil
}

// Close discards the row without writing it.
func (r *RowWindow) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
