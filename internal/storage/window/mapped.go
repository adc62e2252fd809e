package window

import (
	"github.com/iamBelugaa/brickpool/pkg/errors"
	"github.com/iamBelugaa/brickpool/pkg/filesys"
)

// MappedWindow maps a brick of the store file into memory. Writes land directly in the
// shared mapping, so row windows writing through the channel and the mapping always see
// each other's data.
type MappedWindow struct {
	lockable
	position   int64
	recordSize int
	records    int
	readOnly   bool
	mapping    []byte // full mapping, page aligned
	data       []byte // the brick inside mapping
}

// NewMappedWindow maps windowBytes starting at record position. A writable window grows
// the file first so the whole brick is backed. A read only window fails when the file is
// shorter than the brick.
func NewMappedWindow(
	position int64, recordSize, windowBytes int, channel filesys.FileChannel, readOnly bool,
) (*MappedWindow, error) {
	offset := position * int64(recordSize)
	end := offset + int64(windowBytes)

	size, err := channel.Size()
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrIOSizeFailed, "failed to read file size").
			WithPath(channel.Name())
	}

	if size < end {
		if readOnly {
			return nil, errors.NewPoolError(nil, errors.ErrPoolMapFailed, "window extends past end of read only file").
				WithPosition(position).
				WithDetail("fileSize", size).
				WithDetail("windowEnd", end)
		}
		if err := channel.Grow(end); err != nil {
			return nil, errors.NewPoolError(err, errors.ErrPoolMapFailed, "failed to grow file for mapping").
				WithPosition(position).
				WithDetail("windowEnd", end)
		}
	}

	mapping, data, err := mmap(channel.Fd(), offset, windowBytes, readOnly)
	if err != nil {
		return nil, errors.NewPoolError(err, errors.ErrPoolMapFailed, "failed to map window").
			WithPosition(position).
			WithDetail("offset", offset).
			WithDetail("length", windowBytes)
	}

	w := &MappedWindow{
		position:   position,
		recordSize: recordSize,
		records:    windowBytes / recordSize,
		readOnly:   readOnly,
		mapping:    mapping,
		data:       data,
	}
	w.init()
	return w, nil
}

func (w *MappedWindow) Position() int64 { return w.position }
func (w *MappedWindow) Size() int       { return w.records }
func (w *MappedWindow) Kind() Kind      { return KindMapped }

func (w *MappedWindow) Encapsulates(position int64) bool {
	return position >= w.position && position < w.position+int64(w.records)
}

func (w *MappedWindow) Record(position int64) ([]byte, error) {
	if !w.Encapsulates(position) {
		return nil, errOutOfWindow(w, position)
	}
	if w.data == nil {
		return nil, errWindowClosed(w)
	}
	start := int(position-w.position) * w.recordSize
	return w.data[start : start+w.recordSize : start+w.recordSize], nil
}

// Force syncs the mapping to disk.
func (w *MappedWindow) Force() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.readOnly || !w.dirty {
		return nil
	}
	if err := msync(w.mapping); err != nil {
		return errors.NewStorageError(err, errors.ErrIOSyncFailed, "failed to sync mapped window").
			WithOffset(w.position * int64(w.recordSize))
	}
	if !w.locked {
		w.dirty = false
	}
	return nil
}

// AcceptContents is never needed: the mapping shares the page cache with the channel.
func (w *MappedWindow) AcceptContents(other Window) error {
	return errors.NewPoolError(nil, errors.ErrPoolInvalidWindow, "mapped windows do not accept contents").
		WithPosition(w.position).
		WithDetail("sourceKind", other.Kind().String())
}

func (w *MappedWindow) WriteOutAndCloseIfFree(readOnly bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return true, nil
	}
	if w.marksPending() || w.locked {
		return false, nil
	}

	if w.dirty && !readOnly && !w.readOnly {
		if err := msync(w.mapping); err != nil {
			return false, errors.NewStorageError(err, errors.ErrIOSyncFailed, "failed to sync mapped window").
				WithOffset(w.position * int64(w.recordSize))
		}
	}
	return true, w.unmap()
}

func (w *MappedWindow) Reset() error {
	return nil
}

func (w *MappedWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	return w.unmap()
}

// unmap releases the mapping. Callers hold mu.
func (w *MappedWindow) unmap() error {
	w.closed = true
	mapping := w.mapping
	w.mapping, w.data = nil, nil
	if err := munmap(mapping); err != nil {
		return errors.NewPoolError(err, errors.ErrIOCloseFailed, "failed to unmap window").
			WithPosition(w.position)
	}
	return nil
}
