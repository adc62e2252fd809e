package window

import (
	"io"

	"github.com/iamBelugaa/brickpool/pkg/errors"
	"github.com/iamBelugaa/brickpool/pkg/filesys"
)

// PlainWindow keeps a whole brick in a heap buffer and writes it back on Force or when
// it is evicted.
type PlainWindow struct {
	lockable
	position   int64
	recordSize int
	records    int
	channel    filesys.FileChannel
	buffer     []byte
}

// NewPlainWindow allocates a window of windowBytes starting at record position. The buffer
// is empty until ReadFullWindow is called.
func NewPlainWindow(position int64, recordSize, windowBytes int, channel filesys.FileChannel) *PlainWindow {
	w := &PlainWindow{
		position:   position,
		recordSize: recordSize,
		records:    windowBytes / recordSize,
		channel:    channel,
		buffer:     make([]byte, windowBytes),
	}
	w.init()
	return w
}

func (w *PlainWindow) offset() int64 {
	return w.position * int64(w.recordSize)
}

// ReadFullWindow loads the brick from the channel. The part past the end of the file
// reads as zero.
func (w *PlainWindow) ReadFullWindow() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.channel.ReadAt(w.buffer, w.offset())
	if err != nil && err != io.EOF {
		return errors.NewStorageError(err, errors.ErrIOReadFailed, "failed to read window").
			WithPath(w.channel.Name()).
			WithOffset(w.offset()).
			WithDetail("length", len(w.buffer))
	}
	clear(w.buffer[n:])
	return nil
}

func (w *PlainWindow) writeOut() error {
	if _, err := w.channel.WriteAt(w.buffer, w.offset()); err != nil {
		return errors.NewStorageError(err, errors.ErrIOWriteFailed, "failed to write window").
			WithPath(w.channel.Name()).
			WithOffset(w.offset()).
			WithDetail("length", len(w.buffer))
	}
	return nil
}

func (w *PlainWindow) Position() int64 { return w.position }
func (w *PlainWindow) Size() int       { return w.records }
func (w *PlainWindow) Kind() Kind      { return KindPlain }

func (w *PlainWindow) Encapsulates(position int64) bool {
	return position >= w.position && position < w.position+int64(w.records)
}

func (w *PlainWindow) Record(position int64) ([]byte, error) {
	if !w.Encapsulates(position) {
		return nil, errOutOfWindow(w, position)
	}
	if w.buffer == nil {
		return nil, errWindowClosed(w)
	}
	start := int(position-w.position) * w.recordSize
	return w.buffer[start : start+w.recordSize : start+w.recordSize], nil
}

// Force writes the buffer back when dirty. A window still locked stays dirty since its
// holder may write more.
func (w *PlainWindow) Force() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.dirty {
		return nil
	}
	if err := w.writeOut(); err != nil {
		return err
	}
	if !w.locked {
		w.dirty = false
	}
	return nil
}

// AcceptContents copies the record held by a row window into the buffer. The caller holds
// the write lock on w.
func (w *PlainWindow) AcceptContents(other Window) error {
	position := other.Position()
	src, err := other.Record(position)
	if err != nil {
		return err
	}

	dst, err := w.Record(position)
	if err != nil {
		return err
	}

	w.mu.Lock()
	copy(dst, src)
	w.dirty = true
	w.mu.Unlock()
	return nil
}

// WriteOutAndCloseIfFree evicts the window unless it is marked or locked.
func (w *PlainWindow) WriteOutAndCloseIfFree(readOnly bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return true, nil
	}
	if w.marksPending() || w.locked {
		return false, nil
	}

	if w.dirty && !readOnly {
		if err := w.writeOut(); err != nil {
			return false, err
		}
		w.dirty = false
	}
	w.closed = true
	w.buffer = nil
	return true, nil
}

func (w *PlainWindow) Reset() error {
	return nil
}

func (w *PlainWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.buffer = nil
	return nil
}
