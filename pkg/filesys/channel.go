package filesys

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

var (
	ErrChannelClosed = errors.New("file channel is closed")
)

// FileChannel is the positional file handle every window works against.
type FileChannel interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Truncate(size int64) error
	Grow(size int64) error
	Sync() error
	Fd() uintptr
	Name() string
	ReadOnly() bool
	Close() error
}

// Channel is a FileChannel over an *os.File.
type Channel struct {
	file     *os.File
	readOnly bool
	closed   atomic.Bool
}

// OpenChannel opens path for positional access, creating it when writable.
func OpenChannel(path string, readOnly bool) (*Channel, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	return &Channel{file: file, readOnly: readOnly}, nil
}

// ReadAt reads len(p) bytes at off. A read that runs past the end of the file returns
// the bytes that exist and io.EOF.
func (c *Channel) ReadAt(p []byte, off int64) (int, error) {
	if c.closed.Load() {
		return 0, ErrChannelClosed
	}
	return c.file.ReadAt(p, off)
}

func (c *Channel) WriteAt(p []byte, off int64) (int, error) {
	if c.closed.Load() {
		return 0, ErrChannelClosed
	}
	return c.file.WriteAt(p, off)
}

// Size returns the current length of the file.
func (c *Channel) Size() (int64, error) {
	if c.closed.Load() {
		return 0, ErrChannelClosed
	}

	stat, err := c.file.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

func (c *Channel) Truncate(size int64) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	return c.file.Truncate(size)
}

// Grow extends the file to at least size bytes. It never shrinks the file and never
// overwrites bytes already written, so it is safe against concurrent WriteAt calls.
func (c *Channel) Grow(size int64) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if c.readOnly {
		return os.ErrPermission
	}
	return grow(c.file, size)
}

// Sync flushes file content to stable storage. Read only channels have nothing to flush.
func (c *Channel) Sync() error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if c.readOnly {
		return nil
	}
	return c.file.Sync()
}

func (c *Channel) Fd() uintptr {
	return c.file.Fd()
}

func (c *Channel) Name() string {
	return c.file.Name()
}

func (c *Channel) ReadOnly() bool {
	return c.readOnly
}

// Close closes the underlying file. Closing twice returns ErrChannelClosed.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrChannelClosed
	}
	return c.file.Close()
}
