package windowpool

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
	"github.com/iamBelugaa/brickpool/pkg/filesys"
)

const testBlockSize = 16

// newTestPool creates a store file of fileSize bytes and a pool over it.
func newTestPool(t *testing.T, cfg Config, fileSize int64) (*Pool, *filesys.Channel) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "store.db")
	writable, err := filesys.OpenChannel(path, false)
	require.NoError(t, err, "create store file")
	require.NoError(t, writable.Truncate(fileSize), "size store file")
	require.NoError(t, writable.Close())

	channel, err := filesys.OpenChannel(path, cfg.ReadOnly)
	require.NoError(t, err, "open store file")
	t.Cleanup(func() { _ = channel.Close() })

	if cfg.Name == "" {
		cfg.Name = "test"
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = testBlockSize
	}
	if cfg.RefreshThreshold == 0 {
		cfg.RefreshThreshold = 1 << 40
	}

	p, err := New(cfg, channel, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err, "create pool")
	t.Cleanup(func() {
		if !p.closed.Load() {
			_ = p.Close()
		}
	})
	return p, channel
}

// touch acquires and releases position without reading it.
func touch(t *testing.T, p *Pool, position int64) {
	t.Helper()
	w, err := p.Acquire(position, window.Read)
	require.NoError(t, err, "acquire %d", position)
	require.NoError(t, p.Release(w), "release %d", position)
}

func writeAt(t *testing.T, p *Pool, position int64, data []byte) {
	t.Helper()
	w, err := p.Acquire(position, window.Write)
	require.NoError(t, err, "acquire %d", position)
	record, err := w.Record(position)
	require.NoError(t, err)
	copy(record, data)
	require.NoError(t, p.Release(w), "release %d", position)
}

func readAt(t *testing.T, p *Pool, position int64) ([]byte, window.Kind) {
	t.Helper()
	w, err := p.Acquire(position, window.Read)
	require.NoError(t, err, "acquire %d", position)
	record, err := w.Record(position)
	require.NoError(t, err)
	out := append([]byte(nil), record...)
	kind := w.Kind()
	require.NoError(t, p.Release(w), "release %d", position)
	return out, kind
}

// increment adds one to the counter kept in the first eight bytes of position.
func increment(p *Pool, position int64) error {
	w, err := p.Acquire(position, window.Write)
	if err != nil {
		return err
	}
	record, err := w.Record(position)
	if err != nil {
		_ = p.Release(w)
		return err
	}
	binary.LittleEndian.PutUint64(record, binary.LittleEndian.Uint64(record)+1)
	return p.Release(w)
}

func fileRecord(t *testing.T, channel filesys.FileChannel, position int64) []byte {
	t.Helper()
	buf := make([]byte, testBlockSize)
	_, err := channel.ReadAt(buf, position*testBlockSize)
	require.NoError(t, err, "read record %d from file", position)
	return buf
}

func fill(b byte) []byte {
	out := make([]byte, testBlockSize)
	for i := range out {
		out[i] = b
	}
	return out
}

func residentBricks(p *Pool) []*brickElement {
	var resident []*brickElement
	for _, brick := range p.grid() {
		if brick.window() != nil {
			resident = append(resident, brick)
		}
	}
	return resident
}
