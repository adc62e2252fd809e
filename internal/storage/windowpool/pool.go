// Package windowpool hands out locked windows over the records of a fixed-record-size store
// file. The file is split into bricks; under a memory budget the hottest bricks are kept
// resident (memory mapped or fully buffered) and every other record is served through a
// short lived row window. Residency is rebalanced from decaying hit scores after a number
// of brick misses.
package windowpool

import (
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
	"github.com/iamBelugaa/brickpool/pkg/errors"
	"github.com/iamBelugaa/brickpool/pkg/filesys"
)

const (
	// MaxBrickCount caps the number of bricks sizing will plan for.
	MaxBrickCount = 100000

	// DefaultRefreshThreshold is the brick miss count that triggers a rebalance.
	DefaultRefreshThreshold = 50000
)

// Config describes the store a pool serves.
type Config struct {
	// Name identifies the store in logs and statistics.
	Name string
	// BlockSize is the fixed record size. Zero disables bricks.
	BlockSize int
	// AvailableMem is the budget in bytes for resident brick windows.
	AvailableMem int64
	// UseMemoryMapped selects mapped brick windows over fully buffered ones.
	UseMemoryMapped bool
	ReadOnly        bool
	// RefreshThreshold overrides DefaultRefreshThreshold when positive.
	RefreshThreshold int64
}

// Pool manages the windows of one store file.
type Pool struct {
	name             string
	blockSize        int
	channel          filesys.FileChannel
	availableMem     int64
	useMemoryMapped  bool
	readOnly         bool
	refreshThreshold int64
	log              *zap.SugaredLogger

	// brickSize is fixed once setupBricks has run. Zero means no bricks.
	brickSize int
	bricks    atomic.Pointer[[]*brickElement]
	memUsed   atomic.Int64
	rows      activeRows

	// mu serialises structural changes: refresh, expansion and close. Releasing a dirty
	// row holds the read side so no brick is loaded from the file between its merge and
	// its write out.
	mu     sync.RWMutex
	closed atomic.Bool

	hit       looseCounter
	miss      looseCounter
	brickMiss looseCounter

	switches   atomic.Int64
	ooe        atomic.Int64
	refreshing atomic.Bool
	averted    atomic.Int64
	refreshes  atomic.Int64
	refreshNs  atomic.Int64
}

// New creates the pool for a store and sizes its brick grid from the current file size.
// Only a failure to read the file size is returned; a budget too small to be useful
// turns resident windows off instead.
func New(cfg Config, channel filesys.FileChannel, log *zap.SugaredLogger) (*Pool, error) {
	if cfg.BlockSize < 0 {
		return nil, errors.NewFieldRangeError("blockSize", cfg.BlockSize, 0, "unbounded")
	}

	threshold := cfg.RefreshThreshold
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}

	p := &Pool{
		name:             cfg.Name,
		blockSize:        cfg.BlockSize,
		channel:          channel,
		availableMem:     max(cfg.AvailableMem, 0),
		useMemoryMapped:  cfg.UseMemoryMapped,
		readOnly:         cfg.ReadOnly,
		refreshThreshold: threshold,
		log:              log.With("store", cfg.Name),
	}

	if err := p.setupBricks(); err != nil {
		return nil, err
	}
	if err := p.dumpStatus(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) grid() []*brickElement {
	if g := p.bricks.Load(); g != nil {
		return *g
	}
	return nil
}

// recordsPerBrick is exact: sizing keeps brickSize a multiple of blockSize.
func (p *Pool) recordsPerBrick() int64 {
	return int64(p.brickSize / p.blockSize)
}

func (p *Pool) positionToBrickIndex(position int64) int64 {
	return position / p.recordsPerBrick()
}

func (p *Pool) brickIndexToPosition(index int) int64 {
	return int64(index) * p.recordsPerBrick()
}

// expansionLimit is the first brick index Acquire will not grow the grid to. Positions
// at or past it are served by row windows.
func (p *Pool) expansionLimit(current int) int64 {
	covered := int64(current)
	if size, err := p.channel.Size(); err == nil {
		covered = max(covered, size/int64(p.brickSize)+1)
	}
	return covered + MaxBrickCount
}

func (p *Pool) errClosed(position int64) error {
	return errors.NewPoolError(nil, errors.ErrPoolClosed, "window pool is closed").
		WithStore(p.name).
		WithPosition(position)
}

// Acquire returns a window covering position, locked for op. A brick with a resident
// window is a hit; otherwise the record is served by a row window shared by every
// caller of the same position. A brick is never made resident while a row window for
// one of its records is live, so a record is only ever written through one window. A
// caller holds at most one window at a time.
func (p *Pool) Acquire(position int64, op window.OperationType) (window.Window, error) {
	if p.closed.Load() {
		return nil, p.errClosed(position)
	}
	if position < 0 {
		return nil, errors.NewPoolError(nil, errors.ErrPoolOutOfWindow, "negative record position").
			WithStore(p.name).
			WithPosition(position)
	}
	if p.blockSize > 0 && position > math.MaxInt64/int64(p.blockSize) {
		return nil, errors.NewPoolError(nil, errors.ErrPoolOutOfWindow, "record position overflows the file offset").
			WithStore(p.name).
			WithPosition(position)
	}

	if p.brickMiss.load() >= p.refreshThreshold {
		p.refreshBricks()
	}

	var w window.Window
	for w == nil {
		if p.brickSize > 0 {
			index := p.positionToBrickIndex(position)
			bricks := p.grid()
			if index >= int64(len(bricks)) && index < p.expansionLimit(len(bricks)) {
				p.expandBricks(int(index) + 1)
				if bricks = p.grid(); index >= int64(len(bricks)) {
					return nil, p.errClosed(position)
				}
			}

			if index < int64(len(bricks)) {
				brick := bricks[index]
				// A refresh on another goroutine may have closed this window between the
				// load and the mark; that counts as a miss.
				if resident := brick.window(); resident != nil && resident.MarkAsInUse() {
					w = resident
				}
				brick.setHit()
			}
		}

		if w != nil {
			p.hit.inc()
			break
		}

		p.miss.inc()
		p.brickMiss.inc()
		w = p.acquireRow(position)
	}

	w.Lock(op)
	return w, nil
}

// acquireRow finds or installs the row window for position and marks it in use. It
// returns nil when it lost a race and the caller should go around again.
//
// Rows are installed under the read side of mu and bricks are loaded under the write
// side, so a brick that became resident since the miss is served instead of a row.
func (p *Pool) acquireRow(position int64) window.Window {
	if p.brickSize > 0 {
		p.mu.RLock()
		defer p.mu.RUnlock()

		if resident := p.residentWindow(position); resident != nil {
			if resident.MarkAsInUse() {
				return resident
			}
			return nil
		}
	}

	if existing, ok := p.rows.get(position); ok && existing.MarkAsInUse() {
		return existing
	}

	// Marked before publishing so a concurrent holder never sees it as free.
	fresh := window.NewRowWindow(position, p.blockSize, p.channel)
	fresh.MarkAsInUse()

	existing, loaded := p.rows.putIfAbsent(position, fresh)
	if !loaded {
		return fresh
	}

	if existing.MarkAsInUse() {
		_ = fresh.Close()
		return existing
	}

	// The installed row is closing. Take its slot if it is still there.
	if p.rows.replace(position, existing, fresh) {
		return fresh
	}
	_ = fresh.Close()
	return nil
}

// Release hands a window back. A dirty row is merged into a buffered brick window that
// appeared while the row was held, then written out and dropped unless another caller is
// already waiting for it. The window is always unlocked, even when this fails.
func (p *Pool) Release(w window.Window) (err error) {
	if w == nil {
		return nil
	}
	defer w.Unlock()

	if w.Kind() != window.KindRow {
		return nil
	}

	if p.brickSize > 0 && w.IsDirty() {
		p.mu.RLock()
		defer p.mu.RUnlock()

		if err := p.applyChangesToWindowIfNecessary(w); err != nil {
			return err
		}
	}

	closed, err := w.WriteOutAndCloseIfFree(p.readOnly)
	if err != nil {
		return err
	}
	if closed {
		p.rows.remove(w.Position(), w)
		return nil
	}
	return w.Reset()
}

// residentWindow returns the resident window of the brick covering position, if any.
func (p *Pool) residentWindow(position int64) window.Window {
	index := p.positionToBrickIndex(position)
	if bricks := p.grid(); index < int64(len(bricks)) {
		return bricks[index].window()
	}
	return nil
}

func (p *Pool) applyChangesToWindowIfNecessary(row window.Window) error {
	index := p.positionToBrickIndex(row.Position())
	bricks := p.grid()
	if index >= int64(len(bricks)) {
		return nil
	}

	resident := bricks[index].window()
	if resident == nil || resident.Kind() == window.KindMapped || !resident.MarkAsInUse() {
		return nil
	}

	resident.Lock(window.Write)
	defer resident.Unlock()

	if err := resident.AcceptContents(row); err != nil {
		return errors.NewPoolError(err, errors.ErrPoolMergeFailed, "failed to merge row into brick window").
			WithStore(p.name).
			WithPosition(row.Position()).
			WithBrick(int(index))
	}
	return nil
}

// BrickSize returns the brick size in bytes, zero when resident windows are off.
func (p *Pool) BrickSize() int {
	return p.brickSize
}

// BrickCount returns the current number of bricks.
func (p *Pool) BrickCount() int {
	return len(p.grid())
}
