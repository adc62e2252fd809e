// Package engine provides the record store engine: one store file of fixed-size records
// served through a window pool.
package engine

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
	"github.com/iamBelugaa/brickpool/internal/storage/windowpool"
	"github.com/iamBelugaa/brickpool/pkg/errors"
	"github.com/iamBelugaa/brickpool/pkg/filesys"
	"github.com/iamBelugaa/brickpool/pkg/options"
)

var (
	ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")
)

// Engine owns the store file channel and the window pool in front of it.
type Engine struct {
	closed     atomic.Bool
	recordSize int
	channel    *filesys.Channel
	pool       *windowpool.Pool
	options    *options.Options
	log        *zap.SugaredLogger
}

// New opens (or creates) the store file described by options and builds its window pool.
func New(ctx context.Context, log *zap.SugaredLogger, options *options.Options) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Infow(
		"Initializing record store engine",
		"dataDir", options.DataDir,
		"store", options.StoreName,
		"recordSize", options.RecordSize,
		"readOnly", options.ReadOnly,
	)

	if !options.ReadOnly {
		if err := filesys.CreateDir(options.DataDir, 0755, true); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrIOGeneral, "Failed to create data directory").
				WithPath(options.DataDir)
		}
	}

	path := options.StorePath()
	channel, err := filesys.OpenChannel(path, options.ReadOnly)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrIOOpenFailed, "Failed to open store file").
			WithStore(options.StoreName).
			WithPath(path)
	}

	pool, err := windowpool.New(windowpool.Config{
		Name:             options.StoreName,
		BlockSize:        int(options.RecordSize),
		AvailableMem:     int64(options.MappedMemory),
		UseMemoryMapped:  options.UseMemoryMapped,
		ReadOnly:         options.ReadOnly,
		RefreshThreshold: options.RefreshThreshold,
	}, channel, log)
	if err != nil {
		if closeErr := channel.Close(); closeErr != nil {
			log.Errorw("Failed to close store file after pool setup error", "setupError", err, "closeError", closeErr)
		}
		return nil, err
	}

	log.Infow("Record store engine initialized", "path", path, "brickSize", pool.BrickSize())
	return &Engine{
		recordSize: int(options.RecordSize),
		channel:    channel,
		pool:       pool,
		options:    options,
		log:        log,
	}, nil
}

// RecordSize returns the fixed record size of the store.
func (e *Engine) RecordSize() int {
	return e.recordSize
}

// ReadRecord copies record id out of the store.
func (e *Engine) ReadRecord(ctx context.Context, id int64) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := e.pool.Acquire(id, window.Read)
	if err != nil {
		return nil, err
	}

	record, err := w.Record(id)
	if err != nil {
		return nil, multierr.Append(err, e.pool.Release(w))
	}

	out := make([]byte, len(record))
	copy(out, record)
	return out, e.pool.Release(w)
}

// WriteRecord replaces record id with data, which must be exactly one record long.
func (e *Engine) WriteRecord(ctx context.Context, id int64, data []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.options.ReadOnly {
		return errors.NewValidationError(nil, errors.ErrStoreReadOnly, "store is opened read only").
			WithDetail("store", e.options.StoreName)
	}
	if len(data) != e.recordSize {
		return errors.NewValidationError(nil, errors.ErrValidationInvalidData, "record has the wrong size").
			WithProvided(len(data)).
			WithExpected(e.recordSize)
	}

	w, err := e.pool.Acquire(id, window.Write)
	if err != nil {
		return err
	}

	record, err := w.Record(id)
	if err != nil {
		return multierr.Append(err, e.pool.Release(w))
	}

	copy(record, data)
	return e.pool.Release(w)
}

// Flush makes every write durable.
func (e *Engine) Flush(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.pool.FlushAll()
}

// Refresh rebalances resident windows immediately.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.pool.Refresh()
	return nil
}

// Stats returns the window pool statistics.
func (e *Engine) Stats() (windowpool.Stats, error) {
	if e.closed.Load() {
		return windowpool.Stats{}, ErrEngineClosed
	}
	return e.pool.GetStats(), nil
}

// Close flushes and closes the pool, then the store file.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	var err error
	e.log.Infow("Closing record store engine")

	if poolErr := e.pool.Close(); poolErr != nil {
		e.log.Errorw("Failed to close window pool", "error", poolErr)
		err = multierr.Append(err, fmt.Errorf("failed to close window pool: %w", poolErr))
	}

	if closeErr := e.channel.Close(); closeErr != nil {
		e.log.Errorw("Failed to close store file", "error", closeErr)
		err = multierr.Append(err, errors.NewStorageError(
			closeErr, errors.ErrIOCloseFailed, "failed to close store file",
		).
			WithStore(e.options.StoreName).
			WithPath(e.channel.Name()))
	}

	if err != nil {
		return err
	}

	e.log.Infow("Record store engine closed successfully")
	return nil
}
