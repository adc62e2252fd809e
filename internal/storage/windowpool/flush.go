package windowpool

import (
	"go.uber.org/multierr"

	"github.com/iamBelugaa/brickpool/pkg/errors"
)

// FlushAll forces every resident window and then the file itself to stable storage.
// A read only pool has nothing to flush.
func (p *Pool) FlushAll() error {
	if p.closed.Load() {
		return p.errClosed(0)
	}
	return p.flushAll()
}

func (p *Pool) flushAll() error {
	if p.readOnly {
		return nil
	}

	var err error
	for _, brick := range p.grid() {
		if w := brick.window(); w != nil {
			err = multierr.Append(err, w.Force())
		}
	}

	if syncErr := p.channel.Sync(); syncErr != nil {
		err = multierr.Append(err, errors.NewStorageError(
			syncErr, errors.ErrIOSyncFailed, "failed to flush file channel",
		).
			WithStore(p.name).
			WithPath(p.channel.Name()))
	}
	return err
}

// Close flushes and closes every resident window and forgets all row windows. The
// caller guarantees nothing is acquired or released concurrently. The channel itself
// belongs to the caller and stays open.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed.CompareAndSwap(false, true) {
		return p.errClosed(0)
	}

	err := p.flushAll()
	for _, brick := range p.grid() {
		if w := brick.window(); w != nil {
			if closeErr := w.Close(); closeErr != nil {
				p.log.Errorw("Failed to close brick window", "brick", brick.index, "error", closeErr)
				err = multierr.Append(err, closeErr)
			}
			brick.setWindow(nil)
		}
	}

	p.memUsed.Store(0)
	p.rows.clear()
	p.DumpStatistics()
	return err
}
