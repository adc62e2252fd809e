// Package brickpool provides a store of fixed-size records fronted by an adaptive window pool.
package brickpool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/iamBelugaa/brickpool/internal/engine"
	"github.com/iamBelugaa/brickpool/internal/storage/windowpool"
	"github.com/iamBelugaa/brickpool/pkg/logger"
	"github.com/iamBelugaa/brickpool/pkg/options"
)

// Stats is the window pool statistics snapshot returned by Instance.Stats.
type Stats = windowpool.Stats

// Instance is an open record store. Reads and writes run concurrently; Close waits for
// them to finish and excludes new ones.
type Instance struct {
	mu      sync.RWMutex
	engine  *engine.Engine
	options *options.Options
	log     *zap.SugaredLogger
}

// NewInstance opens a store with a logger named after service.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	return NewInstanceWithLogger(ctx, logger.New(service, zap.InfoLevel), opts...)
}

// NewInstanceWithLogger opens a store logging to log.
func NewInstanceWithLogger(ctx context.Context, log *zap.SugaredLogger, opts ...options.OptionFunc) (*Instance, error) {
	defaultOpts := options.DefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	if err := defaultOpts.Validate(); err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, log, &defaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize brickpool: %w", err)
	}

	log.Infow(
		"Brickpool instance initialized successfully",
		"dataDir", defaultOpts.DataDir,
		"store", defaultOpts.StoreName,
		"mappedMemory", defaultOpts.MappedMemory,
	)

	return &Instance{engine: eng, options: &defaultOpts, log: log}, nil
}

// Options returns the options the instance was opened with.
func (i *Instance) Options() options.Options {
	return *i.options
}

// Read returns a copy of record id.
func (i *Instance) Read(ctx context.Context, id int64) ([]byte, error) {
	if err := isValidRecordID(id); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine.ReadRecord(ctx, id)
}

// Write stores data as record id.
func (i *Instance) Write(ctx context.Context, id int64, data []byte) error {
	if err := isValidRecordID(id); err != nil {
		return err
	}
	if err := isValidRecord(data, i.engine.RecordSize()); err != nil {
		return err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine.WriteRecord(ctx, id, data)
}

// Flush makes all writes durable.
func (i *Instance) Flush(ctx context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine.Flush(ctx)
}

// Refresh rebalances resident windows now instead of waiting for the miss threshold.
func (i *Instance) Refresh(ctx context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine.Refresh(ctx)
}

func (i *Instance) Stats() (Stats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.engine.Stats()
}

func (i *Instance) Close() error {
	i.log.Infow("Close request received")

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.engine.Close()
}
