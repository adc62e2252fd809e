// Package options provides data structures and functions for configuring a brickpool store.
package options

import (
	"path/filepath"
	"strings"

	"github.com/iamBelugaa/brickpool/pkg/errors"
)

// Defines the configuration parameters for a brickpool store.
type Options struct {
	// Specifies the directory holding the store file.
	//
	// Default: "/var/lib/brickpool"
	DataDir string `json:"dataDir"`

	// Name of the store file inside DataDir. Also used to tag logs and statistics.
	//
	// Default: "records.db"
	StoreName string `json:"storeName"`

	// Fixed size of every record in the store file, in bytes. Must be at least one.
	//
	// Default: 64
	RecordSize uint32 `json:"recordSize"`

	// Memory budget in bytes for resident brick windows.
	//
	// Default: 64MB
	MappedMemory uint64 `json:"mappedMemory"`

	// Selects memory mapped brick windows. When false bricks are fully buffered on the heap.
	//
	// Default: true
	UseMemoryMapped bool `json:"useMemoryMapped"`

	// Opens the store read only. Flushes become no-ops and writes are rejected.
	ReadOnly bool `json:"readOnly"`

	// Number of brick misses that triggers a residency rebalance.
	//
	// Default: 50000
	RefreshThreshold int64 `json:"refreshThreshold"`
}

type OptionFunc func(*Options)

// Applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = DefaultOptions()
	}
}

// Sets the directory holding the store file.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// Sets the store file name.
func WithStoreName(name string) OptionFunc {
	return func(o *Options) {
		name = strings.TrimSpace(name)
		if name != "" {
			o.StoreName = name
		}
	}
}

// Sets the fixed record size.
func WithRecordSize(size uint32) OptionFunc {
	return func(o *Options) {
		o.RecordSize = size
	}
}

// Sets the memory budget for resident windows.
func WithMappedMemory(bytes uint64) OptionFunc {
	return func(o *Options) {
		o.MappedMemory = bytes
	}
}

// Chooses between memory mapped and fully buffered brick windows.
func WithMemoryMapped(enabled bool) OptionFunc {
	return func(o *Options) {
		o.UseMemoryMapped = enabled
	}
}

// Opens the store read only.
func WithReadOnly(readOnly bool) OptionFunc {
	return func(o *Options) {
		o.ReadOnly = readOnly
	}
}

// Sets the brick miss count that triggers a rebalance.
func WithRefreshThreshold(misses int64) OptionFunc {
	return func(o *Options) {
		if misses >= MinRefreshThreshold {
			o.RefreshThreshold = misses
		}
	}
}

// StorePath returns the full path of the store file.
func (o *Options) StorePath() string {
	return filepath.Join(o.DataDir, o.StoreName)
}

// Validate checks the options for values the pool cannot work with.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.DataDir) == "" {
		return errors.NewRequiredFieldError("dataDir")
	}

	if strings.TrimSpace(o.StoreName) == "" {
		return errors.NewRequiredFieldError("storeName")
	}

	if o.RecordSize == 0 || o.RecordSize > MaxRecordSize {
		return errors.NewFieldRangeError("recordSize", o.RecordSize, 1, MaxRecordSize)
	}

	if o.RefreshThreshold < MinRefreshThreshold {
		return errors.NewFieldRangeError("refreshThreshold", o.RefreshThreshold, MinRefreshThreshold, "unbounded")
	}

	return nil
}
