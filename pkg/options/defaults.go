package options

const (
	DefaultDataDir   string = "/var/lib/brickpool"
	DefaultStoreName string = "records.db"

	DefaultRecordSize uint32 = 64
	MaxRecordSize     uint32 = 1 << 20

	// DefaultMappedMemory is the memory budget for resident brick windows.
	DefaultMappedMemory uint64 = 64 * 1024 * 1024

	// DefaultRefreshThreshold is the number of brick misses after which a rebalance runs.
	DefaultRefreshThreshold int64 = 50000
	MinRefreshThreshold     int64 = 1
)

var defaultOptions = Options{
	DataDir:          DefaultDataDir,
	StoreName:        DefaultStoreName,
	RecordSize:       DefaultRecordSize,
	MappedMemory:     DefaultMappedMemory,
	UseMemoryMapped:  true,
	ReadOnly:         false,
	RefreshThreshold: DefaultRefreshThreshold,
}

func DefaultOptions() Options {
	return defaultOptions
}
