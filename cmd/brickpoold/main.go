package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/fulldump/goconfig"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iamBelugaa/brickpool/pkg/brickpool"
	"github.com/iamBelugaa/brickpool/pkg/checksum"
	"github.com/iamBelugaa/brickpool/pkg/errors"
	"github.com/iamBelugaa/brickpool/pkg/logger"
	"github.com/iamBelugaa/brickpool/pkg/options"
)

type Config struct {
	Dir        string `usage:"data directory"`
	Store      string `usage:"store file name"`
	RecordSize int64  `usage:"record size in bytes"`
	MappedMem  int64  `usage:"memory budget for resident windows, in bytes"`
	Mapped     bool   `usage:"use memory mapped windows instead of buffered ones"`
	ReadOnly   bool   `usage:"open the store read only and only verify records"`
	Records    int64  `usage:"number of distinct records to touch"`
	Operations int64  `usage:"operations per worker"`
	Workers    int    `usage:"number of concurrent workers"`
	HotPercent int64  `usage:"percentage of operations aimed at the first tenth of the records"`
	Refresh    int64  `usage:"brick misses between rebalances"`
	LogLevel   string `usage:"debug | info | warn | error"`
}

func main() {
	c := Config{
		Dir:        os.TempDir(),
		Store:      "brickpool.db",
		RecordSize: 128,
		MappedMem:  8 * 1024 * 1024,
		Mapped:     true,
		Records:    200_000,
		Operations: 100_000,
		Workers:    8,
		HotPercent: 80,
		Refresh:    int64(options.DefaultRefreshThreshold),
		LogLevel:   "info",
	}
	goconfig.Read(&c)

	ctx := context.Background()
	lg := logger.New("brickpoold", logger.ParseLevel(c.LogLevel))
	defer lg.Sync()

	instance, err := brickpool.NewInstanceWithLogger(
		ctx, lg,
		options.WithDataDir(c.Dir),
		options.WithStoreName(c.Store),
		options.WithRecordSize(uint32(c.RecordSize)),
		options.WithMappedMemory(uint64(c.MappedMem)),
		options.WithMemoryMapped(c.Mapped),
		options.WithReadOnly(c.ReadOnly),
		options.WithRefreshThreshold(c.Refresh),
	)
	if err != nil {
		if ve, ok := errors.AsValidationError(err); ok {
			log.Fatalf("invalid configuration: %s (field %q, provided %v)", ve.Error(), ve.Field(), ve.Provided())
		}
		log.Fatalf("instance create error: %v", err)
	}

	defer func() {
		if err := instance.Close(); err != nil {
			log.Fatalf("instance close error: %v", err)
		}
	}()

	start := time.Now()
	corrupt := run(ctx, instance, c)
	elapsed := time.Since(start)

	if !c.ReadOnly {
		if err := instance.Flush(ctx); err != nil {
			log.Fatalf("flush error: %v", err)
		}
	}

	stats, err := instance.Stats()
	if err != nil {
		log.Fatalf("stats error: %v", err)
	}

	out, err := encodeStats(stats, elapsed, corrupt)
	if err != nil {
		log.Fatalf("stats encoding error: %v", err)
	}
	fmt.Println(string(out))
}

// run drives a skewed random workload: HotPercent of operations hit the first tenth of
// the records, so the pool has a hot set worth keeping resident.
func run(ctx context.Context, instance *brickpool.Instance, c Config) int64 {
	crc := checksum.NewCRC32IEEE()
	hot := max(c.Records/10, 1)

	var corrupt int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < c.Workers; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed*31+7))
			record := make([]byte, c.RecordSize)

			for i := int64(0); i < c.Operations; i++ {
				id := rng.Int64N(c.Records)
				if rng.Int64N(100) < c.HotPercent {
					id = rng.Int64N(hot)
				}

				if c.ReadOnly || rng.IntN(2) == 0 {
					data, err := instance.Read(ctx, id)
					if err != nil {
						log.Fatalf("read %d: %v", id, err)
					}
					if !isZero(data) && !crc.Verify(data) {
						mu.Lock()
						corrupt++
						mu.Unlock()
					}
					continue
				}

				fillRecord(rng, record)
				crc.Seal(record)
				if err := instance.Write(ctx, id, record); err != nil {
					log.Fatalf("write %d: %v", id, err)
				}
			}
		}(uint64(w + 1))
	}

	wg.Wait()
	return corrupt
}

func fillRecord(rng *rand.Rand, record []byte) {
	for i := range record {
		record[i] = byte(rng.UintN(256))
	}
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func encodeStats(stats brickpool.Stats, elapsed time.Duration, corrupt int64) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"store":               stats.Name,
		"budget":              stats.Budget,
		"usedMemory":          stats.UsedMemory,
		"brickCount":          stats.BrickCount,
		"brickSize":           stats.BrickSize,
		"hits":                stats.Hits,
		"misses":              stats.Misses,
		"mapFailures":         stats.MapFailures,
		"switches":            stats.Switches,
		"avgRefreshMillis":    stats.AvgRefreshMillis,
		"refreshCount":        stats.RefreshCount,
		"avertedRefreshCount": stats.AvertedRefreshCount,
		"activeRows":          stats.ActiveRows,
		"corruptRecords":      corrupt,
		"elapsed":             elapsed.String(),
	})
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
}
