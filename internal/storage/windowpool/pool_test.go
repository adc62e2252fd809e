package windowpool

import (
	"encoding/binary"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
	"github.com/iamBelugaa/brickpool/pkg/errors"
)

func TestAcquireRelease(t *testing.T) {
	t.Run("RowWindowWhenBricksDisabled", func(t *testing.T) {
		p, channel := newTestPool(t, Config{}, 0)

		writeAt(t, p, 5, fill('r'))
		assert.Equal(t, fill('r'), fileRecord(t, channel, 5), "row written out on release")

		data, kind := readAt(t, p, 5)
		assert.Equal(t, window.KindRow, kind)
		assert.Equal(t, fill('r'), data)

		stats := p.GetStats()
		assert.Zero(t, stats.Hits)
		assert.Equal(t, int64(2), stats.Misses)
		assert.Zero(t, stats.ActiveRows, "released rows are dropped")
	})

	t.Run("NegativePosition", func(t *testing.T) {
		p, _ := newTestPool(t, Config{}, 0)
		_, err := p.Acquire(-1, window.Read)
		assert.True(t, errors.HasCode(err, errors.ErrPoolOutOfWindow))
	})

	t.Run("ResidentBrickIsAHit", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)

		touch(t, p, 0)
		p.Refresh()

		resident := residentBricks(p)
		require.Len(t, resident, 1, "only the requested brick is loaded")
		assert.Equal(t, 0, resident[0].index)

		_, kind := readAt(t, p, 5)
		assert.Equal(t, window.KindPlain, kind)

		stats := p.GetStats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, int64(p.BrickSize()), stats.UsedMemory)
	})

	t.Run("ReleaseNil", func(t *testing.T) {
		p, _ := newTestPool(t, Config{}, 0)
		assert.NoError(t, p.Release(nil))
	})

	t.Run("ClosedPool", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)
		touch(t, p, 0)
		p.Refresh()

		require.NoError(t, p.Close())
		assert.Zero(t, p.GetStats().UsedMemory)
		assert.Empty(t, residentBricks(p))

		_, err := p.Acquire(0, window.Read)
		assert.True(t, errors.HasCode(err, errors.ErrPoolClosed))
		assert.True(t, errors.HasCode(p.Close(), errors.ErrPoolClosed))
		assert.True(t, errors.HasCode(p.FlushAll(), errors.ErrPoolClosed))
	})
}

func TestMergeOnRelease(t *testing.T) {
	t.Run("PromotionWaitsForLiveRow", func(t *testing.T) {
		p, channel := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)

		row, err := p.Acquire(5, window.Write)
		require.NoError(t, err)
		require.Equal(t, window.KindRow, row.Kind())
		record, err := row.Record(5)
		require.NoError(t, err)
		copy(record, fill('m'))

		p.Refresh()
		assert.Empty(t, residentBricks(p), "brick stays off while its row is live")
		assert.Zero(t, p.GetStats().MapFailures)

		require.NoError(t, p.Release(row))
		p.Refresh()
		require.Len(t, residentBricks(p), 1)

		data, kind := readAt(t, p, 5)
		assert.Equal(t, window.KindPlain, kind)
		assert.Equal(t, fill('m'), data, "brick loaded after the row was written out")

		require.NoError(t, p.FlushAll())
		assert.Equal(t, fill('m'), fileRecord(t, channel, 5))
	})

	t.Run("IntoBufferedBrick", func(t *testing.T) {
		p, channel := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)

		row, err := p.Acquire(5, window.Write)
		require.NoError(t, err)
		record, err := row.Record(5)
		require.NoError(t, err)
		copy(record, fill('n'))

		// A buffered window holding the old bytes lands on the brick behind the row.
		plain := window.NewPlainWindow(0, testBlockSize, p.BrickSize(), channel)
		require.NoError(t, plain.ReadFullWindow())
		p.grid()[0].setWindow(plain)
		p.memUsed.Add(int64(p.BrickSize()))

		require.NoError(t, p.Release(row))

		data, kind := readAt(t, p, 5)
		assert.Equal(t, window.KindPlain, kind)
		assert.Equal(t, fill('n'), data, "row changes merged into the brick window")

		require.NoError(t, p.FlushAll())
		assert.Equal(t, fill('n'), fileRecord(t, channel, 5))
	})
}

func TestMappedCoherence(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("memory mapped windows need linux or darwin")
	}

	p, channel := newTestPool(t, Config{AvailableMem: 1_600_000, UseMemoryMapped: true}, 160_000)

	writeAt(t, p, 7, fill('c'))
	p.Refresh()
	require.Len(t, residentBricks(p), 1)

	data, kind := readAt(t, p, 7)
	assert.Equal(t, window.KindMapped, kind)
	assert.Equal(t, fill('c'), data, "mapping sees the row written through the channel")

	writeAt(t, p, 8, fill('d'))
	require.NoError(t, p.FlushAll())
	assert.Equal(t, fill('d'), fileRecord(t, channel, 8))
}

func TestConcurrentWrites(t *testing.T) {
	const (
		workers    = 8
		iterations = 500
	)

	run := func(t *testing.T, p *Pool, positions ...int64) {
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					for _, position := range positions {
						if err := increment(p, position); err != nil {
							errs <- err
							return
						}
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	}

	t.Run("SameRowPosition", func(t *testing.T) {
		p, channel := newTestPool(t, Config{}, 0)
		run(t, p, 42)

		got := binary.LittleEndian.Uint64(fileRecord(t, channel, 42))
		assert.Equal(t, uint64(workers*iterations), got, "no lost update")
		assert.Zero(t, p.GetStats().ActiveRows)
	})

	t.Run("RowsAndResidentBrick", func(t *testing.T) {
		p, channel := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)
		touch(t, p, 0)
		p.Refresh()
		require.Len(t, residentBricks(p), 1)

		run(t, p, 5, 5000)
		require.NoError(t, p.FlushAll())

		want := uint64(workers * iterations)
		assert.Equal(t, want, binary.LittleEndian.Uint64(fileRecord(t, channel, 5)), "brick record")
		assert.Equal(t, want, binary.LittleEndian.Uint64(fileRecord(t, channel, 5000)), "row record")
	})

	// Bricks are evicted and loaded again while every writer hammers one record, so the
	// record moves between row and brick windows under load.
	churn := func(t *testing.T, mapped bool) {
		p, channel := newTestPool(t, Config{AvailableMem: 1_600_000, UseMemoryMapped: mapped}, 160_000)

		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-stop:
					return
				default:
				}

				p.Refresh()
				p.mu.Lock()
				for _, brick := range p.grid() {
					p.evict(brick)
				}
				p.mu.Unlock()

				if w, err := p.Acquire(0, window.Read); err == nil {
					_ = p.Release(w)
				}
			}
		}()

		run(t, p, 5)
		close(stop)
		<-done

		require.NoError(t, p.FlushAll())
		got := binary.LittleEndian.Uint64(fileRecord(t, channel, 5))
		assert.Equal(t, uint64(workers*iterations), got, "no lost update across residency changes")
		assert.Zero(t, p.GetStats().ActiveRows)
	}

	t.Run("ResidencyChurnBuffered", func(t *testing.T) {
		churn(t, false)
	})

	t.Run("ResidencyChurnMapped", func(t *testing.T) {
		if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
			t.Skip("memory mapped windows need linux or darwin")
		}
		churn(t, true)
	})
}

func TestAcquireRow(t *testing.T) {
	t.Run("SharesInstalledRow", func(t *testing.T) {
		p, _ := newTestPool(t, Config{}, 0)

		first := p.acquireRow(3)
		second := p.acquireRow(3)
		require.NotNil(t, first)
		assert.Same(t, first, second, "one row window per position")
		assert.Equal(t, int64(1), p.rows.len())

		// Released while another caller still has it marked: the row stays.
		first.Lock(window.Read)
		require.NoError(t, p.Release(first))
		assert.Equal(t, int64(1), p.rows.len())

		second.Lock(window.Read)
		require.NoError(t, p.Release(second))
		assert.Zero(t, p.rows.len())
		assert.False(t, second.MarkAsInUse(), "last release closes the row")
	})

	t.Run("ReplacesClosingRow", func(t *testing.T) {
		p, channel := newTestPool(t, Config{}, 0)

		stale := window.NewRowWindow(3, testBlockSize, channel)
		require.NoError(t, stale.Close())
		p.rows.putIfAbsent(3, stale)

		w, err := p.Acquire(3, window.Read)
		require.NoError(t, err)
		assert.NotSame(t, stale, w)

		installed, ok := p.rows.get(3)
		require.True(t, ok)
		assert.Same(t, w, window.Window(installed))

		require.NoError(t, p.Release(w))
		assert.Zero(t, p.GetStats().ActiveRows)
	})
}
