package windowpool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
	"github.com/iamBelugaa/brickpool/pkg/errors"
)

func TestBrickElement(t *testing.T) {
	t.Run("Decay", func(t *testing.T) {
		brick := newBrickElement(0)
		brick.hitCount.Store(100)
		brick.decay()
		assert.Equal(t, int32(80), brick.hit(), "unmapped decays by 1.25")

		brick.setWindow(window.NewRowWindow(0, testBlockSize, nil))
		brick.hitCount.Store(100)
		brick.decay()
		assert.Equal(t, int32(86), brick.hit(), "resident decays by 1.15")
		assert.Equal(t, "86o", brick.String())
	})

	t.Run("DecayNeverGrows", func(t *testing.T) {
		brick := newBrickElement(0)
		brick.hitCount.Store(math.MaxInt32)
		previous := brick.hit()
		for i := 0; i < 200; i++ {
			brick.decay()
			require.LessOrEqual(t, brick.hit(), previous)
			previous = brick.hit()
		}
		assert.Zero(t, brick.hit())
	})

	t.Run("HitSaturates", func(t *testing.T) {
		brick := newBrickElement(0)
		brick.setHit()
		assert.Equal(t, int32(hitIncrement), brick.hit())

		brick.hitCount.Store(math.MaxInt32 - 5)
		brick.setHit()
		assert.Equal(t, int32(math.MaxInt32-5), brick.hit())
	})

	t.Run("SnapshotOrdering", func(t *testing.T) {
		cold, hot := newBrickElement(0), newBrickElement(1)
		hot.hitCount.Store(50)
		cold.snapshotHitCount()
		hot.snapshotHitCount()

		// Later hits do not move the snapshot.
		cold.hitCount.Store(1000)
		assert.Equal(t, -1, compareSnapshots(cold, hot))
		assert.Equal(t, 1, compareSnapshots(hot, cold))
		assert.Equal(t, 0, compareSnapshots(hot, hot))
	})
}

func TestRefresh(t *testing.T) {
	// 10,000 bricks of ten records, budget for 1,000 of them.
	const (
		fileSize = 1_600_000
		budget   = 160_000
	)
	recordsPerBrick := int64(budget / 1000 / testBlockSize)

	t.Run("FillsBudgetWithoutOverlap", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget}, fileSize)
		require.Equal(t, 10_000, p.BrickCount())

		for i := int64(0); i < 2000; i++ {
			touch(t, p, i*recordsPerBrick)
		}
		p.Refresh()

		resident := residentBricks(p)
		assert.Len(t, resident, 1000)
		assert.Equal(t, int64(len(resident)*p.BrickSize()), p.GetStats().UsedMemory)
		assert.LessOrEqual(t, p.GetStats().UsedMemory, int64(budget))

		for _, brick := range resident {
			w := brick.window()
			assert.Equal(t, int64(brick.index)*recordsPerBrick, w.Position(), "brick %d start", brick.index)
			assert.Equal(t, int(recordsPerBrick), w.Size(), "brick %d span", brick.index)
			assert.GreaterOrEqual(t, brick.index, 1000, "untouched or colder bricks stay unmapped")
			assert.Less(t, brick.index, 2000)
		}
	})

	t.Run("StopsAtColdBricks", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget}, fileSize)
		touch(t, p, 0)
		touch(t, p, 10*recordsPerBrick)
		p.Refresh()

		assert.Len(t, residentBricks(p), 2, "budget left over is not spent on bricks nobody asked for")
	})

	t.Run("SwapsColdForHot", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget}, fileSize)
		for i := int64(0); i < 2000; i++ {
			touch(t, p, i*recordsPerBrick)
		}
		p.Refresh()

		for round := 0; round < 5; round++ {
			for i := int64(0); i < 100; i++ {
				touch(t, p, i*recordsPerBrick)
			}
		}
		p.Refresh()

		stats := p.GetStats()
		assert.Equal(t, int64(100), stats.Switches)
		assert.Equal(t, int64(2), stats.RefreshCount)
		assert.LessOrEqual(t, stats.UsedMemory, int64(budget))

		grid := p.grid()
		for i := 0; i < 100; i++ {
			assert.NotNil(t, grid[i].window(), "hot brick %d resident", i)
		}
		assert.Len(t, residentBricks(p), 1000)
	})

	t.Run("BusyWindowIsKept", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget}, fileSize)
		for i := int64(0); i < 1000; i++ {
			touch(t, p, i*recordsPerBrick)
		}
		p.Refresh()
		require.Len(t, residentBricks(p), 1000)

		// Hold every resident window so none can be evicted.
		var held []window.Window
		for _, brick := range residentBricks(p) {
			w, err := p.Acquire(brick.window().Position(), window.Read)
			require.NoError(t, err)
			held = append(held, w)
		}

		for round := 0; round < 5; round++ {
			for i := int64(5000); i < 5100; i++ {
				touch(t, p, i*recordsPerBrick)
			}
		}
		p.Refresh()
		assert.Zero(t, p.GetStats().Switches)

		for _, w := range held {
			require.NoError(t, p.Release(w))
		}
	})

	t.Run("TriggeredByMisses", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget, RefreshThreshold: 10}, fileSize)
		for i := int64(0); i < 10; i++ {
			touch(t, p, i*recordsPerBrick)
		}
		assert.Zero(t, p.GetStats().RefreshCount)

		touch(t, p, 0)
		stats := p.GetStats()
		assert.Equal(t, int64(1), stats.RefreshCount)
		assert.Equal(t, int64(1), stats.Hits, "refreshed brick served the access")
		assert.Zero(t, p.brickMiss.load())
	})

	t.Run("SingleFlight", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget}, fileSize)
		touch(t, p, 0)

		p.refreshing.Store(true)
		p.Refresh()
		assert.Equal(t, int64(1), p.GetStats().AvertedRefreshCount)
		assert.Empty(t, residentBricks(p))

		p.refreshing.Store(false)
		p.Refresh()
		assert.Len(t, residentBricks(p), 1)
	})

	t.Run("ScoresAcrossPasses", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: budget}, fileSize)
		grid := p.grid()
		idle, busy := grid[5], grid[7]
		idle.hitCount.Store(1000)

		previousIdle, previousBusy := idle.hit(), int32(0)
		for pass := 0; pass < 60; pass++ {
			touch(t, p, int64(busy.index)*recordsPerBrick)
			p.Refresh()

			if previousIdle > 0 {
				assert.Less(t, idle.hit(), previousIdle, "pass %d: idle brick decays", pass)
			}
			assert.GreaterOrEqual(t, busy.hit(), previousBusy, "pass %d: hit brick holds", pass)
			previousIdle, previousBusy = idle.hit(), busy.hit()
		}
		assert.Zero(t, idle.hit())
	})

	t.Run("DisabledPool", func(t *testing.T) {
		p, _ := newTestPool(t, Config{}, fileSize)
		touch(t, p, 0)
		p.Refresh()
		assert.Zero(t, p.GetStats().RefreshCount)
	})
}

func TestExpand(t *testing.T) {
	t.Run("GrowsWithFile", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: 160_000}, 0)
		require.Zero(t, p.BrickCount())

		recordsPerBrick := int64(p.BrickSize() / testBlockSize)
		_, kind := readAt(t, p, 2*recordsPerBrick+1)

		assert.Equal(t, 3, p.BrickCount())
		assert.Equal(t, window.KindPlain, kind, "new bricks loaded while memory is free")
		assert.Equal(t, int64(3*p.BrickSize()), p.GetStats().UsedMemory)
	})

	t.Run("RespectsBudget", func(t *testing.T) {
		const budget = 160_000
		p, _ := newTestPool(t, Config{AvailableMem: budget}, 0)

		recordsPerBrick := int64(p.BrickSize() / testBlockSize)
		_, kind := readAt(t, p, 150*recordsPerBrick)

		assert.Equal(t, 151, p.BrickCount())
		assert.Equal(t, window.KindRow, kind, "no room left for the far brick")
		assert.LessOrEqual(t, p.GetStats().UsedMemory, int64(budget))
		assert.Len(t, residentBricks(p), budget/p.BrickSize())
	})

	t.Run("FreesBeforeGrowingFullPool", func(t *testing.T) {
		const budget = 160_000
		p, _ := newTestPool(t, Config{AvailableMem: budget}, 0)

		recordsPerBrick := int64(p.BrickSize() / testBlockSize)
		touch(t, p, 99*recordsPerBrick)
		require.Len(t, residentBricks(p), 100)

		touch(t, p, 100*recordsPerBrick)
		assert.Len(t, residentBricks(p), 100, "one cold brick evicted, the new one loaded")
		assert.NotNil(t, p.grid()[100].window())
		assert.LessOrEqual(t, p.GetStats().UsedMemory, int64(budget))
	})
	t.Run("FarPositionServedByRow", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)
		before := p.BrickCount()

		data, kind := readAt(t, p, 1<<40)
		assert.Equal(t, window.KindRow, kind, "grid not grown that far")
		assert.Equal(t, make([]byte, testBlockSize), data, "past the end reads as zeros")
		assert.Equal(t, before, p.BrickCount())
		assert.Zero(t, p.GetStats().ActiveRows)
	})

	t.Run("OverflowingPosition", func(t *testing.T) {
		p, _ := newTestPool(t, Config{AvailableMem: 1_600_000}, 160_000)

		_, err := p.Acquire(math.MaxInt64, window.Read)
		assert.True(t, errors.HasCode(err, errors.ErrPoolOutOfWindow))

		last := int64(math.MaxInt64 / testBlockSize)
		w, err := p.Acquire(last, window.Read)
		require.NoError(t, err)
		assert.Equal(t, window.KindRow, w.Kind())
		require.NoError(t, p.Release(w))
	})
}
