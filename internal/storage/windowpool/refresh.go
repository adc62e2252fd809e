package windowpool

import (
	"slices"
	"time"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
)

// Refresh runs a rebalance now, whatever the miss count. Like the automatic trigger it
// returns immediately when another rebalance is in progress.
func (p *Pool) Refresh() {
	if p.brickSize <= 0 || p.closed.Load() {
		return
	}
	p.refresh()
}

// refreshBricks is the acquire path trigger.
func (p *Pool) refreshBricks() {
	if p.brickMiss.load() < p.refreshThreshold || p.brickSize <= 0 {
		return
	}
	p.refresh()
}

func (p *Pool) refresh() {
	if !p.refreshing.CompareAndSwap(false, true) {
		// Someone else is rebalancing; trust it and carry on.
		p.averted.Add(1)
		return
	}
	defer p.refreshing.Store(false)

	start := time.Now()
	p.doRefreshBricks()
	p.refreshes.Add(1)
	p.refreshNs.Add(time.Since(start).Nanoseconds())
}

func (p *Pool) doRefreshBricks() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return
	}

	p.brickMiss.reset()
	mapped, unmapped := p.gatherMappedVersusUnmappedWindows()
	brickSize := int64(p.brickSize)

	// Fill free memory with the most requested unmapped bricks, highest score first.
	unmappedIndex := len(unmapped) - 1
	for p.memUsed.Load()+brickSize <= p.availableMem && unmappedIndex >= 0 {
		brick := unmapped[unmappedIndex]
		unmappedIndex--
		if brick.hit() == 0 {
			// Memory is left but nothing else has been asked for.
			return
		}
		p.allocateNewWindow(brick)
	}

	// Swap cold mappings for hot unmapped bricks: mapped from the coldest end, unmapped
	// from where the fill loop stopped.
	mappedIndex := 0
	for unmappedIndex >= 0 && mappedIndex < len(mapped) {
		mappedBrick := mapped[mappedIndex]
		unmappedBrick := unmapped[unmappedIndex]
		mappedIndex++
		unmappedIndex--

		if mappedBrick.hit() >= unmappedBrick.hit() {
			return
		}
		if p.hasLiveRows(unmappedBrick) {
			continue
		}

		if !p.evict(mappedBrick) {
			continue
		}
		if p.allocateNewWindow(unmappedBrick) {
			p.switches.Add(1)
		}
	}
}

// gatherMappedVersusUnmappedWindows splits the bricks by residency, each list sorted from
// the lowest to the highest snapshotted score. Every brick's live score decays on the way.
func (p *Pool) gatherMappedVersusUnmappedWindows() (mapped, unmapped []*brickElement) {
	for _, brick := range p.grid() {
		brick.snapshotHitCount()
		if brick.window() != nil {
			mapped = append(mapped, brick)
		} else {
			unmapped = append(unmapped, brick)
		}
		brick.decay()
	}

	slices.SortStableFunc(mapped, compareSnapshots)
	slices.SortStableFunc(unmapped, compareSnapshots)
	return mapped, unmapped
}

// evict writes out and closes the brick's window unless it is in use. Callers hold mu.
func (p *Pool) evict(brick *brickElement) bool {
	w := brick.window()
	if w == nil {
		return false
	}

	closed, err := w.WriteOutAndCloseIfFree(p.readOnly)
	if err != nil {
		p.log.Errorw("Failed to write out brick window, keeping it resident", "brick", brick.index, "error", err)
		return false
	}
	if !closed {
		return false
	}

	brick.setWindow(nil)
	p.memUsed.Add(-int64(p.brickSize))
	return true
}

// hasLiveRows reports whether a row window is installed for any record of brick.
// Callers hold mu.
func (p *Pool) hasLiveRows(brick *brickElement) bool {
	from := p.brickIndexToPosition(brick.index)
	return p.rows.anyWithin(from, from+p.recordsPerBrick())
}

// allocateNewWindow gives brick a resident window. Failing to map or read it is expected
// under memory pressure: it is counted and logged, and the brick stays on row windows.
// A brick with live rows is left alone until they close. Callers hold mu.
func (p *Pool) allocateNewWindow(brick *brickElement) bool {
	if p.hasLiveRows(brick) {
		return false
	}
	position := p.brickIndexToPosition(brick.index)

	var w window.Window
	if p.useMemoryMapped {
		mapped, err := window.NewMappedWindow(position, p.blockSize, p.brickSize, p.channel, p.readOnly)
		if err != nil {
			p.ooe.Add(1)
			p.log.Warnw("Unable to memory map", "brick", brick.index, "position", position, "error", err)
			return false
		}
		w = mapped
	} else {
		plain := window.NewPlainWindow(position, p.blockSize, p.brickSize, p.channel)
		if err := plain.ReadFullWindow(); err != nil {
			p.ooe.Add(1)
			p.log.Warnw("Unable to load buffered window", "brick", brick.index, "position", position, "error", err)
			return false
		}
		w = plain
	}

	brick.setWindow(w)
	p.memUsed.Add(int64(p.brickSize))
	return true
}
