package windowpool

import "slices"

// expandBricks grows the grid to newBrickCount as the file grows. The new grid is
// published in one store; goroutines still holding the old slice keep a consistent, if
// shorter, view.
func (p *Pool) expandBricks(newBrickCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return
	}

	current := p.grid()
	if newBrickCount <= len(current) {
		return
	}

	brickSize := int64(p.brickSize)
	if p.memUsed.Load()+brickSize >= p.availableMem {
		p.freeWindows(current, 1)
	}

	grown := make([]*brickElement, newBrickCount)
	copy(grown, current)
	for i := len(current); i < newBrickCount; i++ {
		brick := newBrickElement(i)
		grown[i] = brick
		if p.memUsed.Load()+brickSize <= p.availableMem {
			p.allocateNewWindow(brick)
		}
	}

	p.bricks.Store(&grown)
	p.log.Debugw("Expanded brick grid", "from", len(current), "to", newBrickCount, "memUsed", p.memUsed.Load())
}

// freeWindows evicts up to n of the least requested resident windows that are not in
// use. Callers hold mu.
func (p *Pool) freeWindows(bricks []*brickElement, n int) {
	if p.brickSize <= 0 {
		return
	}

	var mapped []*brickElement
	for _, brick := range bricks {
		if brick.window() != nil {
			brick.snapshotHitCount()
			mapped = append(mapped, brick)
		}
	}
	slices.SortStableFunc(mapped, compareSnapshots)

	for i := 0; i < n && i < len(mapped); i++ {
		p.evict(mapped[i])
	}
}
