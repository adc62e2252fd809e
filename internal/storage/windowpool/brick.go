package windowpool

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/iamBelugaa/brickpool/internal/storage/window"
)

const (
	hitIncrement = 10

	unmappedDecay = 1.25
	mappedDecay   = 1.15
)

// brickElement is one fixed-size segment of the store file. It owns at most one
// resident window spanning exactly [index*brickSize, (index+1)*brickSize).
type brickElement struct {
	index int

	// hitCount is a decaying access score. Concurrent bumps may overwrite each other.
	hitCount atomic.Int32
	// hitCountSnapshot freezes hitCount for the duration of a sort. Pool mu guards it.
	hitCountSnapshot int32

	resident atomic.Pointer[residentWindow]
}

type residentWindow struct {
	window.Window
}

func newBrickElement(index int) *brickElement {
	return &brickElement{index: index}
}

func (b *brickElement) window() window.Window {
	if r := b.resident.Load(); r != nil {
		return r.Window
	}
	return nil
}

func (b *brickElement) setWindow(w window.Window) {
	if w == nil {
		b.resident.Store(nil)
		return
	}
	b.resident.Store(&residentWindow{Window: w})
}

// setHit bumps the score, saturating instead of overflowing.
func (b *brickElement) setHit() {
	hits := b.hitCount.Load()
	if hits <= math.MaxInt32-hitIncrement {
		b.hitCount.Store(hits + hitIncrement)
	}
}

func (b *brickElement) hit() int32 {
	return b.hitCount.Load()
}

// decay shrinks the score. Mapped bricks decay slower so residents are not swapped out
// on a short burst elsewhere.
func (b *brickElement) decay() {
	factor := unmappedDecay
	if b.window() != nil {
		factor = mappedDecay
	}
	b.hitCount.Store(int32(float64(b.hitCount.Load()) / factor))
}

func (b *brickElement) snapshotHitCount() {
	b.hitCountSnapshot = b.hitCount.Load()
}

func (b *brickElement) String() string {
	state := "x"
	if b.window() != nil {
		state = "o"
	}
	return fmt.Sprintf("%d%s", b.hit(), state)
}

// compareSnapshots orders bricks from least to most requested.
func compareSnapshots(a, b *brickElement) int {
	switch {
	case a.hitCountSnapshot < b.hitCountSnapshot:
		return -1
	case a.hitCountSnapshot > b.hitCountSnapshot:
		return 1
	default:
		return 0
	}
}
