package windowpool

import (
	"math"

	"github.com/dustin/go-humanize"

	"github.com/iamBelugaa/brickpool/pkg/errors"
)

const (
	// minBlocksInMemory is the smallest budget, in records, worth spending on bricks.
	minBlocksInMemory = 10

	targetBrickCount    = 1000
	unknownSizeDivisor  = 100
	maxBrickSizeInBytes = math.MaxInt32
)

func (p *Pool) fileSize() (int64, error) {
	size, err := p.channel.Size()
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrIOSizeFailed, "unable to get file size").
			WithStore(p.name).
			WithPath(p.channel.Name())
	}
	return size, nil
}

// setupBricks plans brick size and count from the file size and the memory budget, then
// allocates the grid with every brick unmapped.
func (p *Pool) setupBricks() error {
	fileSize, err := p.fileSize()
	if err != nil {
		return err
	}
	if p.blockSize == 0 {
		return nil
	}

	blockSize := int64(p.blockSize)
	if p.availableMem > 0 && p.availableMem < blockSize*minBlocksInMemory {
		p.disableBricks(
			"Not enough memory for resident windows",
			"need", humanize.IBytes(uint64(blockSize*minBlocksInMemory)),
		)
		return nil
	}

	var brickSize int64
	var brickCount int64

	switch {
	case p.availableMem > 0 && fileSize > 0:
		ratio := float64(p.availableMem) / float64(fileSize)
		if ratio >= 1 {
			brickSize = min(p.availableMem/targetBrickCount, maxBrickSizeInBytes)
			brickSize = brickSize / blockSize * blockSize
			if brickSize <= blockSize {
				p.disableBricks("Brick size would not exceed one record", "brickSize", brickSize)
				return nil
			}
			brickCount = fileSize / brickSize
			break
		}

		brickCount = min(int64(targetBrickCount/ratio), MaxBrickCount)
		if fileSize/brickCount > p.availableMem {
			p.disableBricks(
				"Not enough memory for resident windows",
				"need", humanize.IBytes(uint64(fileSize/brickCount)),
			)
			return nil
		}

		brickSize = fileSize / brickCount
		if brickSize > maxBrickSizeInBytes {
			brickSize = maxBrickSizeInBytes / blockSize * blockSize
			brickCount = fileSize / brickSize
		} else {
			brickSize = brickSize / blockSize * blockSize
		}

		if brickSize <= blockSize {
			p.disableBricks("Brick size would not exceed one record", "brickSize", brickSize)
			return nil
		}

	case p.availableMem > 0:
		// New or empty file: bricks are added lazily as the file grows.
		brickSize = min(p.availableMem/unknownSizeDivisor, maxBrickSizeInBytes)
		brickSize = brickSize / blockSize * blockSize
		if brickSize <= blockSize {
			p.disableBricks("Brick size would not exceed one record", "brickSize", brickSize)
			return nil
		}
	}

	p.brickSize = int(brickSize)
	grid := make([]*brickElement, brickCount)
	for i := range grid {
		grid[i] = newBrickElement(i)
	}
	p.bricks.Store(&grid)
	return nil
}

// disableBricks turns resident windows off for this store; every access then goes
// through row windows.
func (p *Pool) disableBricks(reason string, keysAndValues ...any) {
	fields := append([]any{
		"availableMem", humanize.IBytes(uint64(p.availableMem)),
		"blockSize", p.blockSize,
	}, keysAndValues...)
	p.log.Warnw(reason+", memory mapped windows have been turned off", fields...)

	p.availableMem = 0
	p.brickSize = 0
	empty := []*brickElement{}
	p.bricks.Store(&empty)
}

func (p *Pool) dumpStatus() error {
	fileSize, err := p.fileSize()
	if err != nil {
		return err
	}

	p.log.Infow(
		"Window pool initialized",
		"brickCount", p.BrickCount(),
		"brickSize", humanize.IBytes(uint64(p.brickSize)),
		"mappedMem", humanize.IBytes(uint64(p.availableMem)),
		"storeSize", humanize.IBytes(uint64(fileSize)),
		"memoryMapped", p.useMemoryMapped,
		"readOnly", p.readOnly,
	)
	return nil
}
