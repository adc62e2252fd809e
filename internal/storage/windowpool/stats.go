package windowpool

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a point in time view of a pool. Hits and misses are approximate.
type Stats struct {
	Name                string `json:"name"`
	Budget              int64  `json:"budget"`
	UsedMemory          int64  `json:"usedMemory"`
	BrickCount          int    `json:"brickCount"`
	BrickSize           int    `json:"brickSize"`
	Hits                int64  `json:"hits"`
	Misses              int64  `json:"misses"`
	MapFailures         int64  `json:"mapFailures"`
	Switches            int64  `json:"switches"`
	AvgRefreshMillis    int64  `json:"avgRefreshMillis"`
	RefreshCount        int64  `json:"refreshCount"`
	AvertedRefreshCount int64  `json:"avertedRefreshCount"`
	ActiveRows          int64  `json:"activeRows"`
}

// GetStats collects the pool's counters.
func (p *Pool) GetStats() Stats {
	refreshes := p.refreshes.Load()
	var avgRefreshMillis int64
	if refreshes > 0 {
		avgRefreshMillis = p.refreshNs.Load() / refreshes / 1e6
	}

	return Stats{
		Name:                p.name,
		Budget:              p.availableMem,
		UsedMemory:          p.memUsed.Load(),
		BrickCount:          p.BrickCount(),
		BrickSize:           p.brickSize,
		Hits:                p.hit.load(),
		Misses:              p.miss.load(),
		MapFailures:         p.ooe.Load(),
		Switches:            p.switches.Load(),
		AvgRefreshMillis:    avgRefreshMillis,
		RefreshCount:        refreshes,
		AvertedRefreshCount: p.averted.Load(),
		ActiveRows:          p.rows.len(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"%s: mem=%s/%s bricks=%dx%s hit=%d miss=%d ooe=%d switches=%d refreshes=%d (avg %dms, averted %d) rows=%d",
		s.Name,
		humanize.IBytes(uint64(s.UsedMemory)), humanize.IBytes(uint64(s.Budget)),
		s.BrickCount, humanize.IBytes(uint64(s.BrickSize)),
		s.Hits, s.Misses, s.MapFailures, s.Switches,
		s.RefreshCount, s.AvgRefreshMillis, s.AvertedRefreshCount,
		s.ActiveRows,
	)
}

// DumpStatistics logs the hit, miss, switch and map failure counters.
func (p *Pool) DumpStatistics() {
	p.log.Infow(
		"Window pool statistics",
		"hit", p.hit.load(),
		"miss", p.miss.load(),
		"switches", p.switches.Load(),
		"ooe", p.ooe.Load(),
		"refreshes", p.refreshes.Load(),
		"avertedRefreshes", p.averted.Load(),
	)
}
