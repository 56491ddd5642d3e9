package telemetry

import (
	"github.com/pthm-cable/arbor/plant"
	"github.com/pthm-cable/arbor/sim"
)

// Collector accumulates step results within fixed-size windows and
// produces WindowStats.
type Collector struct {
	windowSteps int64

	windowStartTick int64
	lastTick        int64

	assimilation  float64
	netCarbon     float64
	newMetamers   int
	budsReleased  int
	budsRegressed int
}

// NewCollector creates a stats collector flushing every windowSteps steps.
func NewCollector(windowSteps int) *Collector {
	if windowSteps < 1 {
		windowSteps = 1
	}
	return &Collector{windowSteps: int64(windowSteps)}
}

// Record accumulates one step result.
func (c *Collector) Record(step sim.StepResult) {
	c.lastTick = step.Tick
	c.assimilation += step.TotalAssimilation
	c.netCarbon += step.NetCarbon
	c.newMetamers += len(step.NewMetamers)
	c.budsReleased += step.BudsReleased
	c.budsRegressed += step.BudsRegressed
}

// ShouldFlush returns true once the current window is complete.
func (c *Collector) ShouldFlush() bool {
	return c.lastTick-c.windowStartTick >= c.windowSteps
}

// Flush samples the tree's current state, emits the window's stats, and
// starts the next window.
func (c *Collector) Flush(tree *plant.Tree) WindowStats {
	totals := tree.Totals()

	reserves := make([]float64, 0, totals.Count)
	for id := range tree.Active() {
		if m, err := tree.Get(id); err == nil {
			reserves = append(reserves, m.Carbon.Reserve)
		}
	}
	mean, p10, p50, p90 := ComputeReserveStats(reserves)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   c.lastTick,
		Assimilation:    c.assimilation,
		NetCarbon:       c.netCarbon,
		NewMetamers:     c.newMetamers,
		BudsReleased:    c.budsReleased,
		BudsRegressed:   c.budsRegressed,
		ActiveMetamers:  totals.Count,
		TotalLeafArea:   totals.LeafArea,
		TotalBiomass:    totals.Biomass,
		ReserveMean:     mean,
		ReserveP10:      p10,
		ReserveP50:      p50,
		ReserveP90:      p90,
	}

	c.windowStartTick = c.lastTick
	c.assimilation = 0
	c.netCarbon = 0
	c.newMetamers = 0
	c.budsReleased = 0
	c.budsRegressed = 0

	return stats
}
