package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/arbor/components"
	"github.com/pthm-cable/arbor/plant"
	"github.com/pthm-cable/arbor/sim"
)

func TestComputeReserveStats(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	mean, p10, p50, p90 := ComputeReserveStats(values)

	if math.Abs(mean-5.5) > 0.001 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	if p10 > p50 || p50 > p90 {
		t.Errorf("percentiles out of order: p10=%v p50=%v p90=%v", p10, p50, p90)
	}
	if p10 < 1 || p90 > 10 {
		t.Errorf("percentiles outside the sample range: p10=%v p90=%v", p10, p90)
	}
}

func TestComputeReserveStatsEmpty(t *testing.T) {
	mean, p10, p50, p90 := ComputeReserveStats(nil)
	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Errorf("empty sample must yield zeros, got %v %v %v %v", mean, p10, p50, p90)
	}
}

func TestComputeReserveStatsDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeReserveStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestCollectorWindows(t *testing.T) {
	c := NewCollector(3)

	for tick := int64(1); tick <= 2; tick++ {
		c.Record(sim.StepResult{Tick: tick, TotalAssimilation: 1, NetCarbon: 0.5})
		if c.ShouldFlush() {
			t.Fatalf("flush signaled at tick %d with window 3", tick)
		}
	}
	c.Record(sim.StepResult{
		Tick:              3,
		TotalAssimilation: 1,
		NetCarbon:         0.5,
		NewMetamers:       []components.MetamerID{7},
		BudsReleased:      2,
	})
	if !c.ShouldFlush() {
		t.Fatal("window complete, flush must be signaled")
	}

	tree := plant.New(plant.Genotype{Name: "fuji"}, plant.RootSystem{})
	if _, err := tree.AddMetamer(plant.MetamerSpec{LeafArea: 5, Biomass: 2, Reserve: 1.5}); err != nil {
		t.Fatalf("AddMetamer: %v", err)
	}

	stats := c.Flush(tree)
	if stats.WindowEndTick != 3 {
		t.Errorf("WindowEndTick = %d, want 3", stats.WindowEndTick)
	}
	if math.Abs(stats.Assimilation-3) > 1e-9 {
		t.Errorf("Assimilation = %v, want 3", stats.Assimilation)
	}
	if math.Abs(stats.NetCarbon-1.5) > 1e-9 {
		t.Errorf("NetCarbon = %v, want 1.5", stats.NetCarbon)
	}
	if stats.NewMetamers != 1 || stats.BudsReleased != 2 {
		t.Errorf("events not accumulated: %+v", stats)
	}
	if stats.ActiveMetamers != 1 || stats.TotalLeafArea != 5 {
		t.Errorf("tree sample wrong: %+v", stats)
	}
	if math.Abs(stats.ReserveMean-1.5) > 1e-9 {
		t.Errorf("ReserveMean = %v, want 1.5", stats.ReserveMean)
	}

	// The window resets after a flush.
	c.Record(sim.StepResult{Tick: 4, TotalAssimilation: 2})
	if c.ShouldFlush() {
		t.Error("fresh window must not flush after one step")
	}
	next := c.Flush(tree)
	if math.Abs(next.Assimilation-2) > 1e-9 {
		t.Errorf("next window Assimilation = %v, want 2", next.Assimilation)
	}
	if next.WindowStartTick != 3 {
		t.Errorf("next WindowStartTick = %d, want 3", next.WindowStartTick)
	}
}
