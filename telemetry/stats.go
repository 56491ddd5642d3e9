// Package telemetry aggregates per-step simulation results into windowed
// statistics and writes them to structured output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of steps.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`

	// Carbon balance summed over the window
	Assimilation float64 `csv:"assimilation"`
	NetCarbon    float64 `csv:"net_carbon"`

	// Structural events during the window
	NewMetamers   int `csv:"new_metamers"`
	BudsReleased  int `csv:"buds_released"`
	BudsRegressed int `csv:"buds_regressed"`

	// Tree state sampled at window end
	ActiveMetamers int     `csv:"active_metamers"`
	TotalLeafArea  float64 `csv:"total_leaf_area"`
	TotalBiomass   float64 `csv:"total_biomass"`

	// NSC reserve distribution at window end
	ReserveMean float64 `csv:"reserve_mean"`
	ReserveP10  float64 `csv:"reserve_p10"`
	ReserveP50  float64 `csv:"reserve_p50"`
	ReserveP90  float64 `csv:"reserve_p90"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("assimilation", s.Assimilation),
		slog.Float64("net_carbon", s.NetCarbon),
		slog.Int("new_metamers", s.NewMetamers),
		slog.Int("buds_released", s.BudsReleased),
		slog.Int("buds_regressed", s.BudsRegressed),
		slog.Int("active_metamers", s.ActiveMetamers),
		slog.Float64("total_leaf_area", s.TotalLeafArea),
		slog.Float64("reserve_mean", s.ReserveMean),
	)
}

// ComputeReserveStats calculates mean and percentiles of reserve values.
// Returns all zeros for an empty sample.
func ComputeReserveStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}
