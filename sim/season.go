package sim

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/arbor/components"
)

// SeasonResult aggregates one growing season.
type SeasonResult struct {
	Days              int
	TotalAssimilation float64
	NetCarbon         float64
	NewMetamers       int
	ApicalReleased    bool
}

// RunSeason advances the tree through one growing season: a sinusoidal
// temperature cycle about the configured base, one step per day. At the
// end of the season every surviving bud enters winter dormancy, and if a
// structural root was pruned during the year the genotype's apical
// dominance is relaxed for the seasons that follow.
//
// onStep, if non-nil, observes every step result (for telemetry).
func (s *Simulator) RunSeason(onStep func(StepResult)) (SeasonResult, error) {
	cfg := s.cfg.Season

	result := SeasonResult{Days: cfg.Days}
	for day := 0; day < cfg.Days; day++ {
		phase := 2 * math.Pi * float64(day) / float64(cfg.Days)
		env := DefaultEnvironment(cfg.BaseTemperature + cfg.Amplitude*math.Sin(phase))
		env.CytokininSignal = cfg.CytokininSignal

		step, err := s.Step(env)
		if err != nil {
			return result, err
		}
		result.TotalAssimilation += step.TotalAssimilation
		result.NetCarbon += step.NetCarbon
		result.NewMetamers += len(step.NewMetamers)
		if onStep != nil {
			onStep(step)
		}
	}

	s.winterDormancy()
	result.ApicalReleased = s.releaseAfterRootPrune()

	slog.Debug("season complete",
		"days", result.Days,
		"assimilation", result.TotalAssimilation,
		"new_metamers", result.NewMetamers,
		"apical_released", result.ApicalReleased,
	)
	return result, nil
}

// winterDormancy returns every surviving bud to the dormant state.
func (s *Simulator) winterDormancy() {
	for id := range s.tree.Active() {
		if m, err := s.tree.Get(id); err == nil {
			m.Bud.Status = components.BudDormant
		}
	}
}

// releaseAfterRootPrune relaxes apical dominance once a structural root has
// been pruned, so regrowth in later seasons branches more freely.
func (s *Simulator) releaseAfterRootPrune() bool {
	pruned := false
	for _, rootID := range s.tree.Roots() {
		if m, err := s.tree.Get(rootID); err == nil && m.Topology.Pruned {
			pruned = true
			break
		}
	}
	if !pruned {
		return false
	}
	s.tree.SetApicalDominance(s.tree.Genotype().ApicalDominance * s.pruning.ApicalReleaseFactor)
	return true
}
