package main

import (
	"math"

	"github.com/pthm-cable/arbor/config"
	"github.com/pthm-cable/arbor/sim"
)

// FitnessEvaluator runs headless simulations and scores them against a
// target canopy.
type FitnessEvaluator struct {
	params   *ParamVector
	baseCfg  *config.Config
	genotype string
	steps    int
	seeds    []int64

	// Targets at the end of the run.
	targetLeafArea float64
	targetMetamers float64

	evalCount int
}

// NewFitnessEvaluator creates an evaluator with the given per-seed run length.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, genotype string, steps, numSeeds int, targetLeafArea, targetMetamers float64) *FitnessEvaluator {
	seeds := make([]int64, numSeeds)
	for i := range seeds {
		seeds[i] = int64(1000 + i*7919)
	}
	return &FitnessEvaluator{
		params:         params,
		baseCfg:        baseCfg,
		genotype:       genotype,
		steps:          steps,
		seeds:          seeds,
		targetLeafArea: targetLeafArea,
		targetMetamers: targetMetamers,
	}
}

// Evaluate runs simulations with the given normalized parameters and returns
// a loss (lower is better). Gonum's optimizers minimize.
func (fe *FitnessEvaluator) Evaluate(normalized []float64) float64 {
	fe.evalCount++

	raw := fe.params.Denormalize(normalized)
	cfg := copyConfig(fe.baseCfg)
	fe.params.ApplyToConfig(cfg, raw)

	total := 0.0
	for _, seed := range fe.seeds {
		total += fe.runSimulation(cfg, seed)
	}
	return total / float64(len(fe.seeds))
}

// EvalCount returns the number of evaluations performed so far.
func (fe *FitnessEvaluator) EvalCount() int {
	return fe.evalCount
}

// runSimulation runs a single headless simulation and returns its loss.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) float64 {
	s, err := sim.NewSimulator(sim.Options{
		Genotype: fe.genotype,
		Seed:     seed,
		Config:   cfg,
	})
	if err != nil {
		return 1e6
	}

	env := sim.DefaultEnvironment(22.0)
	starved := false
	for i := 0; i < fe.steps; i++ {
		res, err := s.Step(env)
		if err != nil {
			return 1e6
		}
		if res.ActiveMetamers == 0 {
			starved = true
			break
		}
	}

	totals := s.Tree().Totals()
	loss := fe.computeLoss(totals.LeafArea, float64(totals.Count))
	if starved {
		loss += 100
	}
	return loss
}

// computeLoss scores final canopy state against the targets using relative
// squared error, so leaf area and metamer count weigh comparably.
func (fe *FitnessEvaluator) computeLoss(leafArea, metamers float64) float64 {
	la := relErr(leafArea, fe.targetLeafArea)
	mc := relErr(metamers, fe.targetMetamers)
	return la*la + mc*mc
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return (got - want) / want
}

// copyConfig returns a copy of the config safe to mutate per evaluation.
// Scalar sections are copied by value; the genotype table is cloned since
// slices share backing arrays.
func copyConfig(src *config.Config) *config.Config {
	dst := *src
	dst.Genotypes = make([]config.GenotypeConfig, len(src.Genotypes))
	copy(dst.Genotypes, src.Genotypes)
	return &dst
}
