// Package sim orchestrates the discrete-time growth simulation: one Step is
// one atomic transformation of a tree under a caller-supplied environment.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/arbor/components"
	"github.com/pthm-cable/arbor/config"
	"github.com/pthm-cable/arbor/plant"
	"github.com/pthm-cable/arbor/systems"
)

// Options configures a new simulator.
type Options struct {
	Genotype string         // Name in the config genotype table; "" = first entry
	Seed     int64          // RNG seed for bud release; fixed seeds reproduce runs
	Config   *config.Config // nil = use the global config.Cfg()
}

// StepResult is the per-step output value. It is created fresh each step
// and not retained by the core.
type StepResult struct {
	Tick int64

	// TotalAssimilation is gross photosynthetic carbon gain summed over all
	// active metamers: always non-negative. NetCarbon is assimilation net
	// of maintenance respiration and may be negative.
	TotalAssimilation float64
	NetCarbon         float64

	NewMetamers    []components.MetamerID
	BudsReleased   int
	BudsRegressed  int
	ActiveMetamers int
}

// Simulator owns a tree exclusively and advances it step by step. It is
// single-threaded: concurrent callers must serialize Step, Prune, and
// snapshot access themselves.
type Simulator struct {
	cfg  *config.Config
	tree *plant.Tree
	rng  *rand.Rand
	tick int64

	pipe  *systems.PipeModel
	assim *systems.Assimilator
	buds  *systems.BudSystem

	pruning config.PruningConfig
}

// NewSimulator builds a tree with the configured initial architecture (a
// single trunk metamer) and the systems acting on it.
func NewSimulator(opts Options) (*Simulator, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	name := opts.Genotype
	if name == "" {
		name = cfg.Genotypes[0].Name
	}
	gc, ok := cfg.Genotype(name)
	if !ok {
		return nil, fmt.Errorf("unknown genotype %q", name)
	}

	tree := plant.New(
		plant.Genotype{
			Name:            gc.Name,
			ApicalDominance: gc.ApicalDominance,
			InternodeLength: gc.InternodeLength,
			BranchingAngle:  gc.BranchingAngle,
			FlowerRate:      gc.FlowerRate,
		},
		plant.RootSystem{
			NitrogenUptake: cfg.Root.NitrogenUptake,
			CytokininLevel: cfg.Root.CytokininLevel,
		},
	)

	if _, err := tree.AddMetamer(plant.MetamerSpec{
		Length:        cfg.Initial.Length,
		Thickness:     cfg.Initial.Thickness,
		Direction:     components.Up,
		Biomass:       cfg.Initial.Biomass,
		Reserve:       cfg.Initial.Reserve,
		LeafArea:      cfg.Initial.LeafArea,
		IncidentLight: cfg.Initial.IncidentLight,
		Bud:           components.BudDormant,
	}); err != nil {
		return nil, fmt.Errorf("seeding trunk metamer: %w", err)
	}

	s := &Simulator{
		cfg:     cfg,
		tree:    tree,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		pipe:    systems.NewPipeModel(cfg),
		assim:   systems.NewAssimilator(cfg),
		buds:    systems.NewBudSystem(cfg),
		pruning: cfg.Pruning,
	}
	s.pipe.Update(tree)
	return s, nil
}

// Tree returns the simulator's tree for snapshotting and inspection. The
// caller must not mutate it concurrently with Step or Prune.
func (s *Simulator) Tree() *plant.Tree {
	return s.tree
}

// Tick returns the number of completed steps.
func (s *Simulator) Tick() int64 {
	return s.tick
}

// DefaultEnvironment returns an environment at the given temperature with
// unit hormone signals.
func DefaultEnvironment(temperatureC float64) plant.Environment {
	return plant.Environment{
		TemperatureC:    temperatureC,
		AuxinApex:       1,
		CytokininSignal: 1,
	}
}

// Step advances the tree by exactly one discrete step.
//
// Ordering: the structural pass (pipe model) runs first; assimilation,
// respiration, and bud decisions are all computed from the pre-step state;
// only then is anything applied. Metamers created during the step join the
// graph dormant and never act within it.
//
// Fails with a StateError on a tree with no metamers. On a fully pruned
// tree the step is a no-op returning zero assimilation: a legitimate
// terminal state, not an error.
func (s *Simulator) Step(env plant.Environment) (StepResult, error) {
	if s.tree.Len() == 0 {
		return StepResult{}, &plant.StateError{Reason: "tree has no metamers"}
	}

	s.tick++
	result := StepResult{Tick: s.tick}

	if s.tree.ActiveCount() == 0 {
		return result, nil
	}

	s.pipe.Update(s.tree)

	fluxes := s.assim.Compute(s.tree, env)
	decisions := s.buds.Decide(s.tree, env, s.rng)

	s.assim.Apply(s.tree, fluxes)
	result.NewMetamers = s.buds.Apply(s.tree, env, decisions)

	if len(result.NewMetamers) > 0 {
		// Extension changed supported-area sums for every ancestor.
		s.pipe.Update(s.tree)
	}

	for _, flux := range fluxes {
		result.TotalAssimilation += flux.Assimilation
		result.NetCarbon += flux.Net()
	}
	result.BudsReleased = len(decisions.Release)
	result.BudsRegressed = len(decisions.Regress)
	result.ActiveMetamers = s.tree.ActiveCount()

	return result, nil
}

// Prune marks the metamer and, implicitly, its whole subtree as removed,
// then recomputes transport capacity for the survivors. Idempotent; fails
// with a NotFoundError for an unknown identity.
//
// When shock release is configured, the cut releases the parent's bud and
// the surviving sibling buds, mirroring the flush of regrowth around a
// pruning wound.
func (s *Simulator) Prune(id components.MetamerID) error {
	target, err := s.tree.Get(id)
	if err != nil {
		return err
	}
	parentID := target.Topology.Parent

	if err := s.tree.Prune(id); err != nil {
		return err
	}

	if s.pruning.ShockRelease && parentID != components.NilMetamer {
		if parent, err := s.tree.Get(parentID); err == nil && s.tree.IsActive(parentID) {
			if parent.Bud.Status == components.BudDormant {
				parent.Bud.Status = components.BudActive
			}
			for _, siblingID := range parent.Topology.Children {
				sibling, err := s.tree.Get(siblingID)
				if err != nil || !s.tree.IsActive(siblingID) {
					continue
				}
				if sibling.Bud.Status == components.BudDormant {
					sibling.Bud.Status = components.BudActive
				}
			}
		}
	}

	// Ancestor radii shrink now that the subtree's leaf area is gone.
	s.pipe.Update(s.tree)
	return nil
}
