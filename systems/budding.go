package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/arbor/components"
	"github.com/pthm-cable/arbor/config"
	"github.com/pthm-cable/arbor/plant"
)

// reserveEps guards the starvation comparison against float drift at the
// mobilization floor.
const reserveEps = 1e-9

// ApexDistances returns, for every active metamer, the path length (sum of
// stem lengths) to the nearest metamer carrying an active bud. Metamers
// with an active bud are at distance zero; if the tree has no active bud
// anywhere, every distance is +Inf.
//
// Two tree passes per root: a post-order pass finds the nearest apex below
// each metamer, a pre-order pass folds in apexes reached through the
// parent.
func ApexDistances(t *plant.Tree) map[components.MetamerID]float64 {
	dist := make(map[components.MetamerID]float64)
	for _, rootID := range t.Roots() {
		if !t.IsActive(rootID) {
			continue
		}
		down(t, rootID, dist)
		up(t, rootID, dist[rootID], dist)
	}
	return dist
}

func down(t *plant.Tree, id components.MetamerID, dist map[components.MetamerID]float64) float64 {
	m, err := t.Get(id)
	if err != nil {
		return math.Inf(1)
	}

	best := math.Inf(1)
	if m.Bud.Status == components.BudActive {
		best = 0
	}
	for _, childID := range m.Topology.Children {
		child, err := t.Get(childID)
		if err != nil || child.Topology.Pruned {
			continue
		}
		if d := down(t, childID, dist) + child.Stem.Length; d < best {
			best = d
		}
	}
	dist[id] = best
	return best
}

func up(t *plant.Tree, id components.MetamerID, fromAbove float64, dist map[components.MetamerID]float64) {
	if fromAbove < dist[id] {
		dist[id] = fromAbove
	}
	m, err := t.Get(id)
	if err != nil {
		return
	}
	for _, childID := range m.Topology.Children {
		child, err := t.Get(childID)
		if err != nil || child.Topology.Pruned {
			continue
		}
		up(t, childID, dist[id]+child.Stem.Length, dist)
	}
}

// ActivationPotential computes the bud-release potential from the
// cytokinin level, the apex auxin signal, and the distance to the nearest
// active apex. Auxin suppression attenuates with distance, so far buds see
// a higher potential; with no apex at all (distance +Inf) suppression
// vanishes entirely.
func ActivationPotential(cytokinin, auxin, distance, lambda float64) float64 {
	suppression := 0.0
	if !math.IsInf(distance, 1) {
		suppression = math.Max(0, auxin) / (1 + math.Max(0, distance))
	}
	denom := suppression + lambda
	if denom <= 0 {
		return 0
	}
	return math.Max(0, cytokinin) / denom
}

// BudDecisions holds one step's bud-state transitions, decided entirely
// from pre-step state. Extension is tied to release: a bud spends itself
// the moment it activates, and an already-active bud never extends again
// unless starvation first returns it to dormancy.
type BudDecisions struct {
	Release []components.MetamerID // Dormant -> Active, extending one child
	Regress []components.MetamerID // Active -> Dormant (starvation)
}

// BudSystem decides and applies bud activation, regression, and extension.
type BudSystem struct {
	bud       config.BudConfig
	reserve   config.ReserveConfig
	tropism   config.TropismConfig
	phylloRad float64
}

// NewBudSystem creates a bud system from the given config.
func NewBudSystem(cfg *config.Config) *BudSystem {
	return &BudSystem{
		bud:       cfg.Bud,
		reserve:   cfg.Reserve,
		tropism:   cfg.Tropism,
		phylloRad: cfg.Derived.PhyllotaxisRad,
	}
}

// releaseProbability maps an activation potential to a release probability
// in [0, 1). FlowerRate biases release upward for heavy-flowering
// genotypes.
func (s *BudSystem) releaseProbability(potential, flowerRate float64) float64 {
	threshold := s.bud.ActivationThreshold
	if threshold <= 0 {
		threshold = 1
	}
	return 1 - math.Exp(-s.bud.ReleaseRate*(1+flowerRate)*potential/threshold)
}

// Decide evaluates every active metamer's bud against the pre-step state.
// The RNG must be the simulator's seeded source so runs are reproducible.
func (s *BudSystem) Decide(t *plant.Tree, env plant.Environment, rng *rand.Rand) BudDecisions {
	var decisions BudDecisions

	apexDist := ApexDistances(t)
	genotype := t.Genotype()
	cytokinin := t.RootSystem().CytokininLevel * env.CytokininSignal
	auxin := env.AuxinApex * genotype.ApicalDominance
	thermalGain := math.Max(0, env.TemperatureC-s.bud.BaseTemperatureC)

	for id := range t.Active() {
		m, err := t.Get(id)
		if err != nil {
			continue
		}

		switch m.Bud.Status {
		case components.BudDormant:
			// Growth requires sufficient accumulated warmth first.
			if m.Bud.ThermalTime+thermalGain < s.bud.ThermalTimeThreshold {
				continue
			}
			potential := ActivationPotential(cytokinin, auxin, apexDist[id], s.bud.Lambda)
			if rng.Float64() < s.releaseProbability(potential, genotype.FlowerRate) {
				decisions.Release = append(decisions.Release, id)
			}

		case components.BudActive:
			// An active bud already spent its extension at release; the only
			// transition left is starvation regression, which re-arms it.
			if m.Carbon.Reserve <= s.reserve.MobilizationFloor+reserveEps {
				decisions.Regress = append(decisions.Regress, id)
			}
		}
	}
	return decisions
}

// Apply advances bud clocks, applies the decided transitions, and extends
// one child metamer per released bud. New metamers join the tree dormant
// and age-zero; they are never eligible in the step that created them.
// Returns the identities of the spawned metamers.
func (s *BudSystem) Apply(t *plant.Tree, env plant.Environment, decisions BudDecisions) []components.MetamerID {
	thermalGain := math.Max(0, env.TemperatureC-s.bud.BaseTemperatureC)
	for id := range t.Active() {
		if m, err := t.Get(id); err == nil {
			m.Bud.ThermalTime += thermalGain
			m.Bud.Age++
		}
	}

	for _, id := range decisions.Regress {
		if m, err := t.Get(id); err == nil {
			m.Bud.Status = components.BudDormant
		}
	}

	genotype := t.Genotype()
	var spawned []components.MetamerID
	for _, id := range decisions.Release {
		m, err := t.Get(id)
		if err != nil {
			continue
		}
		m.Bud.Status = components.BudActive

		// The one extension happens here, checked against the
		// post-assimilation reserve: demand is suppressed rather than
		// letting the reserve cross the floor, so a bud released without
		// carbon stays active and childless.
		cost := s.reserve.ConstructionCost
		if m.Carbon.Reserve-cost < s.reserve.MobilizationFloor {
			continue
		}

		spec := plant.MetamerSpec{
			Parent:    id,
			Length:    genotype.InternodeLength,
			Thickness: m.Stem.Thickness * s.bud.TaperRatio,
			Direction: GrowthDirection(
				m.Stem.Direction,
				len(m.Topology.Children),
				genotype.BranchingAngle,
				s.phylloRad,
				s.tropism,
			),
			Biomass:       cost * s.reserve.ConstructionYield,
			LeafArea:      s.bud.NewLeafArea,
			IncidentLight: m.Foliage.IncidentLight,
			Bud:           components.BudDormant,
		}

		m.Carbon.Reserve -= cost
		// m's pointers are invalid past this call; fetch fresh if needed.
		childID, err := t.AddMetamer(spec)
		if err != nil {
			continue
		}
		spawned = append(spawned, childID)
	}
	return spawned
}
