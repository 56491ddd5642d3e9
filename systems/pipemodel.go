// Package systems implements the simulation passes acting on a plant tree:
// pipe-model allocation, carbon assimilation, and bud dynamics.
package systems

import (
	"math"

	"github.com/pthm-cable/arbor/components"
	"github.com/pthm-cable/arbor/config"
	"github.com/pthm-cable/arbor/plant"
)

// PipeModel computes, for every metamer, the leaf area it structurally
// supports and a transport-capacity radius proportional to the square root
// of that area. The pass is purely structural: it reads foliage and
// topology, writes only Pipe components, and is idempotent.
type PipeModel struct {
	kappa     float64
	minRadius float64
}

// NewPipeModel creates a pipe-model allocator from the given config.
func NewPipeModel(cfg *config.Config) *PipeModel {
	return &PipeModel{
		kappa:     cfg.Allocation.Kappa,
		minRadius: cfg.Allocation.MinRadius,
	}
}

// Update recomputes supported area and radii for the whole tree. Must be
// re-run after any structural change, since pruning and extension both
// move ancestor supported-area sums.
func (s *PipeModel) Update(t *plant.Tree) {
	for _, rootID := range t.Roots() {
		s.visit(t, rootID, false)
	}
}

// visit returns the supported leaf area of the subtree rooted at id.
// A pruned subtree supports zero area and keeps floor radii.
func (s *PipeModel) visit(t *plant.Tree, id components.MetamerID, ancestorPruned bool) float64 {
	m, err := t.Get(id)
	if err != nil {
		return 0
	}

	pruned := ancestorPruned || m.Topology.Pruned

	childArea := 0.0
	for _, childID := range m.Topology.Children {
		childArea += s.visit(t, childID, pruned)
	}

	if pruned {
		m.Pipe.SupportedArea = 0
		m.Pipe.RadiusTop = s.minRadius
		m.Pipe.RadiusBottom = s.minRadius
		return 0
	}

	supported := childArea + math.Max(0, m.Foliage.LeafArea)
	m.Pipe.SupportedArea = supported
	m.Pipe.RadiusTop = s.radius(childArea)
	m.Pipe.RadiusBottom = s.radius(supported)
	return supported
}

// radius maps supported leaf area to an effective cross-sectional radius,
// floored to avoid degenerate zero-width segments.
func (s *PipeModel) radius(area float64) float64 {
	if area < 0 {
		area = 0
	}
	r := math.Sqrt(s.kappa * area / math.Pi)
	if r < s.minRadius {
		return s.minRadius
	}
	return r
}
