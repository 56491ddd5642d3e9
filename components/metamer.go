// Package components defines ECS components for the plant simulation.
package components

// MetamerID identifies a metamer within a tree. IDs are assigned from a
// monotonic per-tree counter and are never reused, even after pruning.
// Zero is the nil ID.
type MetamerID uint32

// NilMetamer is the zero MetamerID, used for parentless (root) metamers.
const NilMetamer MetamerID = 0

// BudStatus is the state of a metamer's axillary bud.
type BudStatus uint8

const (
	BudDormant BudStatus = iota // Consumes nothing, spawns nothing
	BudActive                   // Eligible to extend one child per step
)

// String returns the display name for a BudStatus.
func (s BudStatus) String() string {
	switch s {
	case BudDormant:
		return "Dormant"
	case BudActive:
		return "Active"
	default:
		return "Unknown"
	}
}

// Topology holds a metamer's position in the branching structure.
// Children are ordered by creation; the order index doubles as the
// phyllotactic sibling index.
type Topology struct {
	ID       MetamerID
	Parent   MetamerID // NilMetamer for roots
	Order    int       // Edges from the root (parent order + 1)
	Children []MetamerID
	Pruned   bool // Subtree property: descendants of a pruned metamer are
	// implicitly pruned, interpreted at traversal time.
}

// Stem holds the woody-segment geometry of a metamer.
type Stem struct {
	Length    float64
	Thickness float64
	Direction Vec3 // World-space growth direction, unit length
}

// Foliage holds the leaf state of a metamer.
type Foliage struct {
	LeafArea      float64
	IncidentLight float64 // Light reaching this leaf, set by the caller
}

// Carbon holds a metamer's carbon pools.
type Carbon struct {
	Biomass float64 // Structural carbon
	Reserve float64 // NSC: mobile carbon/nitrogen buffer, may dip to the
	// configured mobilization floor but never below it.
}

// Bud holds the axillary bud state of a metamer.
type Bud struct {
	Status      BudStatus
	ThermalTime float64 // Accumulated degree-days above the base temperature
	Age         int32   // Steps since creation
}

// Pipe holds the allocator outputs for a metamer. Derived purely from
// structure each pass; never an input to physiology within the same pass.
type Pipe struct {
	SupportedArea float64 // Own leaf area plus all non-pruned descendants'
	RadiusTop     float64 // From children's supported area
	RadiusBottom  float64 // From own plus descendants' supported area
}
