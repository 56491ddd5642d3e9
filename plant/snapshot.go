package plant

import "github.com/pthm-cable/arbor/components"

// SnapshotVersion is incremented when the snapshot format changes.
const SnapshotVersion = 1

// MetamerState is one metamer's complete state in a snapshot, parent-linked.
type MetamerState struct {
	ID     components.MetamerID `json:"id"`
	Parent components.MetamerID `json:"parent_id,omitempty"`
	Order  int                  `json:"order"`
	Pruned bool                 `json:"pruned"`

	Length    float64         `json:"length"`
	Thickness float64         `json:"thickness"`
	Direction components.Vec3 `json:"direction"`

	LeafArea      float64 `json:"leaf_area"`
	IncidentLight float64 `json:"incident_light"`

	Biomass float64 `json:"biomass"`
	Reserve float64 `json:"nsc_reserve"`

	BudStatus   string  `json:"bud_status"`
	ThermalTime float64 `json:"thermal_time"`

	SupportedArea float64 `json:"supported_area"`
	RadiusTop     float64 `json:"radius_top"`
	RadiusBottom  float64 `json:"radius_bottom"`

	Children []components.MetamerID `json:"children,omitempty"`
}

// Snapshot is a read-only, serializable view of a tree: the flat
// parent-linked form. The nested children-owning form is derived from it
// via Nested; both are serializations of the same arena.
type Snapshot struct {
	Version    int                    `json:"version"`
	Genotype   Genotype               `json:"genotype"`
	RootSystem RootSystem             `json:"root_system"`
	Roots      []components.MetamerID `json:"roots"`
	Metamers   []MetamerState         `json:"metamers"`
}

// MetamerNode is the nested form of a metamer subtree.
type MetamerNode struct {
	MetamerState
	Nodes []*MetamerNode `json:"nodes,omitempty"`
}

// Snapshot captures the complete current state of the tree, in creation
// order. Pruned metamers are included with their flag set; history and
// identity stability are part of the contract.
func (t *Tree) Snapshot() Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		Genotype:   t.genotype,
		RootSystem: t.rootSystem,
		Roots:      t.Roots(),
		Metamers:   make([]MetamerState, 0, t.Len()),
	}

	for id := range t.All() {
		m, _ := t.view(id)
		children := make([]components.MetamerID, len(m.Topology.Children))
		copy(children, m.Topology.Children)

		snap.Metamers = append(snap.Metamers, MetamerState{
			ID:            m.Topology.ID,
			Parent:        m.Topology.Parent,
			Order:         m.Topology.Order,
			Pruned:        m.Topology.Pruned,
			Length:        m.Stem.Length,
			Thickness:     m.Stem.Thickness,
			Direction:     m.Stem.Direction,
			LeafArea:      m.Foliage.LeafArea,
			IncidentLight: m.Foliage.IncidentLight,
			Biomass:       m.Carbon.Biomass,
			Reserve:       m.Carbon.Reserve,
			BudStatus:     m.Bud.Status.String(),
			ThermalTime:   m.Bud.ThermalTime,
			SupportedArea: m.Pipe.SupportedArea,
			RadiusTop:     m.Pipe.RadiusTop,
			RadiusBottom:  m.Pipe.RadiusBottom,
			Children:      children,
		})
	}
	return snap
}

// Nested derives the children-owning tree form from the flat snapshot.
// Returns one node per structural root, in root order.
func (s Snapshot) Nested() []*MetamerNode {
	byID := make(map[components.MetamerID]*MetamerNode, len(s.Metamers))
	for _, state := range s.Metamers {
		byID[state.ID] = &MetamerNode{MetamerState: state}
	}

	for _, node := range byID {
		for _, childID := range node.Children {
			if child, ok := byID[childID]; ok {
				node.Nodes = append(node.Nodes, child)
			}
		}
	}

	out := make([]*MetamerNode, 0, len(s.Roots))
	for _, id := range s.Roots {
		if node, ok := byID[id]; ok {
			out = append(out, node)
		}
	}
	return out
}
