package plant

import (
	"fmt"
	"iter"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/arbor/components"
)

// Metamer is a borrowed view of one metamer's components. The pointers are
// valid until the next structural change to the tree; do not hold them
// across AddMetamer calls.
type Metamer struct {
	Topology *components.Topology
	Stem     *components.Stem
	Foliage  *components.Foliage
	Carbon   *components.Carbon
	Bud      *components.Bud
	Pipe     *components.Pipe
}

// MetamerSpec describes a metamer to insert into a tree.
type MetamerSpec struct {
	ID            components.MetamerID // NilMetamer = assign the next free ID
	Parent        components.MetamerID // NilMetamer = structural root
	Length        float64
	Thickness     float64
	Direction     components.Vec3
	Biomass       float64
	Reserve       float64
	LeafArea      float64
	IncidentLight float64
	Bud           components.BudStatus
}

// Tree is the aggregate root: an ECS arena of metamer entities plus the
// identity index, genotype, and root system. A tree is a single mutable
// resource; callers must serialize step and prune operations against it.
type Tree struct {
	world  *ecs.World
	mapper *ecs.Map6[
		components.Topology,
		components.Stem,
		components.Foliage,
		components.Carbon,
		components.Bud,
		components.Pipe,
	]
	filter *ecs.Filter6[
		components.Topology,
		components.Stem,
		components.Foliage,
		components.Carbon,
		components.Bud,
		components.Pipe,
	]

	topoMap   *ecs.Map1[components.Topology]
	stemMap   *ecs.Map1[components.Stem]
	folMap    *ecs.Map1[components.Foliage]
	carbonMap *ecs.Map1[components.Carbon]
	budMap    *ecs.Map1[components.Bud]
	pipeMap   *ecs.Map1[components.Pipe]

	genotype   Genotype
	rootSystem RootSystem

	index   map[components.MetamerID]ecs.Entity
	created []components.MetamerID // insertion order, never shrinks
	roots   []components.MetamerID
	nextID  components.MetamerID
}

// New creates an empty tree with the given genotype and root system.
func New(genotype Genotype, rootSystem RootSystem) *Tree {
	world := ecs.NewWorld()

	return &Tree{
		world: world,
		mapper: ecs.NewMap6[
			components.Topology,
			components.Stem,
			components.Foliage,
			components.Carbon,
			components.Bud,
			components.Pipe,
		](world),
		filter: ecs.NewFilter6[
			components.Topology,
			components.Stem,
			components.Foliage,
			components.Carbon,
			components.Bud,
			components.Pipe,
		](world),
		topoMap:    ecs.NewMap1[components.Topology](world),
		stemMap:    ecs.NewMap1[components.Stem](world),
		folMap:     ecs.NewMap1[components.Foliage](world),
		carbonMap:  ecs.NewMap1[components.Carbon](world),
		budMap:     ecs.NewMap1[components.Bud](world),
		pipeMap:    ecs.NewMap1[components.Pipe](world),
		genotype:   genotype,
		rootSystem: rootSystem,
		index:      make(map[components.MetamerID]ecs.Entity),
		nextID:     1,
	}
}

// Genotype returns the tree's genotype coefficients.
func (t *Tree) Genotype() Genotype {
	return t.genotype
}

// RootSystem returns the belowground resource source.
func (t *Tree) RootSystem() RootSystem {
	return t.rootSystem
}

// SetApicalDominance overrides the genotype's apical dominance strength.
// Used by seasonal runs to relax dominance after apex pruning.
func (t *Tree) SetApicalDominance(v float64) {
	if v < 0 {
		v = 0
	}
	t.genotype.ApicalDominance = v
}

// Len returns the number of metamers ever created, including pruned ones.
func (t *Tree) Len() int {
	return len(t.created)
}

// Roots returns the identities of the parentless metamers, in creation order.
func (t *Tree) Roots() []components.MetamerID {
	out := make([]components.MetamerID, len(t.roots))
	copy(out, t.roots)
	return out
}

// AddMetamer inserts a metamer and returns its identity. If spec.ID is
// NilMetamer the next free identity is assigned. Fails with a
// ValidationError when the identity already exists or the declared parent
// is unknown.
func (t *Tree) AddMetamer(spec MetamerSpec) (components.MetamerID, error) {
	id := spec.ID
	if id == components.NilMetamer {
		id = t.nextID
	}
	if _, ok := t.index[id]; ok {
		return components.NilMetamer, &ValidationError{Reason: fmt.Sprintf("duplicate metamer id %d", id)}
	}

	order := 0
	if spec.Parent != components.NilMetamer {
		parentEntity, ok := t.index[spec.Parent]
		if !ok {
			return components.NilMetamer, &ValidationError{Reason: fmt.Sprintf("parent metamer %d does not exist", spec.Parent)}
		}
		order = t.topoMap.Get(parentEntity).Order + 1
	}

	topo := components.Topology{
		ID:     id,
		Parent: spec.Parent,
		Order:  order,
	}
	stem := components.Stem{
		Length:    spec.Length,
		Thickness: spec.Thickness,
		Direction: spec.Direction.Normalized(),
	}
	foliage := components.Foliage{
		LeafArea:      spec.LeafArea,
		IncidentLight: spec.IncidentLight,
	}
	carbon := components.Carbon{
		Biomass: spec.Biomass,
		Reserve: spec.Reserve,
	}
	bud := components.Bud{Status: spec.Bud}

	entity := t.mapper.NewEntity(&topo, &stem, &foliage, &carbon, &bud, &components.Pipe{})

	t.index[id] = entity
	t.created = append(t.created, id)
	if id >= t.nextID {
		t.nextID = id + 1
	}

	if spec.Parent == components.NilMetamer {
		t.roots = append(t.roots, id)
	} else {
		// Re-fetch: the insert above may have moved component storage.
		parentTopo := t.topoMap.Get(t.index[spec.Parent])
		parentTopo.Children = append(parentTopo.Children, id)
	}

	return id, nil
}

// Get returns a component view of the metamer, or a NotFoundError.
func (t *Tree) Get(id components.MetamerID) (Metamer, error) {
	m, ok := t.view(id)
	if !ok {
		return Metamer{}, &NotFoundError{ID: id}
	}
	return m, nil
}

func (t *Tree) view(id components.MetamerID) (Metamer, bool) {
	entity, ok := t.index[id]
	if !ok {
		return Metamer{}, false
	}
	return Metamer{
		Topology: t.topoMap.Get(entity),
		Stem:     t.stemMap.Get(entity),
		Foliage:  t.folMap.Get(entity),
		Carbon:   t.carbonMap.Get(entity),
		Bud:      t.budMap.Get(entity),
		Pipe:     t.pipeMap.Get(entity),
	}, true
}

// Descendants returns a lazy, restartable, pre-order sequence of the
// identities reachable from id. Pruned metamers are included: pruning is
// interpreted by consumers, not hidden by the graph.
func (t *Tree) Descendants(id components.MetamerID, includeSelf bool) (iter.Seq[components.MetamerID], error) {
	if _, ok := t.index[id]; !ok {
		return nil, &NotFoundError{ID: id}
	}

	return func(yield func(components.MetamerID) bool) {
		stack := []components.MetamerID{id}
		self := true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !self || includeSelf {
				if !yield(cur) {
					return
				}
			}
			self = false

			children := t.topoMap.Get(t.index[cur]).Children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}, nil
}

// All returns every metamer identity in creation order, pruned included.
func (t *Tree) All() iter.Seq[components.MetamerID] {
	return func(yield func(components.MetamerID) bool) {
		for _, id := range t.created {
			if !yield(id) {
				return
			}
		}
	}
}

// Active returns the identities of all non-pruned metamers, pre-order from
// the roots. A pruned metamer cuts its whole subtree from the sequence,
// regardless of the descendants' own flags.
func (t *Tree) Active() iter.Seq[components.MetamerID] {
	return func(yield func(components.MetamerID) bool) {
		stack := make([]components.MetamerID, len(t.roots))
		for i, id := range t.roots {
			stack[len(t.roots)-1-i] = id
		}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			topo := t.topoMap.Get(t.index[cur])
			if topo.Pruned {
				continue
			}
			if !yield(cur) {
				return
			}
			for i := len(topo.Children) - 1; i >= 0; i-- {
				stack = append(stack, topo.Children[i])
			}
		}
	}
}

// ActiveCount returns the number of non-pruned metamers.
func (t *Tree) ActiveCount() int {
	n := 0
	for range t.Active() {
		n++
	}
	return n
}

// IsActive reports whether the metamer exists and neither it nor any
// ancestor is pruned.
func (t *Tree) IsActive(id components.MetamerID) bool {
	entity, ok := t.index[id]
	if !ok {
		return false
	}
	for {
		topo := t.topoMap.Get(entity)
		if topo.Pruned {
			return false
		}
		if topo.Parent == components.NilMetamer {
			return true
		}
		entity = t.index[topo.Parent]
	}
}

// Prune marks the metamer pruned, excluding its whole subtree from future
// physiology and allocation. Pruning an already-pruned metamer is a no-op.
// Fails with a NotFoundError if the identity does not exist.
func (t *Tree) Prune(id components.MetamerID) error {
	entity, ok := t.index[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	t.topoMap.Get(entity).Pruned = true
	return nil
}

// Totals holds whole-tree aggregates over the active (non-pruned) set.
type Totals struct {
	LeafArea float64
	Biomass  float64
	Reserve  float64
	Count    int
}

// Totals sums leaf area, biomass, and reserve over all active metamers.
func (t *Tree) Totals() Totals {
	var agg Totals

	query := t.filter.Query()
	for query.Next() {
		topo, _, foliage, carbon, _, _ := query.Get()
		if !t.IsActive(topo.ID) {
			continue
		}
		agg.LeafArea += foliage.LeafArea
		agg.Biomass += carbon.Biomass
		agg.Reserve += carbon.Reserve
		agg.Count++
	}
	return agg
}
