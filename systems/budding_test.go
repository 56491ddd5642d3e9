package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/arbor/components"
	"github.com/pthm-cable/arbor/plant"
)

// ---------- ApexDistances ----------

func TestApexDistancesNoActiveApex(t *testing.T) {
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{Length: 0.1})
	child, _ := tree.AddMetamer(plant.MetamerSpec{Parent: root, Length: 0.1})

	dist := ApexDistances(tree)
	for _, id := range []components.MetamerID{root, child} {
		if !math.IsInf(dist[id], 1) {
			t.Errorf("metamer %d distance = %v, want +Inf with no active apex", id, dist[id])
		}
	}
}

func TestApexDistancesAlongChain(t *testing.T) {
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{Length: 0.1})
	mid, _ := tree.AddMetamer(plant.MetamerSpec{Parent: root, Length: 0.2})
	apex, _ := tree.AddMetamer(plant.MetamerSpec{Parent: mid, Length: 0.3, Bud: components.BudActive})

	dist := ApexDistances(tree)

	if dist[apex] != 0 {
		t.Errorf("apex distance = %v, want 0", dist[apex])
	}
	// Distance accumulates the child stem lengths walked through.
	if math.Abs(dist[mid]-0.3) > 1e-9 {
		t.Errorf("mid distance = %v, want 0.3", dist[mid])
	}
	if math.Abs(dist[root]-0.5) > 1e-9 {
		t.Errorf("root distance = %v, want 0.5", dist[root])
	}
}

func TestApexDistancesThroughParent(t *testing.T) {
	// The apex sits on one branch; the sibling branch must see it through
	// the fork.
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{Length: 0.1})
	apexBranch, _ := tree.AddMetamer(plant.MetamerSpec{Parent: root, Length: 0.2, Bud: components.BudActive})
	sibling, _ := tree.AddMetamer(plant.MetamerSpec{Parent: root, Length: 0.4})
	_ = apexBranch

	dist := ApexDistances(tree)
	if math.Abs(dist[root]-0.2) > 1e-9 {
		t.Errorf("root distance = %v, want 0.2", dist[root])
	}
	if math.Abs(dist[sibling]-0.6) > 1e-9 {
		t.Errorf("sibling distance = %v, want 0.6 (through the fork)", dist[sibling])
	}
}

func TestApexDistancesIgnorePruned(t *testing.T) {
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{Length: 0.1})
	cut, _ := tree.AddMetamer(plant.MetamerSpec{Parent: root, Length: 0.1, Bud: components.BudActive})
	if err := tree.Prune(cut); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	dist := ApexDistances(tree)
	if !math.IsInf(dist[root], 1) {
		t.Errorf("pruned apex must not suppress: distance = %v, want +Inf", dist[root])
	}
}

// ---------- ActivationPotential ----------

func TestActivationPotential(t *testing.T) {
	tests := []struct {
		name                            string
		cyto, auxin, distance, lambda   float64
		want                            float64
	}{
		{"no apex anywhere", 1, 1, math.Inf(1), 0.5, 2},
		{"at the apex", 1, 1, 0, 0.5, 1 / 1.5},
		{"negative cytokinin clamps", -1, 1, 0, 0.5, 0},
		{"zero denominator guards", 1, 0, math.Inf(1), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActivationPotential(tt.cyto, tt.auxin, tt.distance, tt.lambda)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ActivationPotential = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActivationPotentialRisesWithDistance(t *testing.T) {
	near := ActivationPotential(1, 1, 0.1, 0.5)
	far := ActivationPotential(1, 1, 5, 0.5)
	if far <= near {
		t.Errorf("suppression must attenuate with distance: near=%v far=%v", near, far)
	}
}

// ---------- BudSystem ----------

func TestBudReleaseRequiresThermalTime(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{LeafArea: 5, Reserve: 2})

	// Cold history, warm step: the gate stays shut.
	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 10, AuxinApex: 1, CytokininSignal: 1}
	rng := rand.New(rand.NewSource(1))

	d := bs.Decide(tree, env, rng)
	if len(d.Release) != 0 {
		t.Errorf("release before thermal threshold: %v", d.Release)
	}

	// Preload accumulated degree-days past the threshold: with the trunk
	// dormant and no apex anywhere, suppression is zero and release
	// pressure peaks. With enough draws it must release.
	m, _ := tree.Get(root)
	m.Bud.ThermalTime = cfg.Bud.ThermalTimeThreshold

	released := false
	for i := 0; i < 200 && !released; i++ {
		released = len(bs.Decide(tree, env, rng).Release) > 0
	}
	if !released {
		t.Error("thermally satisfied unsuppressed bud never released in 200 draws")
	}
}

func TestBudRegressionOnStarvation(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{
		Reserve: cfg.Reserve.MobilizationFloor,
		Bud:     components.BudActive,
	})

	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 20, AuxinApex: 1, CytokininSignal: 1}
	d := bs.Decide(tree, env, rand.New(rand.NewSource(1)))

	if len(d.Regress) != 1 || d.Regress[0] != root {
		t.Fatalf("starved active bud must regress, got %+v", d)
	}

	bs.Apply(tree, env, d)
	m, _ := tree.Get(root)
	if m.Bud.Status != components.BudDormant {
		t.Errorf("status = %v, want Dormant after regression", m.Bud.Status)
	}
}

func TestBudExtendsOnceAtRelease(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{
		Length:        0.05,
		Thickness:     0.4,
		Direction:     components.Up,
		Reserve:       4,
		LeafArea:      5,
		IncidentLight: 1000,
	})
	// Thermal history satisfied; with no active apex anywhere release
	// pressure peaks, so the dormant trunk releases within a few draws.
	m, _ := tree.Get(root)
	m.Bud.ThermalTime = cfg.Bud.ThermalTimeThreshold

	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 20, AuxinApex: 1, CytokininSignal: 1}
	rng := rand.New(rand.NewSource(1))

	var d BudDecisions
	for i := 0; i < 200; i++ {
		d = bs.Decide(tree, env, rng)
		if len(d.Release) > 0 {
			break
		}
	}
	if len(d.Release) != 1 || d.Release[0] != root {
		t.Fatalf("Release = %v, want [%d]", d.Release, root)
	}

	spawned := bs.Apply(tree, env, d)
	if len(spawned) != 1 {
		t.Fatalf("spawned = %v, want one child at release", spawned)
	}

	child, err := tree.Get(spawned[0])
	if err != nil {
		t.Fatalf("Get spawned: %v", err)
	}
	if child.Topology.Parent != root {
		t.Errorf("child parent = %d, want %d", child.Topology.Parent, root)
	}
	if child.Bud.Status != components.BudDormant {
		t.Error("new metamer must join dormant")
	}
	if child.Bud.Age != 0 {
		// Ages bump before extension, so the child misses this step's bump.
		t.Errorf("child age = %d, want 0", child.Bud.Age)
	}
	if math.Abs(child.Stem.Thickness-0.4*cfg.Bud.TaperRatio) > 1e-9 {
		t.Errorf("child thickness = %v, want parent * taper", child.Stem.Thickness)
	}
	if child.Foliage.IncidentLight != 1000 {
		t.Errorf("child inherits parent light, got %v", child.Foliage.IncidentLight)
	}

	// The release was applied and the construction cost paid.
	parent, _ := tree.Get(root)
	if parent.Bud.Status != components.BudActive {
		t.Error("released bud must end the step active")
	}
	if math.Abs(parent.Carbon.Reserve-(4-cfg.Reserve.ConstructionCost)) > 1e-9 {
		t.Errorf("parent reserve = %v, want %v", parent.Carbon.Reserve, 4-cfg.Reserve.ConstructionCost)
	}
}

func TestActiveBudNeverExtendsAgain(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	_, err := tree.AddMetamer(plant.MetamerSpec{
		Length: 0.05, Thickness: 0.4, Direction: components.Up,
		Reserve: 100, LeafArea: 5, IncidentLight: 1000,
		Bud: components.BudActive,
	})
	if err != nil {
		t.Fatalf("AddMetamer: %v", err)
	}

	// Plenty of carbon, plenty of steps: an already-active bud must never
	// produce another child, or growth compounds without bound.
	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 20, AuxinApex: 1, CytokininSignal: 1}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		d := bs.Decide(tree, env, rng)
		if len(d.Release) != 0 {
			t.Fatalf("step %d: active bud appeared in Release: %v", i, d.Release)
		}
		if spawned := bs.Apply(tree, env, d); len(spawned) != 0 {
			t.Fatalf("step %d: active bud extended again: %v", i, spawned)
		}
	}
	if tree.Len() != 1 {
		t.Errorf("Len = %d, want 1", tree.Len())
	}
}

func TestRegressedBudMayExtendOnReRelease(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{
		Length: 0.05, Thickness: 0.4, Direction: components.Up,
		Reserve: cfg.Reserve.MobilizationFloor,
		Bud:     components.BudActive,
	})

	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 20, AuxinApex: 1, CytokininSignal: 1}
	rng := rand.New(rand.NewSource(1))

	// Starve it back to dormancy.
	d := bs.Decide(tree, env, rng)
	if len(d.Regress) != 1 {
		t.Fatalf("Regress = %v, want [%d]", d.Regress, root)
	}
	bs.Apply(tree, env, d)

	// Refeed; the re-armed bud releases again and extends its next child.
	m, _ := tree.Get(root)
	m.Carbon.Reserve = 4
	m.Bud.ThermalTime = cfg.Bud.ThermalTimeThreshold

	grew := false
	for i := 0; i < 200 && !grew; i++ {
		grew = len(bs.Apply(tree, env, bs.Decide(tree, env, rng))) > 0
	}
	if !grew {
		t.Fatal("re-released bud never extended in 200 draws")
	}
	if tree.Len() != 2 {
		t.Errorf("Len = %d, want 2", tree.Len())
	}
}

func TestReleaseWithoutCarbonStaysChildless(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	// Reserve too close to the floor to pay a full construction cost.
	reserve := cfg.Reserve.MobilizationFloor + cfg.Reserve.ConstructionCost*0.5
	root, _ := tree.AddMetamer(plant.MetamerSpec{Reserve: reserve})
	m, _ := tree.Get(root)
	m.Bud.ThermalTime = cfg.Bud.ThermalTimeThreshold

	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 20, AuxinApex: 1, CytokininSignal: 1}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		d := bs.Decide(tree, env, rng)
		if spawned := bs.Apply(tree, env, d); len(spawned) != 0 {
			t.Fatalf("extension demand must be suppressed, not clamped: %v", spawned)
		}
		after, _ := tree.Get(root)
		if after.Carbon.Reserve < cfg.Reserve.MobilizationFloor {
			t.Fatalf("reserve %v crossed the floor %v", after.Carbon.Reserve, cfg.Reserve.MobilizationFloor)
		}
	}
	if tree.Len() != 1 {
		t.Errorf("no child may be built without paying the full cost, Len = %d", tree.Len())
	}
}

func TestNewMetamerNeverExtendsInCreationStep(t *testing.T) {
	cfg := testConfig(t)
	tree := testTree()
	root, _ := tree.AddMetamer(plant.MetamerSpec{
		Length: 0.05, Thickness: 0.4, Direction: components.Up,
		Reserve: 10, LeafArea: 5,
	})
	m, _ := tree.Get(root)
	m.Bud.ThermalTime = cfg.Bud.ThermalTimeThreshold

	bs := NewBudSystem(cfg)
	env := plant.Environment{TemperatureC: 20, AuxinApex: 1, CytokininSignal: 1}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		if spawned := bs.Apply(tree, env, bs.Decide(tree, env, rng)); len(spawned) > 0 {
			break
		}
	}
	if tree.Len() != 2 {
		t.Fatalf("Len = %d, want root plus exactly one new child", tree.Len())
	}
	if _, err := tree.Get(root); err != nil {
		t.Fatalf("Get: %v", err)
	}
	// The child joined within the same Apply that created it and stayed
	// dormant: decisions were taken before it existed.
	child, _ := tree.Get(components.MetamerID(2))
	if child.Bud.Status != components.BudDormant {
		t.Error("new metamer must not act in its creation step")
	}
}

// ---------- GrowthDirection ----------

func TestGrowthDirectionUnitLength(t *testing.T) {
	cfg := testConfig(t)
	dir := GrowthDirection(components.Up, 0, 0.78, cfg.Derived.PhyllotaxisRad, cfg.Tropism)
	if math.Abs(dir.Length()-1) > 1e-9 {
		t.Errorf("|dir| = %v, want 1", dir.Length())
	}
}

func TestGrowthDirectionSiblingsDiverge(t *testing.T) {
	cfg := testConfig(t)

	first := GrowthDirection(components.Up, 0, 0.78, cfg.Derived.PhyllotaxisRad, cfg.Tropism)
	second := GrowthDirection(components.Up, 1, 0.78, cfg.Derived.PhyllotaxisRad, cfg.Tropism)

	// Successive laterals fan out around the axis instead of stacking.
	if math.Abs(first.Dot(second)-1) < 1e-6 {
		t.Error("sibling directions must differ by the phyllotactic rotation")
	}
	if math.Abs(first.Y-second.Y) > 1e-9 {
		t.Errorf("rotation about the vertical must keep the elevation: %v vs %v", first.Y, second.Y)
	}
}
