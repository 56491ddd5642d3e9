// Package plant holds the metamer-graph data model: a tree is an arena of
// metamer entities indexed by identity, with parent/child relations stored
// as identity values rather than direct references.
package plant

// Genotype is a named set of scalar coefficients shaping tree architecture.
type Genotype struct {
	Name            string
	ApicalDominance float64 // Strength of the apex auxin signal
	InternodeLength float64 // Initial length of a new internode (m)
	BranchingAngle  float64 // Radians away from the parent axis
	FlowerRate      float64 // Biases bud release probability upward
}

// RootSystem is the belowground resource source, one per tree.
type RootSystem struct {
	NitrogenUptake float64 // Scales leaf nitrogen and thus photosynthesis
	CytokininLevel float64 // Systemic bud-release signal
}

// Environment is the per-step boundary condition supplied by the caller.
// It is immutable for the duration of a step.
type Environment struct {
	TemperatureC    float64
	AuxinApex       float64 // Apex-to-base dominance signal
	CytokininSignal float64 // Root-to-shoot release signal multiplier
}
