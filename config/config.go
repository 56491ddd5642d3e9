// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Physiology PhysiologyConfig `yaml:"physiology"`
	Reserve    ReserveConfig    `yaml:"reserve"`
	Allocation AllocationConfig `yaml:"allocation"`
	Bud        BudConfig        `yaml:"bud"`
	Tropism    TropismConfig    `yaml:"tropism"`
	Initial    InitialConfig    `yaml:"initial"`
	Root       RootConfig       `yaml:"root"`
	Pruning    PruningConfig    `yaml:"pruning"`
	Season     SeasonConfig     `yaml:"season"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Genotypes  []GenotypeConfig `yaml:"genotypes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysiologyConfig holds the photosynthesis and respiration coefficients.
type PhysiologyConfig struct {
	LightUseEfficiency  float64 `yaml:"light_use_efficiency"`  // Carbon per light unit per leaf area
	LightHalfSaturation float64 `yaml:"light_half_saturation"` // Light level at half the saturated rate
	NitrogenScale       float64 `yaml:"nitrogen_scale"`        // Multiplier on root nitrogen uptake
	MaintenanceCost     float64 `yaml:"maintenance_cost"`      // Respiration per unit biomass per step at T_ref
	Q10                 float64 `yaml:"q10"`                   // Respiration multiplier per 10°C
	RefTemperatureC     float64 `yaml:"ref_temperature_c"`
}

// ReserveConfig holds NSC reserve economics.
type ReserveConfig struct {
	MobilizationFloor float64 `yaml:"mobilization_floor"` // Most negative reserve a metamer may reach
	ConstructionCost  float64 `yaml:"construction_cost"`  // Reserve paid to extend one new metamer
	ConstructionYield float64 `yaml:"construction_yield"` // Fraction of the cost becoming child biomass
}

// AllocationConfig holds pipe-model parameters.
type AllocationConfig struct {
	Kappa     float64 `yaml:"kappa"`      // Transport cross-section per supported leaf area
	MinRadius float64 `yaml:"min_radius"` // Floor avoiding degenerate zero-width segments
}

// BudConfig holds bud release, extension, and phyllotaxis parameters.
type BudConfig struct {
	ActivationThreshold  float64 `yaml:"activation_threshold"`   // Potential scale for release probability
	Lambda               float64 `yaml:"lambda"`                 // Distance softening in the activation potential
	ReleaseRate          float64 `yaml:"release_rate"`           // Steepness of the release probability curve
	BaseTemperatureC     float64 `yaml:"base_temperature_c"`     // Thermal time accumulates above this
	ThermalTimeThreshold float64 `yaml:"thermal_time_threshold"` // Degree-days required before release
	PhyllotaxisDeg       float64 `yaml:"phyllotaxis_deg"`        // Azimuth increment per sibling index
	TaperRatio           float64 `yaml:"taper_ratio"`            // Child thickness as a fraction of the parent's
	NewLeafArea          float64 `yaml:"new_leaf_area"`          // Leaf area of a freshly extended metamer
}

// TropismConfig holds growth-direction blending weights.
type TropismConfig struct {
	Light   float64   `yaml:"light"`   // Pull toward the sun vector
	Gravity float64   `yaml:"gravity"` // Pull toward world up
	Inertia float64   `yaml:"inertia"` // Pull along the parent direction
	Sun     SunVector `yaml:"sun"`
}

// SunVector is the world-space direction toward the dominant light source.
type SunVector struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// InitialConfig holds the trunk metamer seeded at tree creation.
type InitialConfig struct {
	Length        float64 `yaml:"length"`
	Thickness     float64 `yaml:"thickness"`
	LeafArea      float64 `yaml:"leaf_area"`
	IncidentLight float64 `yaml:"incident_light"`
	Biomass       float64 `yaml:"biomass"`
	Reserve       float64 `yaml:"reserve"`
}

// RootConfig holds root-system defaults.
type RootConfig struct {
	NitrogenUptake float64 `yaml:"nitrogen_uptake"`
	CytokininLevel float64 `yaml:"cytokinin_level"`
}

// PruningConfig holds pruning side-effect parameters.
type PruningConfig struct {
	ShockRelease        bool    `yaml:"shock_release"`         // Activate parent and sibling buds after a prune
	ApicalReleaseFactor float64 `yaml:"apical_release_factor"` // Dominance multiplier after a root prune
}

// SeasonConfig holds the seasonal run defaults.
type SeasonConfig struct {
	Days            int     `yaml:"days"`
	BaseTemperature float64 `yaml:"base_temperature_c"`
	Amplitude       float64 `yaml:"amplitude_c"`
	CytokininSignal float64 `yaml:"cytokinin_signal"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	WindowSteps int `yaml:"window_steps"`
}

// GenotypeConfig defines one named genotype coefficient set.
type GenotypeConfig struct {
	Name            string  `yaml:"name"`
	ApicalDominance float64 `yaml:"apical_dominance"`
	InternodeLength float64 `yaml:"internode_length"`
	BranchingAngle  float64 `yaml:"branching_angle"` // Radians
	FlowerRate      float64 `yaml:"flower_rate"`
}

// DerivedConfig holds values computed after loading.
type DerivedConfig struct {
	PhyllotaxisRad float64        // Phyllotaxis increment in radians
	GenotypeIndex  map[string]int // name -> index for genotype lookup
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.PhyllotaxisRad = c.Bud.PhyllotaxisDeg * math.Pi / 180

	// Synthesize a default genotype if none specified
	if len(c.Genotypes) == 0 {
		c.Genotypes = []GenotypeConfig{
			{
				Name:            "fuji",
				ApicalDominance: 0.85,
				InternodeLength: 0.05,
				BranchingAngle:  0.78,
				FlowerRate:      0.4,
			},
		}
	}

	c.Derived.GenotypeIndex = make(map[string]int, len(c.Genotypes))
	for i, g := range c.Genotypes {
		c.Derived.GenotypeIndex[g.Name] = i
	}
}

// Genotype returns the named genotype, or false if it is not defined.
func (c *Config) Genotype(name string) (GenotypeConfig, bool) {
	i, ok := c.Derived.GenotypeIndex[name]
	if !ok {
		return GenotypeConfig{}, false
	}
	return c.Genotypes[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
