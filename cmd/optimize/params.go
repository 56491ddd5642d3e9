// Package main provides CMA-ES optimization of growth parameters against a
// target canopy trajectory.
package main

import (
	"github.com/pthm-cable/arbor/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Bud dynamics
			{Name: "activation_threshold", Path: "bud.activation_threshold", Min: 0.2, Max: 2.0, Default: 0.6},
			{Name: "release_rate", Path: "bud.release_rate", Min: 0.2, Max: 4.0, Default: 1.0},
			{Name: "lambda", Path: "bud.lambda", Min: 0.1, Max: 2.0, Default: 0.5},
			{Name: "thermal_threshold", Path: "bud.thermal_time_threshold", Min: 10, Max: 200, Default: 40},
			{Name: "new_leaf_area", Path: "bud.new_leaf_area", Min: 0.2, Max: 5.0, Default: 1.0},
			// Reserve economics
			{Name: "construction_cost", Path: "reserve.construction_cost", Min: 0.1, Max: 2.0, Default: 0.5},
			{Name: "construction_yield", Path: "reserve.construction_yield", Min: 0.3, Max: 1.0, Default: 0.8},
			// Physiology
			{Name: "light_use_efficiency", Path: "physiology.light_use_efficiency", Min: 0.01, Max: 0.3, Default: 0.08},
			{Name: "maintenance_cost", Path: "physiology.maintenance_cost", Min: 0.0001, Max: 0.01, Default: 0.001},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values, clamped
// to the parameter bounds.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v := spec.Min + normalized[i]*(spec.Max-spec.Min)
		if v < spec.Min {
			v = spec.Min
		}
		if v > spec.Max {
			v = spec.Max
		}
		raw[i] = v
	}
	return raw
}

// ApplyToConfig writes raw parameter values into the config.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, raw []float64) {
	for i, spec := range pv.Specs {
		v := raw[i]
		switch spec.Path {
		case "bud.activation_threshold":
			cfg.Bud.ActivationThreshold = v
		case "bud.release_rate":
			cfg.Bud.ReleaseRate = v
		case "bud.lambda":
			cfg.Bud.Lambda = v
		case "bud.thermal_time_threshold":
			cfg.Bud.ThermalTimeThreshold = v
		case "bud.new_leaf_area":
			cfg.Bud.NewLeafArea = v
		case "reserve.construction_cost":
			cfg.Reserve.ConstructionCost = v
		case "reserve.construction_yield":
			cfg.Reserve.ConstructionYield = v
		case "physiology.light_use_efficiency":
			cfg.Physiology.LightUseEfficiency = v
		case "physiology.maintenance_cost":
			cfg.Physiology.MaintenanceCost = v
		}
	}
}
