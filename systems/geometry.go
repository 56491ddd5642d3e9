package systems

import (
	"github.com/pthm-cable/arbor/components"
	"github.com/pthm-cable/arbor/config"
)

// GrowthDirection computes the world direction of a new internode: the
// parent direction blended with sun and gravity tropism, tilted outward by
// the genotype's branching angle, then rotated around the vertical by the
// phyllotactic increment times the sibling index so successive laterals
// fan out instead of stacking.
func GrowthDirection(
	parent components.Vec3,
	siblingIndex int,
	branchingAngle float64,
	phyllotaxisRad float64,
	tropism config.TropismConfig,
) components.Vec3 {
	sun := components.Vec3{X: tropism.Sun.X, Y: tropism.Sun.Y, Z: tropism.Sun.Z}.Normalized()

	blended := sun.Scale(tropism.Light).
		Add(components.Up.Scale(tropism.Gravity)).
		Add(parent.Normalized().Scale(tropism.Inertia)).
		Normalized()

	return blended.
		Tilt(branchingAngle).
		RotateY(phyllotaxisRad * float64(siblingIndex)).
		Normalized()
}
