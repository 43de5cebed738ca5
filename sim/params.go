package sim

import (
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"
)

// Simulation defaults
const (
	DefaultDt             = 1.0 / 60.0
	DefaultDamping        = 0.01
	DefaultStiffness      = 200.0
	DefaultToughness      = 0.5
	DefaultSphereRadius   = 0.05
	DefaultDragStiffness  = 100.0
	DefaultMinClusterSize = 1
	DefaultGravityY       = -9.8
)

// PlanePolicy selects how a fracture plane is oriented inside a cluster.
type PlanePolicy int

const (
	// PlaneMaxResidual cuts between the rest center and the member with the largest residual.
	PlaneMaxResidual PlanePolicy = iota
	// PlanePrincipalStrain cuts through the rest center, normal to the axis of maximum stretch.
	PlanePrincipalStrain
)

func (p PlanePolicy) String() string {
	switch p {
	case PlanePrincipalStrain:
		return "strain"
	default:
		return "residual"
	}
}

// ParsePlanePolicy maps a scene string to a policy. Unknown names report false.
func ParsePlanePolicy(s string) (PlanePolicy, bool) {
	switch s {
	case "", "residual":
		return PlaneMaxResidual, true
	case "strain":
		return PlanePrincipalStrain, true
	}
	return PlaneMaxResidual, false
}

// Params holds the scalar simulation parameters of a world
type Params struct {
	Dt        float64
	Damping   float64 // fraction of velocity removed per step
	Gravity   r3.Vec
	Stiffness float64 // elastic gain k toward the goal position

	// Linearity blends the rotation with the least-squares linear fit (0 = rigid, 1 = linear)
	Linearity      float64
	MinClusterSize int
	FracturePlane  PlanePolicy

	SphereRadius  float64 // dump sphere radius before clipping
	DragStiffness float64 // soft drag gain when drag planes are off

	Workers int // goroutines for the solve and integrate phases, <=0 uses GOMAXPROCS
}

// DefaultParams returns the parameters used when a scene omits a field
func DefaultParams() Params {
	return Params{
		Dt:             DefaultDt,
		Damping:        DefaultDamping,
		Gravity:        r3.Vec{Y: DefaultGravityY},
		Stiffness:      DefaultStiffness,
		MinClusterSize: DefaultMinClusterSize,
		FracturePlane:  PlaneMaxResidual,
		SphereRadius:   DefaultSphereRadius,
		DragStiffness:  DefaultDragStiffness,
	}
}

func (p Params) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}
