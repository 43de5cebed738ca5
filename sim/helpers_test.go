package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func ptr[T any](v T) *T { return &v }

// squareScene is the unit square lattice as one cluster, no gravity, no damping
func squareScene(toughness float64) *Scene {
	return &Scene{
		Particles: []ParticleJSON{
			{Position: [3]float64{0, 0, 0}},
			{Position: [3]float64{1, 0, 0}},
			{Position: [3]float64{0, 1, 0}},
			{Position: [3]float64{1, 1, 0}},
		},
		Clusters:  []ClusterJSON{{Members: []int{0, 1, 2, 3}, Toughness: ptr(toughness)}},
		Stiffness: ptr(1.0),
		Gravity:   &[3]float64{},
		Damping:   ptr(0.0),
	}
}

func mustWorld(t *testing.T, sc *Scene) *World {
	t.Helper()
	w, err := NewWorld(sc)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

func particlesAt(pos ...r3.Vec) []Particle {
	ps := make([]Particle, len(pos))
	for i, p := range pos {
		ps[i] = Particle{Position: p, RestPosition: p, Mass: 1}
	}
	return ps
}

// rotation builds the matrix of a rotation by angle around axis
func rotation(axis r3.Vec, angle float64) *r3.Mat {
	return r3.NewRotation(angle, axis).Mat()
}

func near(a, b r3.Vec, eps float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= eps
}

func finiteVec(v r3.Vec) bool {
	for _, f := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
