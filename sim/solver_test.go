package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func singleCluster(ps []Particle) *ClusterSet {
	members := make([]int, len(ps))
	for i := range members {
		members[i] = i
	}
	return NewClusterSet([]ClusterSpec{{Members: members, Toughness: math.Inf(1)}}, ps, 1)
}

func TestSolveRigidMotionIsExact(t *testing.T) {
	solid := []r3.Vec{{}, {X: 1}, {Y: 2}, {Z: 3}, {X: 1, Y: 1, Z: 1}}
	square := []r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}
	shift := r3.Vec{X: 3, Y: -1, Z: 2}

	cases := []struct {
		name  string
		rest  []r3.Vec
		axis  r3.Vec
		angle float64
	}{
		{"solid translate", solid, r3.Vec{Z: 1}, 0},
		{"solid oblique", solid, r3.Vec{X: 1, Y: -2, Z: 0.5}, 1.1},
		{"solid half turn", solid, r3.Vec{X: 1, Y: 1}, math.Pi},
		{"planar half turn in plane", square, r3.Vec{Z: 1}, math.Pi},
		{"planar half turn out of plane", square, r3.Vec{X: 1}, math.Pi},
		{"planar tilt", square, r3.Vec{X: 1, Y: 1}, 0.7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps := particlesAt(tc.rest...)
			set := singleCluster(ps)
			rot := rotation(tc.axis, tc.angle)
			for i := range ps {
				ps[i].Position = r3.Add(rot.MulVec(ps[i].RestPosition), shift)
			}

			sol := Solve(set.Clusters[0], ps, 0)
			if sol.Degenerate {
				t.Fatalf("expected a determined rotation")
			}
			for k, m := range sol.Members {
				if !near(sol.Goals[k], ps[m].Position, tol) {
					t.Fatalf("member %d: goal %v, position %v", m, sol.Goals[k], ps[m].Position)
				}
			}
			if sol.Stress > tol {
				t.Fatalf("expected zero residual, got %g", sol.Stress)
			}
		})
	}
}

func TestSolveCollinearFallsBackToTranslation(t *testing.T) {
	ps := particlesAt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 2})
	set := singleCluster(ps)
	// Rotate the bar a quarter turn and move it
	for i := range ps {
		ps[i].Position = r3.Vec{X: 5, Y: ps[i].RestPosition.X}
	}

	sol := Solve(set.Clusters[0], ps, 0)
	if !sol.Degenerate {
		t.Fatalf("expected degenerate rotation for a collinear cluster")
	}
	center := r3.Vec{X: 5, Y: 1}
	for k, g := range sol.Goals {
		if !finiteVec(g) {
			t.Fatalf("goal %d is not finite: %v", k, g)
		}
		want := r3.Add(center, set.Clusters[0].rest.offsets[k])
		if !near(g, want, tol) {
			t.Fatalf("goal %d: got %v want translation-only %v", k, g, want)
		}
	}
}

func TestSolveCollocatedMembers(t *testing.T) {
	ps := particlesAt(r3.Vec{X: 1}, r3.Vec{X: 1}, r3.Vec{X: 1})
	set := singleCluster(ps)
	ps[2].Position = r3.Vec{X: 2}

	sol := Solve(set.Clusters[0], ps, 0)
	if !sol.Degenerate {
		t.Fatalf("expected degenerate rotation")
	}
	for _, g := range sol.Goals {
		if !finiteVec(g) {
			t.Fatalf("goal is not finite: %v", g)
		}
	}
}

func TestSolveLinearBlendFollowsStretch(t *testing.T) {
	rest := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 1, Z: 1}}
	ps := particlesAt(rest...)
	set := singleCluster(ps)
	for i := range ps {
		p := ps[i].RestPosition
		ps[i].Position = r3.Vec{X: 2 * p.X, Y: p.Y, Z: p.Z}
	}

	rigid := Solve(set.Clusters[0], ps, 0)
	linear := Solve(set.Clusters[0], ps, 1)
	if rigid.Stress <= tol {
		t.Fatalf("expected a stretched cluster to have a residual")
	}
	for k, m := range linear.Members {
		if !near(linear.Goals[k], ps[m].Position, 1e-7) {
			t.Fatalf("linear goal %d: got %v want %v", k, linear.Goals[k], ps[m].Position)
		}
	}
}

func TestSolveAllSkipsInactive(t *testing.T) {
	ps := particlesAt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1})
	set := NewClusterSet([]ClusterSpec{
		{Members: []int{0, 1, 2}},
		{Members: []int{0}},
	}, ps, 2)

	sols := SolveAll(set, ps, 0, 4)
	if len(sols) != 2 {
		t.Fatalf("expected one solution per cluster, got %d", len(sols))
	}
	if sols[0].Empty() {
		t.Errorf("Expected goals for the active cluster")
	}
	if !sols[1].Empty() {
		t.Errorf("Expected no goals for the undersized cluster")
	}
}
