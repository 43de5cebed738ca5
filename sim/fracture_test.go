package sim

import (
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func barParticles() []Particle {
	var pos []r3.Vec
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			pos = append(pos, r3.Vec{X: float64(x), Y: float64(y)})
		}
	}
	return particlesAt(pos...)
}

// stretchBar opens a gap between the x<=1 and x>=2 halves
func stretchBar(ps []Particle) {
	for i := range ps {
		if ps[i].RestPosition.X >= 2 {
			ps[i].Position.X = ps[i].RestPosition.X + 1
		}
	}
}

func sideSets(t *testing.T, set *ClusterSet, ids []int) [][]int {
	t.Helper()
	var out [][]int
	for _, id := range ids {
		out = append(out, slices.Clone(set.Clusters[id].Members))
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

func TestFractureSplitsAlongPrincipalStrain(t *testing.T) {
	ps := barParticles()
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3, 4, 5, 6, 7}, Toughness: 0.1, FractureEnabled: true}}, ps, 1)
	stretchBar(ps)

	sols := SolveAll(set, ps, 0, 2)
	events := set.Fracture(ps, sols, PlanePrincipalStrain)
	if len(events) != 1 {
		t.Fatalf("expected one fracture, got %d", len(events))
	}
	got := sideSets(t, set, events[0].Children)
	want := [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("child %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestFractureKeepsParentInertAndRecomputesRestCenter(t *testing.T) {
	ps := barParticles()
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3, 4, 5, 6, 7}, Toughness: 0.1, FractureEnabled: true}}, ps, 1)
	stretchBar(ps)

	sols := SolveAll(set, ps, 0, 1)
	events := set.Fracture(ps, sols, PlanePrincipalStrain)
	if len(events) != 1 {
		t.Fatalf("expected one fracture, got %d", len(events))
	}

	parent := set.Clusters[0]
	if !parent.Inert || len(parent.Members) != 0 || set.Active(parent) {
		t.Fatalf("expected split parent to be emptied and inert")
	}
	for _, id := range events[0].Children {
		c := set.Clusters[id]
		if c.Parent != 0 {
			t.Errorf("Expected parent 0, got %d", c.Parent)
		}
		if want := restCenter(c.Members, ps); !near(c.RestCOM, want, tol) {
			t.Errorf("Expected rest center %v, got %v", want, c.RestCOM)
		}
		for _, m := range c.Members {
			if !slices.Equal(ps[m].Clusters, []int{id}) {
				t.Errorf("particle %d: expected membership [%d], got %v", m, id, ps[m].Clusters)
			}
		}
	}
	// The old solution still describes the pre-fracture membership
	if len(sols[0].Members) != 8 {
		t.Fatalf("expected solution snapshot to keep 8 members, got %d", len(sols[0].Members))
	}
}

func TestFractureBelowToughnessKeepsCluster(t *testing.T) {
	ps := barParticles()
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3, 4, 5, 6, 7}, Toughness: 10, FractureEnabled: true}}, ps, 1)
	stretchBar(ps)

	events := set.Fracture(ps, SolveAll(set, ps, 0, 1), PlaneMaxResidual)
	if len(events) != 0 || set.Len() != 1 {
		t.Fatalf("expected no fracture below toughness")
	}
}

func TestFractureDisabledCluster(t *testing.T) {
	ps := barParticles()
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3, 4, 5, 6, 7}, Toughness: 0}}, ps, 1)
	stretchBar(ps)

	if events := set.Fracture(ps, SolveAll(set, ps, 0, 1), PlaneMaxResidual); len(events) != 0 {
		t.Fatalf("expected unbreakable cluster to hold")
	}
}

func TestDuctileClusterHardensBeforeBreaking(t *testing.T) {
	c := &Cluster{Toughness: 1, Material: Material{Kind: Ductile, Yield: 0.25, Hardening: 0.5}}
	if c.exceeds(0.1) {
		t.Fatalf("expected no fracture below yield")
	}
	if c.Toughness != 1 {
		t.Fatalf("expected no hardening below yield, got %f", c.Toughness)
	}
	if c.exceeds(0.75) {
		t.Fatalf("expected ductile cluster to hold under toughness")
	}
	if c.Toughness != 1.25 {
		t.Fatalf("expected toughness 1.25 after hardening, got %f", c.Toughness)
	}
	if !c.exceeds(1.5) {
		t.Fatalf("expected fracture above hardened toughness")
	}

	brittle := &Cluster{Toughness: 1}
	if brittle.exceeds(0.6) || !brittle.exceeds(1.01) {
		t.Fatalf("brittle cluster should only compare against toughness")
	}
}

func TestResidualPlaneIsolatesWorstMember(t *testing.T) {
	ps := particlesAt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: 1, Y: 1})
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3}, Toughness: 0.01, FractureEnabled: true}}, ps, 1)
	ps[3].Position = r3.Vec{X: 1, Y: 1, Z: 5}

	sols := SolveAll(set, ps, 0, 1)
	if sols[0].Members[sols[0].Worst] != 3 {
		t.Fatalf("expected displaced particle to have the largest residual")
	}
	events := set.Fracture(ps, sols, PlaneMaxResidual)
	if len(events) != 1 {
		t.Fatalf("expected one fracture, got %d", len(events))
	}
	got := sideSets(t, set, events[0].Children)
	if !slices.Equal(got[0], []int{0, 1, 2}) || !slices.Equal(got[1], []int{3}) {
		t.Fatalf("unexpected partition %v", got)
	}
}

func TestFractureNewChildrenWaitForNextStep(t *testing.T) {
	ps := barParticles()
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3, 4, 5, 6, 7}, Toughness: 0, FractureEnabled: true}}, ps, 1)
	stretchBar(ps)

	events := set.Fracture(ps, SolveAll(set, ps, 0, 1), PlaneMaxResidual)
	if len(events) != 1 {
		t.Fatalf("expected exactly one fracture in a pass, got %d", len(events))
	}
	if set.Len() != 3 {
		t.Fatalf("expected parent plus two children, got %d clusters", set.Len())
	}
}

func TestSplitSendsOnPlaneMembersToNegativeSide(t *testing.T) {
	ps := particlesAt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: 1, Y: 1})
	set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3}, Toughness: 0.01, FractureEnabled: true}}, ps, 1)

	// Diagonal normal off by an ulp: members 1 and 2 sit on the plane through the rest center
	normal := r3.Vec{X: 0.7071067811865476, Y: 0.7071067811865474}
	children := set.split(set.Clusters[0], ps, normal, 0)
	if children == nil {
		t.Fatalf("expected a split")
	}
	got := sideSets(t, set, children)
	if !slices.Equal(got[0], []int{0, 1, 2}) || !slices.Equal(got[1], []int{3}) {
		t.Fatalf("unexpected partition %v", got)
	}
	if neg := set.Clusters[children[0]].Members; !slices.Equal(neg, []int{0, 1, 2}) {
		t.Fatalf("expected on-plane members on the negative side, got %v", neg)
	}
}

func TestStrainPlaneSeparatesPulledCorner(t *testing.T) {
	for corner := 0; corner < 4; corner++ {
		ps := particlesAt(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{X: 1, Y: 1})
		set := NewClusterSet([]ClusterSpec{{Members: []int{0, 1, 2, 3}, Toughness: 0.01, FractureEnabled: true}}, ps, 1)
		ps[corner].Position.Z += 5

		events := set.Fracture(ps, SolveAll(set, ps, 0, 1), PlanePrincipalStrain)
		if len(events) != 1 {
			t.Fatalf("corner %d: expected one fracture, got %d", corner, len(events))
		}
		pos := set.Clusters[events[0].Children[1]].Members
		if !slices.Equal(pos, []int{corner}) {
			t.Fatalf("corner %d: expected the pulled corner alone on the positive side, got %v", corner, pos)
		}
	}
}
