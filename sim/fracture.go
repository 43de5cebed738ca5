package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FractureEvent records one cluster split
type FractureEvent struct {
	Parent   int
	Children []int
	Stress   float64
	Normal   r3.Vec  // plane normal in rest space
	Offset   float64 // plane is {x : Normal·x = Offset}
}

// exceeds is the single dispatch point over material kinds.
// Ductile clusters harden while the stress sits between yield and toughness.
func (c *Cluster) exceeds(stress float64) bool {
	switch c.Material.Kind {
	case Ductile:
		if stress > c.Toughness {
			return true
		}
		if stress > c.Material.Yield && c.Material.Hardening > 0 {
			c.Toughness += c.Material.Hardening * (stress - c.Material.Yield)
		}
		return false
	default:
		return stress > c.Toughness
	}
}

// Fracture splits every cluster whose stress exceeds its toughness.
// It must run after all goals of the step are computed; clusters created here are not
// evaluated until the next step.
func (s *ClusterSet) Fracture(particles []Particle, sols []Solution, policy PlanePolicy) []FractureEvent {
	var events []FractureEvent
	n := len(s.Clusters)
	for i := 0; i < n; i++ {
		c := s.Clusters[i]
		if !c.FractureEnabled || !s.Active(c) || len(c.Members) < 2 {
			continue
		}
		sol := &sols[i]
		if sol.Empty() || !c.exceeds(sol.Stress) {
			continue
		}

		normal, dist, ok := s.fracturePlane(c, sol, particles, policy)
		if !ok {
			continue
		}
		children := s.split(c, particles, normal, dist)
		if children == nil {
			continue
		}
		events = append(events, FractureEvent{
			Parent:   c.ID,
			Children: children,
			Stress:   sol.Stress,
			Normal:   normal,
			Offset:   r3.Dot(normal, c.RestCOM) + dist,
		})
	}
	return events
}

// planeEps is the relative distance under which a member counts as lying on the plane
const planeEps = 1e-9

// positive reports whether rest offset q lies strictly on the positive side of the plane
// {q : normal·q = dist} in the cluster's centered rest frame
func positive(normal, q r3.Vec, dist float64) bool {
	return r3.Dot(normal, q)-dist > planeEps*math.Max(r3.Norm(q), math.Abs(dist))
}

// fracturePlane picks the cutting plane in the rest frame centered on RestCOM: the plane is
// {q : normal·q = dist}
func (s *ClusterSet) fracturePlane(c *Cluster, sol *Solution, particles []Particle, policy PlanePolicy) (r3.Vec, float64, bool) {
	if policy == PlanePrincipalStrain {
		if normal, dist, ok := strainPlane(c, sol, particles); ok {
			return normal, dist, true
		}
	}
	return residualPlane(c, sol)
}

// residualPlane separates the worst member: the normal points from the rest center to it
// and the plane sits halfway along that direction.
func residualPlane(c *Cluster, sol *Solution) (r3.Vec, float64, bool) {
	if sol.Worst < 0 {
		return r3.Vec{}, 0, false
	}
	d := c.rest.offsets[sol.Worst]
	l := r3.Norm(d)
	if l <= degenerateAbs {
		// Worst member sits on the rest center; use the farthest member with nonzero residual
		best := -1
		for k, q := range c.rest.offsets {
			if sol.Residuals[k] > 0 && (best < 0 || r3.Norm(q) > r3.Norm(c.rest.offsets[best])) {
				best = k
			}
		}
		if best < 0 {
			return r3.Vec{}, 0, false
		}
		d = c.rest.offsets[best]
		l = r3.Norm(d)
		if l <= degenerateAbs {
			return r3.Vec{}, 0, false
		}
	}
	return r3.Scale(1/l, d), l / 2, true
}

// strainPlane cuts through the rest center normal to the dominant axis of the rest-frame
// strain proxy Σ w sym(Rᵗr ⊗ q). The normal is oriented toward the worst member, and the
// plane is rejected when that member does not land strictly on the positive side.
func strainPlane(c *Cluster, sol *Solution, particles []Particle) (r3.Vec, float64, bool) {
	strain := r3.NewMat(nil)
	for k := range sol.Members {
		r := sol.Rotation.MulVecTrans(sol.residualVec(c, particles, k))
		addOuter(strain, c.rest.weights[k], r, c.rest.offsets[k])
	}
	normal, _, ok := principalAxis(strain)
	if !ok {
		return r3.Vec{}, 0, false
	}
	if sol.Worst < 0 {
		return r3.Vec{}, 0, false
	}
	if r3.Dot(normal, c.rest.offsets[sol.Worst]) < 0 {
		normal = r3.Scale(-1, normal)
	}
	if !positive(normal, c.rest.offsets[sol.Worst], 0) {
		return r3.Vec{}, 0, false
	}

	neg, pos := 0, 0
	for _, q := range c.rest.offsets {
		if positive(normal, q, 0) {
			pos++
		} else {
			neg++
		}
	}
	if neg == 0 || pos == 0 {
		return r3.Vec{}, 0, false
	}
	return normal, 0, true
}

// split moves the members of c into one new cluster per side of the plane.
// Members on the plane go to the negative side. c is emptied and marked inert.
func (s *ClusterSet) split(c *Cluster, particles []Particle, normal r3.Vec, dist float64) []int {
	var neg, pos []int
	for k, m := range c.Members {
		if positive(normal, c.rest.offsets[k], dist) {
			pos = append(pos, m)
		} else {
			neg = append(neg, m)
		}
	}
	if len(neg) == 0 || len(pos) == 0 {
		return nil
	}

	for _, m := range c.Members {
		particles[m].removeCluster(c.ID)
	}
	c.Members = nil
	c.Inert = true

	children := make([]int, 0, 2)
	for _, side := range [][]int{neg, pos} {
		child := s.add(side, particles)
		child.Toughness = c.Toughness
		child.Material = c.Material
		child.FractureEnabled = c.FractureEnabled
		child.Parent = c.ID
		children = append(children, child.ID)
	}
	return children
}
