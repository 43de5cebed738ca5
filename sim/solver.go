package sim

import (
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Solution is the shape-matching result of one cluster for one step.
// Members is the membership the goals were computed for; later topology changes do not alter it.
type Solution struct {
	Cluster    int
	Members    []int
	Goals      []r3.Vec
	Residuals  []float64
	Stress     float64 // max residual
	Worst      int     // position in Members of the max residual, -1 when empty
	Center     r3.Vec  // current mass-weighted center
	Rotation   *r3.Mat
	Degenerate bool // rotation fell back to identity
}

// Empty reports whether the solution carries no goals
func (s *Solution) Empty() bool {
	return len(s.Members) == 0
}

// Solve fits the best rotation from the cluster's rest shape to the current positions
// and returns per-member goals. linearity in [0,1] blends in the least-squares linear fit.
func Solve(c *Cluster, particles []Particle, linearity float64) Solution {
	sol := Solution{
		Cluster:  c.ID,
		Members:  c.Members,
		Worst:    -1,
		Rotation: r3.Eye(),
	}
	n := len(c.Members)
	if n == 0 || c.rest.totalWeight <= 0 {
		return sol
	}

	// Current center of mass
	var center r3.Vec
	for k, m := range c.Members {
		center = r3.Add(center, r3.Scale(c.rest.weights[k], particles[m].Position))
	}
	center = r3.Scale(1/c.rest.totalWeight, center)

	// A = Σ w (x - c)(x̄ - x̄c)ᵗ
	a := r3.NewMat(nil)
	for k, m := range c.Members {
		addOuter(a, c.rest.weights[k], r3.Sub(particles[m].Position, center), c.rest.offsets[k])
	}

	rot, ok := polarRotation(a)
	transform := rot
	if linearity > 0 {
		// (1-β)R + β·A·Aqq⁻¹
		var lin r3.Mat
		lin.Mul(a, c.rest.aqqInv)
		lin.Scale(linearity, &lin)
		transform = r3.NewMat(nil)
		transform.Scale(1-linearity, rot)
		transform.Add(transform, &lin)
	}

	sol.Center = center
	sol.Rotation = rot
	sol.Degenerate = !ok
	sol.Goals = make([]r3.Vec, n)
	sol.Residuals = make([]float64, n)
	for k, m := range c.Members {
		q := c.rest.offsets[k]
		sol.Goals[k] = r3.Add(center, transform.MulVec(q))

		res := r3.Norm(r3.Sub(r3.Sub(particles[m].Position, center), rot.MulVec(q)))
		sol.Residuals[k] = res
		if sol.Worst < 0 || res > sol.Stress {
			sol.Stress = res
			sol.Worst = k
		}
	}
	return sol
}

// residualVec returns (x_i - c) - R q_i for member position k
func (s *Solution) residualVec(c *Cluster, particles []Particle, k int) r3.Vec {
	m := s.Members[k]
	return r3.Sub(r3.Sub(particles[m].Position, s.Center), s.Rotation.MulVec(c.rest.offsets[k]))
}

// SolveAll solves every active cluster. The result is indexed by cluster ID; inactive
// clusters get an empty solution. Clusters only read particles, so they run in parallel.
func SolveAll(set *ClusterSet, particles []Particle, linearity float64, workers int) []Solution {
	sols := make([]Solution, len(set.Clusters))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, c := range set.Clusters {
		if !set.Active(c) {
			sols[i] = Solution{Cluster: c.ID, Worst: -1, Rotation: r3.Eye()}
			continue
		}
		g.Go(func() error {
			sols[i] = Solve(c, particles, linearity)
			return nil
		})
	}
	_ = g.Wait()
	return sols
}
