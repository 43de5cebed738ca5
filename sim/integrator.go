package sim

import (
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Forces bundles the per-step inputs of the integrator besides goals
type Forces struct {
	Drags    map[int]DragConstraint
	DragMode bool // hard positional drag when true, soft spring otherwise
	Planes   []Plane
}

// BlendGoals averages, per particle, the goals of every solution containing it.
// count[i] is zero for particles no solution covered.
func BlendGoals(n int, sols []Solution) (goals []r3.Vec, count []int) {
	goals = make([]r3.Vec, n)
	count = make([]int, n)
	for i := range sols {
		s := &sols[i]
		for k, m := range s.Members {
			goals[m] = r3.Add(goals[m], s.Goals[k])
			count[m]++
		}
	}
	for i := range goals {
		if count[i] > 0 {
			goals[i] = r3.Scale(1/float64(count[i]), goals[i])
		}
	}
	return goals, count
}

// Integrate advances every particle by one semi-implicit Euler step.
// Particles are split into contiguous index ranges so workers never write the same particle.
func Integrate(particles []Particle, sols []Solution, p Params, f Forces) {
	goals, count := BlendGoals(len(particles), sols)

	workers := max(p.workers(), 1)
	chunk := (len(particles) + workers - 1) / workers
	if chunk == 0 {
		return
	}

	var g errgroup.Group
	for start := 0; start < len(particles); start += chunk {
		end := min(start+chunk, len(particles))
		g.Go(func() error {
			for i := start; i < end; i++ {
				integrateParticle(&particles[i], i, goals[i], count[i] > 0, p, f)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func integrateParticle(pt *Particle, i int, goal r3.Vec, hasGoal bool, p Params, f Forces) {
	x0 := pt.Position

	accel := p.Gravity
	if hasGoal {
		accel = r3.Add(accel, r3.Scale(p.Stiffness, r3.Sub(goal, x0)))
	}

	drag, dragged := f.Drags[i]
	if dragged && !f.DragMode {
		accel = r3.Add(accel, drag.pull(x0, p.DragStiffness))
	}

	// Velocity first, then position from the new velocity
	v := r3.Scale(1-p.Damping, r3.Add(pt.Velocity, r3.Scale(p.Dt, accel)))
	x := r3.Add(x0, r3.Scale(p.Dt, v))

	if dragged && f.DragMode {
		x = drag.project(x)
		if p.Dt > 0 {
			v = r3.Scale(1/p.Dt, r3.Sub(x, x0))
		}
	}

	for _, pl := range f.Planes {
		x, v = pl.collide(x, v)
	}

	pt.Position = x
	pt.Velocity = v
}
