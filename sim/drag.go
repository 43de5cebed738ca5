package sim

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// DragKind selects how a grabbed particle follows its target
type DragKind int

const (
	// DragPoint binds the particle to Target
	DragPoint DragKind = iota
	// DragPlane keeps the particle on the plane through Target with normal Normal
	DragPlane
)

// DragConstraint binds one particle to a target supplied by the front end.
// The world stores a copy; the caller keeps ownership of its own values.
type DragConstraint struct {
	Particle int
	Kind     DragKind
	Target   r3.Vec
	Normal   r3.Vec // unit normal, DragPlane only
}

// project returns x moved onto the constraint
func (d DragConstraint) project(x r3.Vec) r3.Vec {
	if d.Kind == DragPlane {
		return r3.Sub(x, r3.Scale(r3.Dot(r3.Sub(x, d.Target), d.Normal), d.Normal))
	}
	return d.Target
}

// pull returns the soft spring acceleration toward the constraint
func (d DragConstraint) pull(x r3.Vec, k float64) r3.Vec {
	return r3.Scale(k, r3.Sub(d.project(x), x))
}

// Plane is a static collision half-space {x : Normal·x >= Offset}
type Plane struct {
	Normal r3.Vec
	Offset float64
}

// collide pushes x back onto the plane and removes the inward normal velocity
func (pl Plane) collide(x, v r3.Vec) (r3.Vec, r3.Vec) {
	d := r3.Dot(pl.Normal, x) - pl.Offset
	if d >= 0 {
		return x, v
	}
	x = r3.Sub(x, r3.Scale(d, pl.Normal))
	if vn := r3.Dot(v, pl.Normal); vn < 0 {
		v = r3.Sub(v, r3.Scale(vn, pl.Normal))
	}
	return x, v
}

// SetDragMode switches between hard positional drag (true) and a soft spring (false)
func (w *World) SetDragMode(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dragMode = on
}

// ToggleDragMode flips the drag mode and returns the new value
func (w *World) ToggleDragMode() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dragMode = !w.dragMode
	return w.dragMode
}

// DragMode reports whether drag constraints are hard
func (w *World) DragMode() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dragMode
}

// SetDrag binds a particle to a target, replacing any constraint it already had.
// Out-of-range particles and plane constraints with a zero normal are ignored.
func (w *World) SetDrag(d DragConstraint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d.Particle < 0 || d.Particle >= w.store.Len() {
		return false
	}
	if d.Kind == DragPlane {
		l := r3.Norm(d.Normal)
		if l == 0 {
			return false
		}
		d.Normal = r3.Scale(1/l, d.Normal)
	}
	w.drags[d.Particle] = d
	return true
}

// ClearDrag releases particle i
func (w *World) ClearDrag(i int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.drags, i)
}

// ClearAllDrags releases every particle
func (w *World) ClearAllDrags() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.drags)
}

// Drags copies the active constraints
func (w *World) Drags() []DragConstraint {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]DragConstraint, 0, len(w.drags))
	for _, d := range w.drags {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b DragConstraint) int { return a.Particle - b.Particle })
	return out
}

// NearestParticle returns the index of the particle closest to point, -1 when empty.
// A nonzero axis measures distance perpendicular to it, so a front end with an
// orthographic view passes its view direction to pick the particle under the cursor.
func (w *World) NearestParticle(point, axis r3.Vec) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if axis != (r3.Vec{}) {
		axis = r3.Unit(axis)
	}
	best, bestD := -1, math.Inf(1)
	for i := range w.store.Particles {
		d := r3.Sub(w.store.Particles[i].Position, point)
		d = r3.Sub(d, r3.Scale(r3.Dot(d, axis), axis))
		if n := r3.Norm2(d); n < bestD {
			best, bestD = i, n
		}
	}
	return best
}
