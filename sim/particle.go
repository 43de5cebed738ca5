package sim

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is a single mass point. Front ends refer to particles by index only.
type Particle struct {
	Position     r3.Vec
	RestPosition r3.Vec // reference configuration, fixed after load
	Velocity     r3.Vec
	Mass         float64
	Color        Color
	Clusters     []int // sorted IDs of the clusters this particle belongs to
}

// Free reports whether the particle belongs to no cluster
func (p *Particle) Free() bool {
	return len(p.Clusters) == 0
}

// ParticleStore is the flat particle collection with the initial state kept for restart
type ParticleStore struct {
	Particles   []Particle
	initialVels []r3.Vec
}

// NewParticleStore takes ownership of ps. Rest positions are taken from the current positions.
func NewParticleStore(ps []Particle) *ParticleStore {
	s := &ParticleStore{
		Particles:   ps,
		initialVels: make([]r3.Vec, len(ps)),
	}
	for i := range ps {
		ps[i].RestPosition = ps[i].Position
		s.initialVels[i] = ps[i].Velocity
	}
	return s
}

// Len returns the number of particles
func (s *ParticleStore) Len() int {
	return len(s.Particles)
}

// Reset puts every particle back at its rest position with its load-time velocity.
// Cluster membership is restored separately by the cluster set.
func (s *ParticleStore) Reset() {
	for i := range s.Particles {
		p := &s.Particles[i]
		p.Position = p.RestPosition
		p.Velocity = s.initialVels[i]
		p.Clusters = p.Clusters[:0]
	}
}

// addCluster inserts id keeping the list sorted
func (p *Particle) addCluster(id int) {
	i, found := slices.BinarySearch(p.Clusters, id)
	if found {
		return
	}
	p.Clusters = slices.Insert(p.Clusters, i, id)
}

// removeCluster deletes id if present
func (p *Particle) removeCluster(id int) {
	i, found := slices.BinarySearch(p.Clusters, id)
	if !found {
		return
	}
	p.Clusters = slices.Delete(p.Clusters, i, i+1)
}
