package sim

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaterialKind tags the fracture behavior of a cluster
type MaterialKind int

const (
	Brittle MaterialKind = iota
	Ductile
)

func (k MaterialKind) String() string {
	if k == Ductile {
		return "ductile"
	}
	return "brittle"
}

// Material is a tagged variant: Yield and Hardening only apply to Ductile
type Material struct {
	Kind      MaterialKind
	Yield     float64 // stress above which a ductile cluster starts hardening
	Hardening float64 // toughness gained per unit of stress over yield
}

// restStats caches quantities derived from rest positions at cluster creation
type restStats struct {
	offsets     []r3.Vec  // x̄_i - x̄c, aligned with Members
	weights     []float64 // member masses
	totalWeight float64
	aqqInv      *r3.Mat // pseudo-inverse of Σ w q qᵗ
}

// Cluster is a group of particles sharing one shape-matching goal
type Cluster struct {
	ID              int
	Members         []int  // ascending particle indices
	RestCOM         r3.Vec // frozen at creation
	Toughness       float64
	Material        Material
	FractureEnabled bool
	Parent          int  // ID of the split cluster, -1 for load-time clusters
	Inert           bool // split parents and undersized clusters

	rest restStats
}

// ClusterSpec describes a cluster before it is bound to particles
type ClusterSpec struct {
	Members         []int
	Toughness       float64
	Material        Material
	FractureEnabled bool

	vary bool // toughness came from the scene default and follows the toughness field
}

// ClusterInfo is a read-only copy handed to front ends
type ClusterInfo struct {
	ID        int
	Members   []int
	Active    bool
	Toughness float64
	Parent    int
}

// newCluster computes the frozen rest statistics of members
func newCluster(id int, members []int, particles []Particle) *Cluster {
	c := &Cluster{
		ID:      id,
		Members: members,
		Parent:  -1,
	}

	var com r3.Vec
	total := 0.0
	weights := make([]float64, len(members))
	for k, m := range members {
		w := particles[m].Mass
		weights[k] = w
		total += w
		com = r3.Add(com, r3.Scale(w, particles[m].RestPosition))
	}
	if total > 0 {
		com = r3.Scale(1/total, com)
	}

	offsets := make([]r3.Vec, len(members))
	aqq := r3.NewMat(nil)
	for k, m := range members {
		q := r3.Sub(particles[m].RestPosition, com)
		offsets[k] = q
		addOuter(aqq, weights[k], q, q)
	}

	c.RestCOM = com
	c.rest = restStats{
		offsets:     offsets,
		weights:     weights,
		totalWeight: total,
		aqqInv:      pseudoInverseSym(aqq),
	}
	return c
}

// ClusterSet owns all clusters. A cluster's ID is its index in Clusters.
type ClusterSet struct {
	Clusters []*Cluster
	MinSize  int

	initial []ClusterSpec
}

// NewClusterSet builds clusters from specs and records them as the restart partition
func NewClusterSet(specs []ClusterSpec, particles []Particle, minSize int) *ClusterSet {
	s := &ClusterSet{
		MinSize: minSize,
		initial: make([]ClusterSpec, len(specs)),
	}
	for i, sp := range specs {
		sp.Members = slices.Clone(sp.Members)
		slices.Sort(sp.Members)
		sp.Members = slices.Compact(sp.Members)
		s.initial[i] = sp
	}
	s.build(particles)
	return s
}

func (s *ClusterSet) build(particles []Particle) {
	s.Clusters = s.Clusters[:0]
	for _, sp := range s.initial {
		c := s.add(slices.Clone(sp.Members), particles)
		c.Toughness = sp.Toughness
		c.Material = sp.Material
		c.FractureEnabled = sp.FractureEnabled
	}
}

// add appends a cluster over members and registers it with each member particle
func (s *ClusterSet) add(members []int, particles []Particle) *Cluster {
	c := newCluster(len(s.Clusters), members, particles)
	if len(members) < s.MinSize {
		c.Inert = true
	}
	s.Clusters = append(s.Clusters, c)
	for _, m := range members {
		particles[m].addCluster(c.ID)
	}
	return c
}

// Reset restores the load-time partition. Particle membership lists must already be cleared.
func (s *ClusterSet) Reset(particles []Particle) {
	s.build(particles)
}

// Len returns the number of clusters, inert ones included
func (s *ClusterSet) Len() int {
	return len(s.Clusters)
}

// Active reports whether c contributes goals
func (s *ClusterSet) Active(c *Cluster) bool {
	return !c.Inert && len(c.Members) >= s.MinSize && len(c.Members) > 0
}

// ActiveCount returns the number of active clusters
func (s *ClusterSet) ActiveCount() int {
	n := 0
	for _, c := range s.Clusters {
		if s.Active(c) {
			n++
		}
	}
	return n
}

// Info copies the cluster list for readers
func (s *ClusterSet) Info() []ClusterInfo {
	out := make([]ClusterInfo, len(s.Clusters))
	for i, c := range s.Clusters {
		out[i] = ClusterInfo{
			ID:        c.ID,
			Members:   slices.Clone(c.Members),
			Active:    s.Active(c),
			Toughness: c.Toughness,
			Parent:    c.Parent,
		}
	}
	return out
}

// SeedClusters covers the particles with neighborhoods of the graph.
// Particles are visited in index order; an uncovered particle becomes a seed and its
// cluster is the seed plus its graph neighbors.
func SeedClusters(g *NeighborGraph, n int) [][]int {
	covered := make([]bool, n)
	var out [][]int
	for i := 0; i < n; i++ {
		if covered[i] {
			continue
		}
		members := append([]int{i}, g.Neighbors(i)...)
		slices.Sort(members)
		for _, m := range members {
			covered[m] = true
		}
		out = append(out, members)
	}
	return out
}
