// Package sim is a clustered shape-matching engine with brittle and ductile fracture.
package sim

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"slices"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// State is the lifecycle stage of a World
type State int

const (
	Uninitialized State = iota
	Loaded
	Ready
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// World owns the particles, clusters and neighbor graph of one simulation.
// Timestep holds the write lock for the whole step, so readers never observe a
// partially fractured cluster set.
type World struct {
	mu sync.RWMutex

	params   Params
	store    *ParticleStore
	clusters *ClusterSet
	graph    *NeighborGraph
	colored  []bool

	neighborRadius float64
	seedRadius     float64 // clusters are seeded from the graph when > 0
	defaults       clusterDefaults
	field          ToughnessField
	planes         []Plane

	drags    map[int]DragConstraint
	dragMode bool

	state      State
	steps      int
	lastEvents []FractureEvent

	logger *log.Logger
}

// LoadFromJSON reads a scene file and builds a Loaded world.
// No world is returned on error.
func LoadFromJSON(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w, err := LoadScene(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// LoadScene parses a scene from r and builds a Loaded world
func LoadScene(r io.Reader) (*World, error) {
	sc, err := ParseScene(r)
	if err != nil {
		return nil, err
	}
	return NewWorld(sc)
}

// NewWorld validates sc and builds a Loaded world from it
func NewWorld(sc *Scene) (*World, error) {
	params, err := sc.params()
	if err != nil {
		return nil, err
	}
	particles, colored, err := sc.particles()
	if err != nil {
		return nil, err
	}
	planes, err := sc.planes()
	if err != nil {
		return nil, err
	}
	defaults, err := sc.defaults()
	if err != nil {
		return nil, err
	}
	specs, err := sc.clusterSpecs(len(particles), defaults)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 && sc.ClusterRadius <= 0 {
		return nil, fmt.Errorf("%w: scene needs clusters or a positive clusterRadius", ErrSchema)
	}
	if sc.NeighborRadius < 0 {
		return nil, fmt.Errorf("%w: neighborRadius must be non-negative", ErrSchema)
	}

	w := &World{
		params:         params,
		store:          NewParticleStore(particles),
		colored:        colored,
		neighborRadius: sc.NeighborRadius,
		defaults:       defaults,
		planes:         planes,
		drags:          make(map[int]DragConstraint),
		state:          Loaded,
		logger:         log.New(io.Discard, "", 0),
	}
	if w.neighborRadius == 0 {
		w.neighborRadius = sc.ClusterRadius
	}
	if n := sc.ToughnessNoise; n != nil {
		w.field = NewPerlinToughness(n.Amplitude, n.Scale, n.Seed)
	}

	if len(specs) > 0 {
		w.setClusters(specs)
	} else {
		w.seedRadius = sc.ClusterRadius
	}
	return w, nil
}

// SetLogger directs engine logs to l; nil discards them
func (w *World) SetLogger(l *log.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	w.logger = l
}

// SetWorkers bounds the goroutines used per phase; n <= 0 uses GOMAXPROCS
func (w *World) SetWorkers(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.params.Workers = n
}

// Params returns a copy of the simulation parameters
func (w *World) Params() Params {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.params
}

// State returns the lifecycle stage
func (w *World) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// setClusters builds the cluster set and records it as the restart partition
func (w *World) setClusters(specs []ClusterSpec) {
	ps := w.store.Particles
	if w.field != nil {
		for i := range specs {
			if specs[i].vary {
				specs[i].Toughness = w.field.At(restCenter(specs[i].Members, ps), specs[i].Toughness)
			}
		}
	}
	w.clusters = NewClusterSet(specs, ps, w.params.MinClusterSize)

	for i := range ps {
		if !w.colored[i] && len(ps[i].Clusters) > 0 {
			ps[i].Color = clusterColor(ps[i].Clusters[0])
		}
	}
}

func restCenter(members []int, ps []Particle) r3.Vec {
	var c r3.Vec
	total := 0.0
	for _, m := range members {
		c = r3.Add(c, r3.Scale(ps[m].Mass, ps[m].RestPosition))
		total += ps[m].Mass
	}
	if total == 0 {
		return c
	}
	return r3.Scale(1/total, c)
}

// InitializeNeighbors builds the neighbor graph and, for scenes that give a cluster
// radius, seeds the clusters from it. Calling it again has no effect.
func (w *World) InitializeNeighbors() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.initializeNeighbors()
}

func (w *World) initializeNeighbors() {
	if w.state == Ready {
		return
	}
	ps := w.store.Particles
	if w.graph == nil {
		w.graph = BuildNeighborGraph(ps, w.neighborRadius)
		w.logger.Printf("neighbor graph: %d particles, %d edges, radius %g", len(ps), w.graph.Edges(), w.neighborRadius)
	}

	if w.clusters == nil {
		seedGraph := w.graph
		if w.seedRadius != w.neighborRadius {
			seedGraph = BuildNeighborGraph(ps, w.seedRadius)
		}
		groups := SeedClusters(seedGraph, len(ps))
		specs := make([]ClusterSpec, len(groups))
		for i, g := range groups {
			specs[i] = ClusterSpec{
				Members:         g,
				Toughness:       w.defaults.toughness,
				Material:        w.defaults.material,
				FractureEnabled: w.defaults.fracture,
				vary:            true,
			}
		}
		w.setClusters(specs)
		w.logger.Printf("seeded %d clusters, radius %g", len(specs), w.seedRadius)
	}
	w.state = Ready
}

// Restart puts particles back at rest, restores the unfractured partition and releases
// every drag. The neighbor graph is kept, so a world that was Ready stays steppable.
func (w *World) Restart() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.store.Reset()
	if w.clusters != nil {
		w.clusters.Reset(w.store.Particles)
	}
	w.steps = 0
	w.lastEvents = nil
	clear(w.drags)
	if w.graph != nil && w.clusters != nil {
		w.state = Ready
	} else {
		w.state = Loaded
	}
	w.logger.Printf("restart: %d particles, %d clusters", w.store.Len(), w.clusterCount())
}

func (w *World) clusterCount() int {
	if w.clusters == nil {
		return 0
	}
	return w.clusters.Len()
}

// Timestep advances the world by exactly one step: solve every cluster, then fracture,
// then integrate with the goals computed before fracture.
func (w *World) Timestep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Ready {
		w.initializeNeighbors()
	}
	ps := w.store.Particles

	sols := SolveAll(w.clusters, ps, w.params.Linearity, w.params.workers())

	events := w.clusters.Fracture(ps, sols, w.params.FracturePlane)
	for _, e := range events {
		w.logger.Printf("step %d: cluster %d fractured into %v (stress %.4g)", w.steps, e.Parent, e.Children, e.Stress)
	}

	Integrate(ps, sols, w.params, Forces{
		Drags:    w.drags,
		DragMode: w.dragMode,
		Planes:   w.planes,
	})

	w.steps++
	w.lastEvents = events
}

// StepCount returns the number of steps since load or the last restart
func (w *World) StepCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.steps
}

// LastFractures returns the splits performed by the most recent step
func (w *World) LastFractures() []FractureEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.lastEvents)
}

// NumParticles returns the particle count
func (w *World) NumParticles() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Len()
}

// Particle returns a copy of particle i
func (w *World) Particle(i int) Particle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p := w.store.Particles[i]
	p.Clusters = slices.Clone(p.Clusters)
	return p
}

// Positions copies the current particle positions
func (w *World) Positions() []r3.Vec {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]r3.Vec, w.store.Len())
	for i := range w.store.Particles {
		out[i] = w.store.Particles[i].Position
	}
	return out
}

// Colors copies the particle display colors
func (w *World) Colors() []Color {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Color, w.store.Len())
	for i := range w.store.Particles {
		out[i] = w.store.Particles[i].Color
	}
	return out
}

// Clusters copies the cluster list, inert clusters included
func (w *World) Clusters() []ClusterInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.clusters == nil {
		return nil
	}
	return w.clusters.Info()
}

// NumClusters returns the number of clusters, inert ones included
func (w *World) NumClusters() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clusterCount()
}

// ClusterOf returns the IDs of the active clusters containing particle p
func (w *World) ClusterOf(p int) []int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.clusters == nil || p < 0 || p >= w.store.Len() {
		return nil
	}
	var out []int
	for _, id := range w.store.Particles[p].Clusters {
		if w.clusters.Active(w.clusters.Clusters[id]) {
			out = append(out, id)
		}
	}
	return out
}

// Graph returns the neighbor graph, nil before InitializeNeighbors
func (w *World) Graph() *NeighborGraph {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.graph
}

// Planes returns the collision planes
func (w *World) Planes() []Plane {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.planes)
}

// ToughnessRange returns the smallest and largest finite toughness over active clusters
func (w *World) ToughnessRange() (lo, hi float64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.toughnessRange()
}

func (w *World) toughnessRange() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	if w.clusters == nil {
		return 0, 0
	}
	for _, c := range w.clusters.Clusters {
		if !w.clusters.Active(c) || math.IsInf(c.Toughness, 0) {
			continue
		}
		lo = math.Min(lo, c.Toughness)
		hi = math.Max(hi, c.Toughness)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// ToughnessColor colors particle i by the mean toughness of its active clusters
func (w *World) ToughnessColor(i int) Color {
	w.mu.RLock()
	defer w.mu.RUnlock()
	lo, hi := w.toughnessRange()
	return w.toughnessColor(i, lo, hi)
}

// ToughnessColors colors every particle by toughness
func (w *World) ToughnessColors() []Color {
	w.mu.RLock()
	defer w.mu.RUnlock()
	lo, hi := w.toughnessRange()
	out := make([]Color, w.store.Len())
	for i := range out {
		out[i] = w.toughnessColor(i, lo, hi)
	}
	return out
}

func (w *World) toughnessColor(i int, lo, hi float64) Color {
	if w.clusters == nil {
		return freeColor
	}
	sum, n := 0.0, 0
	for _, id := range w.store.Particles[i].Clusters {
		c := w.clusters.Clusters[id]
		if w.clusters.Active(c) {
			sum += c.Toughness
			n++
		}
	}
	switch {
	case n == 0:
		return freeColor
	case math.IsInf(sum, 1):
		return rampColor(1)
	case hi <= lo:
		return rampColor(0.5)
	}
	return rampColor((sum/float64(n) - lo) / (hi - lo))
}
