package sim

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// binKey addresses one cell of the uniform grid used for pair search
type binKey struct {
	X, Y, Z int
}

// Bin holds particle indices, in ascending order
type Bin []int

// NeighborGraph is the symmetric adjacency over particle rest positions.
// It is read-only after BuildNeighborGraph returns.
type NeighborGraph struct {
	Radius float64
	Adj    [][]int // sorted ascending, no self edges
}

// BuildNeighborGraph links every pair of particles whose rest distance is at most radius.
// The result does not depend on map iteration order.
func BuildNeighborGraph(particles []Particle, radius float64) *NeighborGraph {
	g := &NeighborGraph{
		Radius: radius,
		Adj:    make([][]int, len(particles)),
	}
	if len(particles) == 0 || radius <= 0 {
		return g
	}

	bins := buildBins(particles, radius)
	r2 := radius * radius

	for i := range particles {
		pi := particles[i].RestPosition
		k := binOf(pi, radius)
		// Check this bin and 26 neighbors
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					bin, ok := bins[binKey{k.X + dx, k.Y + dy, k.Z + dz}]
					if !ok {
						continue
					}
					for _, j := range bin {
						if j <= i {
							continue
						}
						if r3.Norm2(r3.Sub(particles[j].RestPosition, pi)) <= r2 {
							g.Adj[i] = append(g.Adj[i], j)
							g.Adj[j] = append(g.Adj[j], i)
						}
					}
				}
			}
		}
	}

	for i := range g.Adj {
		slices.Sort(g.Adj[i])
	}
	return g
}

// buildBins assigns particles to grid cells of edge length cell
func buildBins(particles []Particle, cell float64) map[binKey]Bin {
	bins := make(map[binKey]Bin)
	for i := range particles {
		k := binOf(particles[i].RestPosition, cell)
		bins[k] = append(bins[k], i)
	}
	return bins
}

func binOf(p r3.Vec, cell float64) binKey {
	return binKey{
		X: int(math.Floor(p.X / cell)),
		Y: int(math.Floor(p.Y / cell)),
		Z: int(math.Floor(p.Z / cell)),
	}
}

// Neighbors returns the sorted neighbor list of particle i
func (g *NeighborGraph) Neighbors(i int) []int {
	if g == nil || i < 0 || i >= len(g.Adj) {
		return nil
	}
	return g.Adj[i]
}

// Degree returns the number of neighbors of particle i
func (g *NeighborGraph) Degree(i int) int {
	return len(g.Neighbors(i))
}

// Contains reports whether i and j are adjacent
func (g *NeighborGraph) Contains(i, j int) bool {
	_, found := slices.BinarySearch(g.Neighbors(i), j)
	return found
}

// Edges returns the number of undirected edges
func (g *NeighborGraph) Edges() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, adj := range g.Adj {
		n += len(adj)
	}
	return n / 2
}
