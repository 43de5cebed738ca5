package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Scene is the JSON scene description. Only particles and either clusters or a
// cluster radius are required; every other field falls back to DefaultParams.
type Scene struct {
	Particles []ParticleJSON `json:"particles"`
	Lattices  []LatticeJSON  `json:"lattices"`

	Clusters       []ClusterJSON `json:"clusters"`
	ClusterRadius  float64       `json:"clusterRadius"`
	NeighborRadius float64       `json:"neighborRadius"`

	Toughness      *float64      `json:"toughness"`
	Unbreakable    bool          `json:"unbreakable"`
	Material       *MaterialJSON `json:"material"`
	ToughnessNoise *NoiseJSON    `json:"toughnessNoise"`
	FracturePlane  string        `json:"fracturePlane"`

	Dt             *float64    `json:"dt"`
	Damping        *float64    `json:"damping"`
	Gravity        *[3]float64 `json:"gravity"`
	Stiffness      *float64    `json:"stiffness"`
	Linearity      *float64    `json:"linearity"`
	MinClusterSize *int        `json:"minClusterSize"`
	SphereRadius   *float64    `json:"sphereRadius"`
	DragStiffness  *float64    `json:"dragStiffness"`

	Planes []PlaneJSON `json:"planes"`
}

// ParticleJSON is one explicit particle. Two-component positions leave Z at zero.
type ParticleJSON struct {
	Position [3]float64  `json:"position"`
	Velocity [3]float64  `json:"velocity"`
	Mass     *float64    `json:"mass"`
	Color    *[3]float64 `json:"color"`
}

// LatticeJSON fills the box [Min, Max] with particles every Spacing
type LatticeJSON struct {
	Min      [3]float64 `json:"min"`
	Max      [3]float64 `json:"max"`
	Spacing  float64    `json:"spacing"`
	Mass     float64    `json:"mass"`
	Velocity [3]float64 `json:"velocity"`
}

// ClusterJSON is an explicit cluster. Members index the particle list, lattices follow
// explicit particles in declaration order.
type ClusterJSON struct {
	Members     []int         `json:"members"`
	Toughness   *float64      `json:"toughness"`
	Unbreakable bool          `json:"unbreakable"`
	Material    *MaterialJSON `json:"material"`
}

// MaterialJSON selects "brittle" (default) or "ductile"
type MaterialJSON struct {
	Kind      string  `json:"kind"`
	Yield     float64 `json:"yield"`
	Hardening float64 `json:"hardening"`
}

// NoiseJSON configures Perlin toughness variation
type NoiseJSON struct {
	Amplitude float64 `json:"amplitude"`
	Scale     float64 `json:"scale"`
	Seed      int64   `json:"seed"`
}

// PlaneJSON is a collision half-space normal·x >= offset
type PlaneJSON struct {
	Normal [3]float64 `json:"normal"`
	Offset float64    `json:"offset"`
}

// ParseScene decodes a scene. Syntax errors and trailing data wrap ErrParse, type mismatches
// wrap ErrSchema.
func ParseScene(r io.Reader) (*Scene, error) {
	var sc Scene
	dec := json.NewDecoder(r)
	if err := dec.Decode(&sc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %q: %v", ErrSchema, typeErr.Field, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after scene object", ErrParse)
	}
	return &sc, nil
}

func toVec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func (m *MaterialJSON) material() (Material, error) {
	if m == nil {
		return Material{Kind: Brittle}, nil
	}
	switch m.Kind {
	case "", "brittle":
		return Material{Kind: Brittle}, nil
	case "ductile":
		if m.Yield < 0 || m.Hardening < 0 {
			return Material{}, fmt.Errorf("%w: ductile yield and hardening must be non-negative", ErrSchema)
		}
		return Material{Kind: Ductile, Yield: m.Yield, Hardening: m.Hardening}, nil
	}
	return Material{}, fmt.Errorf("%w: unknown material kind %q", ErrSchema, m.Kind)
}

// params merges the scene overrides into DefaultParams
func (sc *Scene) params() (Params, error) {
	p := DefaultParams()
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Dt, sc.Dt)
	set(&p.Damping, sc.Damping)
	set(&p.Stiffness, sc.Stiffness)
	set(&p.Linearity, sc.Linearity)
	set(&p.SphereRadius, sc.SphereRadius)
	set(&p.DragStiffness, sc.DragStiffness)
	if sc.Gravity != nil {
		p.Gravity = toVec(*sc.Gravity)
	}
	if sc.MinClusterSize != nil {
		p.MinClusterSize = *sc.MinClusterSize
	}

	policy, ok := ParsePlanePolicy(sc.FracturePlane)
	if !ok {
		return p, fmt.Errorf("%w: unknown fracturePlane %q", ErrSchema, sc.FracturePlane)
	}
	p.FracturePlane = policy

	switch {
	case p.Dt <= 0:
		return p, fmt.Errorf("%w: dt must be positive", ErrSchema)
	case p.Damping < 0 || p.Damping >= 1:
		return p, fmt.Errorf("%w: damping must be in [0,1)", ErrSchema)
	case p.Linearity < 0 || p.Linearity > 1:
		return p, fmt.Errorf("%w: linearity must be in [0,1]", ErrSchema)
	case p.Stiffness < 0:
		return p, fmt.Errorf("%w: stiffness must be non-negative", ErrSchema)
	}
	return p, nil
}

// particles expands explicit particles and lattices. colored marks particles whose
// color the scene fixed.
func (sc *Scene) particles() (out []Particle, colored []bool, err error) {
	for i, pj := range sc.Particles {
		mass := 1.0
		if pj.Mass != nil {
			mass = *pj.Mass
		}
		if mass <= 0 || math.IsNaN(mass) {
			return nil, nil, fmt.Errorf("%w: particle %d has non-positive mass", ErrSchema, i)
		}
		col := whiteColor
		if pj.Color != nil {
			col = Color{pj.Color[0], pj.Color[1], pj.Color[2]}
		}
		out = append(out, Particle{
			Position: toVec(pj.Position),
			Velocity: toVec(pj.Velocity),
			Mass:     mass,
			Color:    col,
		})
		colored = append(colored, pj.Color != nil)
	}

	for li, l := range sc.Lattices {
		if l.Spacing <= 0 {
			return nil, nil, fmt.Errorf("%w: lattice %d spacing must be positive", ErrSchema, li)
		}
		mass := l.Mass
		if mass == 0 {
			mass = 1
		}
		if mass < 0 {
			return nil, nil, fmt.Errorf("%w: lattice %d has negative mass", ErrSchema, li)
		}
		// Slack keeps Max inclusive under accumulated rounding
		eps := l.Spacing * 1e-6
		for x := l.Min[0]; x <= l.Max[0]+eps; x += l.Spacing {
			for y := l.Min[1]; y <= l.Max[1]+eps; y += l.Spacing {
				for z := l.Min[2]; z <= l.Max[2]+eps; z += l.Spacing {
					out = append(out, Particle{
						Position: r3.Vec{X: x, Y: y, Z: z},
						Velocity: toVec(l.Velocity),
						Mass:     mass,
						Color:    whiteColor,
					})
					colored = append(colored, false)
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, nil, fmt.Errorf("%w: scene has no particles", ErrSchema)
	}
	return out, colored, nil
}

func (sc *Scene) planes() ([]Plane, error) {
	out := make([]Plane, 0, len(sc.Planes))
	for i, pj := range sc.Planes {
		n := toVec(pj.Normal)
		l := r3.Norm(n)
		if l == 0 {
			return nil, fmt.Errorf("%w: plane %d has a zero normal", ErrSchema, i)
		}
		// Offset is given against the normal as written
		out = append(out, Plane{Normal: r3.Scale(1/l, n), Offset: pj.Offset / l})
	}
	return out, nil
}

// clusterDefaults is what seeded clusters and clusters without overrides get
type clusterDefaults struct {
	toughness float64
	material  Material
	fracture  bool
}

func (sc *Scene) defaults() (clusterDefaults, error) {
	d := clusterDefaults{toughness: DefaultToughness, fracture: !sc.Unbreakable}
	if sc.Toughness != nil {
		if *sc.Toughness < 0 {
			return d, fmt.Errorf("%w: toughness must be non-negative", ErrSchema)
		}
		d.toughness = *sc.Toughness
	}
	m, err := sc.Material.material()
	if err != nil {
		return d, err
	}
	d.material = m
	return d, nil
}

func (sc *Scene) clusterSpecs(n int, d clusterDefaults) ([]ClusterSpec, error) {
	specs := make([]ClusterSpec, 0, len(sc.Clusters))
	for ci, cj := range sc.Clusters {
		if len(cj.Members) == 0 {
			return nil, fmt.Errorf("%w: cluster %d has no members", ErrSchema, ci)
		}
		for _, m := range cj.Members {
			if m < 0 || m >= n {
				return nil, fmt.Errorf("%w: cluster %d member %d out of range [0,%d)", ErrSchema, ci, m, n)
			}
		}
		spec := ClusterSpec{
			Members:         cj.Members,
			Toughness:       d.toughness,
			Material:        d.material,
			FractureEnabled: d.fracture && !cj.Unbreakable,
			vary:            cj.Toughness == nil,
		}
		if cj.Toughness != nil {
			if *cj.Toughness < 0 {
				return nil, fmt.Errorf("%w: cluster %d toughness must be non-negative", ErrSchema, ci)
			}
			spec.Toughness = *cj.Toughness
		}
		if cj.Material != nil {
			m, err := cj.Material.material()
			if err != nil {
				return nil, fmt.Errorf("cluster %d: %w", ci, err)
			}
			spec.Material = m
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
