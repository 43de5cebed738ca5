package sim

import (
	"math"

	"github.com/aquilax/go-perlin"
	"gonum.org/v1/gonum/spatial/r3"
)

// Perlin defaults
const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = 3
)

// ToughnessField varies the base toughness of load-time clusters over space
type ToughnessField interface {
	At(p r3.Vec, base float64) float64
}

// PerlinToughness adds Amplitude·noise(Scale·p) to the base toughness, clamped at zero
type PerlinToughness struct {
	Amplitude float64
	Scale     float64
	noise     *perlin.Perlin
}

// NewPerlinToughness seeds a noise field. The same seed always yields the same field.
func NewPerlinToughness(amplitude, scale float64, seed int64) *PerlinToughness {
	if scale == 0 {
		scale = 1
	}
	return &PerlinToughness{
		Amplitude: amplitude,
		Scale:     scale,
		noise:     perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
	}
}

// At samples the field at p
func (t *PerlinToughness) At(p r3.Vec, base float64) float64 {
	if math.IsInf(base, 1) {
		return base
	}
	n := t.noise.Noise3D(p.X*t.Scale, p.Y*t.Scale, p.Z*t.Scale)
	return math.Max(0, base+t.Amplitude*n)
}
