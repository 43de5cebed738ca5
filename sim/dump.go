package sim

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

// WriteParticlePositions writes one "x y z" line per particle
func (w *World) WriteParticlePositions(out io.Writer) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	bw := bufio.NewWriter(out)
	for i := range w.store.Particles {
		p := w.store.Particles[i].Position
		fmt.Fprintf(bw, "%g %g %g\n", p.X, p.Y, p.Z)
	}
	return bw.Flush()
}

// WriteClippedSpheres writes one "x y z r" line per particle. r is the sphere radius
// clipped to half the distance to the nearest graph neighbor, so spheres never overlap.
func (w *World) WriteClippedSpheres(out io.Writer) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	bw := bufio.NewWriter(out)
	ps := w.store.Particles
	for i := range ps {
		p := ps[i].Position
		r := w.params.SphereRadius
		for _, j := range w.graph.Neighbors(i) {
			r = math.Min(r, r3.Norm(r3.Sub(ps[j].Position, p))/2)
		}
		fmt.Fprintf(bw, "%g %g %g %g\n", p.X, p.Y, p.Z, r)
	}
	return bw.Flush()
}

// WriteColors writes one "r g b" line per particle
func (w *World) WriteColors(out io.Writer) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	bw := bufio.NewWriter(out)
	for i := range w.store.Particles {
		c := w.store.Particles[i].Color
		fmt.Fprintf(bw, "%g %g %g\n", c.R, c.G, c.B)
	}
	return bw.Flush()
}

// DumpParticlePositions writes positions to path
func (w *World) DumpParticlePositions(path string) error {
	return dumpFile(path, w.WriteParticlePositions)
}

// DumpClippedSpheres writes bounding spheres to path
func (w *World) DumpClippedSpheres(path string) error {
	return dumpFile(path, w.WriteClippedSpheres)
}

// DumpColors writes colors to path
func (w *World) DumpColors(path string) error {
	return dumpFile(path, w.WriteColors)
}

func dumpFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("dump %s: %w", path, err)
	}
	return f.Close()
}
