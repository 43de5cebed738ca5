package sim

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func twoParticleWorld(t *testing.T) *World {
	t.Helper()
	sc := &Scene{
		Particles: []ParticleJSON{
			{Position: [3]float64{0, 0, 0}, Color: &[3]float64{1, 0, 0}},
			{Position: [3]float64{0.0625, 0, 0}, Color: &[3]float64{0, 0, 1}},
			{Position: [3]float64{3, 0, 0}, Color: &[3]float64{0, 1, 0}},
		},
		Clusters:       []ClusterJSON{{Members: []int{0, 1}}},
		NeighborRadius: 0.1,
		SphereRadius:   ptr(0.05),
	}
	w := mustWorld(t, sc)
	w.InitializeNeighbors()
	return w
}

func TestWriteParticlePositions(t *testing.T) {
	w := twoParticleWorld(t)
	var buf bytes.Buffer
	if err := w.WriteParticlePositions(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected one line per particle, got %d", len(lines))
	}
	if lines[1] != "0.0625 0 0" {
		t.Errorf("Expected \"0.0625 0 0\", got %q", lines[1])
	}
}

func TestWriteClippedSpheres(t *testing.T) {
	w := twoParticleWorld(t)
	var buf bytes.Buffer
	if err := w.WriteClippedSpheres(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "0 0 0 0.03125" {
		t.Errorf("Expected radius clipped to 0.03125, got %q", lines[0])
	}
	if lines[2] != "3 0 0 0.05" {
		t.Errorf("Expected unclipped radius for an isolated particle, got %q", lines[2])
	}
}

func TestDumpFiles(t *testing.T) {
	w := twoParticleWorld(t)
	dir := t.TempDir()

	if err := w.DumpParticlePositions(filepath.Join(dir, "particles.0.txt")); err != nil {
		t.Fatal(err)
	}
	if err := w.DumpClippedSpheres(filepath.Join(dir, "particles.0.txt.spheres")); err != nil {
		t.Fatal(err)
	}
	if err := w.DumpColors(filepath.Join(dir, "particles.0.txt.colors")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "particles.0.txt.colors"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "1 0 0\n0 0 1\n0 1 0\n" {
		t.Fatalf("unexpected colors %q", got)
	}

	if err := w.DumpColors(filepath.Join(dir, "missing", "x.colors")); err == nil {
		t.Fatalf("expected error for a missing directory")
	}
}
