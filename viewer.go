package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/olivierh59500/shapematch-fracture/sim"
)

// Viewer constants
const (
	ParticleSize = 3.0
	DefaultZoom  = 200.0
	MinZoom      = 10.0
	ZoomStep     = 1.1
	YawStep      = 0.05
	PlaneExtent  = 100.0 // half length of drawn plane lines, world units
	MaxFractures = 64    // fracture planes kept for display
)

var (
	dimColor      = color.RGBA{60, 60, 60, 255}
	plainColor    = color.RGBA{220, 220, 220, 255}
	planeColor    = color.RGBA{120, 120, 120, 255}
	fractureColor = color.RGBA{255, 80, 40, 255}
)

// Viewer is the ebiten front end. It only talks to the world through its public API
// and keeps every per-particle drawing detail on its own side, keyed by index.
type Viewer struct {
	World         *sim.World
	Width, Height float64

	Paused           bool
	Zoom             float64
	CamX, CamY       float64 // world point at the screen center
	Yaw              float64 // rotation about the vertical axis
	PrevMX, PrevMY   float64 // previous mouse position for pan
	WhichCluster     int     // -1 draws every cluster
	DrawClusters     bool
	ColorByToughness bool
	ColorParticles   bool // false draws every particle in plainColor
	DrawFractures    bool

	Frame     int
	MaxFrames int // 0 runs until the window closes
	Dumper    *FrameDumper

	grabbed   int                 // particle held with the right button, -1 when none
	fractures []sim.FractureEvent // most recent splits, oldest first
}

// NewViewer creates a viewer centered on the origin
func NewViewer(w *sim.World, width, height float64) *Viewer {
	return &Viewer{
		World:        w,
		Width:        width,
		Height:       height,
		Zoom:         DefaultZoom,
		WhichCluster:   -1,
		ColorParticles: true,
		grabbed:        -1,
	}
}

// Update is called each tick by Ebitengine
func (v *Viewer) Update() error {
	if err := v.handleInput(); err != nil {
		return err
	}

	if v.Paused {
		return nil
	}

	v.World.Timestep()
	v.recordFractures(v.World.LastFractures())
	if v.Dumper != nil {
		if err := v.Dumper.Dump(v.World, v.Frame); err != nil {
			return err
		}
	}
	v.Frame++
	if v.Frame%60 == 0 {
		fmt.Println(v.Frame)
	}
	if v.MaxFrames > 0 && v.Frame >= v.MaxFrames {
		return ebiten.Termination
	}
	return nil
}

// recordFractures keeps the last MaxFractures split planes
func (v *Viewer) recordFractures(events []sim.FractureEvent) {
	v.fractures = append(v.fractures, events...)
	if n := len(v.fractures) - MaxFractures; n > 0 {
		v.fractures = v.fractures[n:]
	}
}

// Draw is called each frame by Ebitengine
func (v *Viewer) Draw(screen *ebiten.Image) {
	for _, pl := range v.World.Planes() {
		v.drawPlane(screen, pl, planeColor)
	}
	if v.DrawFractures {
		for _, ev := range v.fractures {
			v.drawPlane(screen, sim.Plane{Normal: ev.Normal, Offset: ev.Offset}, fractureColor)
		}
	}

	positions := v.World.Positions()
	var colors []sim.Color
	if v.ColorByToughness {
		colors = v.World.ToughnessColors()
	} else {
		colors = v.World.Colors()
	}

	var highlight map[int]bool
	if v.DrawClusters && v.WhichCluster >= 0 {
		clusters := v.World.Clusters()
		if v.WhichCluster < len(clusters) {
			highlight = make(map[int]bool)
			for _, m := range clusters[v.WhichCluster].Members {
				highlight[m] = true
			}
		}
	}

	for i, p := range positions {
		sx, sy := v.worldToScreen(p)
		if sx < -ParticleSize || sx > v.Width+ParticleSize || sy < -ParticleSize || sy > v.Height+ParticleSize {
			continue
		}
		var col color.Color = plainColor
		if v.ColorParticles {
			col = colors[i].ToRGBA()
		}
		if highlight != nil && !highlight[i] {
			col = dimColor
		}
		vector.DrawFilledCircle(screen, float32(sx), float32(sy), float32(ParticleSize), col, true)
	}

	mode := "soft"
	if v.World.DragMode() {
		mode = "planes"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"frame %d  clusters %d  cluster %d  drag %s  paused %v  fractures %d",
		v.Frame, v.World.NumClusters(), v.WhichCluster, mode, v.Paused, len(v.fractures)))
}

// Layout returns the screen size
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return int(v.Width), int(v.Height)
}

// handleInput processes keyboard and mouse input
func (v *Viewer) handleInput() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.World.Restart()
		v.World.ClearAllDrags()
		v.grabbed = -1
		v.fractures = nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		v.Paused = !v.Paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		v.DrawClusters = !v.DrawClusters
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		v.ColorByToughness = !v.ColorByToughness
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		v.ColorParticles = !v.ColorParticles
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		v.DrawFractures = !v.DrawFractures
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		v.World.ToggleDragMode()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		v.WhichCluster = min(v.WhichCluster+1, v.World.NumClusters()-1)
		fmt.Println("Displaying cluster:", v.WhichCluster)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		v.WhichCluster = max(v.WhichCluster-1, -1)
		fmt.Println("Displaying cluster:", v.WhichCluster)
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		v.Zoom *= ZoomStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		v.Zoom = math.Max(v.Zoom/ZoomStep, MinZoom)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		v.Yaw -= YawStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		v.Yaw += YawStep
	}

	// Zoom
	_, wheelY := ebiten.Wheel()
	if wheelY != 0 {
		v.Zoom = math.Max(v.Zoom*math.Pow(ZoomStep, wheelY), MinZoom)
	}

	// Pan (drag)
	mx, my := ebiten.CursorPosition()
	fx, fy := float64(mx), float64(my)
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		v.CamX -= (fx - v.PrevMX) / v.Zoom
		v.CamY += (fy - v.PrevMY) / v.Zoom
	}
	v.PrevMX = fx
	v.PrevMY = fy

	v.handleGrab(fx, fy)
	return nil
}

// handleGrab binds the particle nearest the cursor to the cursor while the right button is down
func (v *Viewer) handleGrab(mx, my float64) {
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonRight) && v.grabbed >= 0 {
		v.World.ClearDrag(v.grabbed)
		v.grabbed = -1
		return
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		return
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		v.grabbed = v.World.NearestParticle(v.screenToWorld(mx, my), v.viewAxis())
	}
	if v.grabbed < 0 {
		return
	}

	// Keep the particle's depth, move it under the cursor
	p := v.World.Particle(v.grabbed).Position
	sx, sy := v.worldToScreen(p)
	right, up := v.screenAxes()
	target := r3.Add(p, r3.Add(r3.Scale((mx-sx)/v.Zoom, right), r3.Scale(-(my-sy)/v.Zoom, up)))
	v.World.SetDrag(sim.DragConstraint{Particle: v.grabbed, Kind: sim.DragPoint, Target: target})
}

// screenAxes returns the world directions of screen right and screen up
func (v *Viewer) screenAxes() (right, up r3.Vec) {
	return r3.Vec{X: math.Cos(v.Yaw), Z: -math.Sin(v.Yaw)}, r3.Vec{Y: 1}
}

// viewAxis is the direction the orthographic view looks along
func (v *Viewer) viewAxis() r3.Vec {
	right, up := v.screenAxes()
	return r3.Cross(right, up)
}

// screenToWorld returns the point on the view plane through the origin under (sx, sy)
func (v *Viewer) screenToWorld(sx, sy float64) r3.Vec {
	right, up := v.screenAxes()
	x := v.CamX + (sx-v.Width/2)/v.Zoom
	y := v.CamY - (sy-v.Height/2)/v.Zoom
	return r3.Add(r3.Scale(x, right), r3.Scale(y, up))
}

// worldToScreen projects orthographically along the view axis
func (v *Viewer) worldToScreen(p r3.Vec) (float64, float64) {
	right, up := v.screenAxes()
	x := r3.Dot(p, right)
	y := r3.Dot(p, up)
	return (x-v.CamX)*v.Zoom + v.Width/2, -(y-v.CamY)*v.Zoom + v.Height/2
}

// drawPlane draws the trace of a plane when it is seen edge-on enough
func (v *Viewer) drawPlane(screen *ebiten.Image, pl sim.Plane, clr color.Color) {
	right, up := v.screenAxes()
	nx, ny := r3.Dot(pl.Normal, right), r3.Dot(pl.Normal, up)
	l := math.Hypot(nx, ny)
	if l < 0.5 {
		return
	}
	origin := r3.Scale(pl.Offset, pl.Normal)
	along := r3.Add(r3.Scale(-ny/l, right), r3.Scale(nx/l, up))
	x0, y0 := v.worldToScreen(r3.Add(origin, r3.Scale(-PlaneExtent, along)))
	x1, y1 := v.worldToScreen(r3.Add(origin, r3.Scale(PlaneExtent, along)))
	vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 1, clr, true)
}
