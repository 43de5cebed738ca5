package sim

import (
	"image/color"
	"math"
)

// Color is a display color with channels in [0,1]
type Color struct {
	R, G, B float64
}

// ToRGBA converts to an opaque 8-bit color
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{channel(c.R), channel(c.G), channel(c.B), 255}
}

func channel(f float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(f, 0), 1) * 255))
}

var (
	freeColor  = Color{0.5, 0.5, 0.5}
	whiteColor = Color{1, 1, 1}
)

// clusterColor returns one of 12 hues for a cluster ID
func clusterColor(id int) Color {
	h := float64(id%12) / 12 * 360
	r, g, b := hsvToRGB(h, 0.6, 0.9)
	return Color{r, g, b}
}

// rampColor maps t in [0,1] from blue (weak) to red (tough)
func rampColor(t float64) Color {
	t = math.Min(math.Max(t, 0), 1)
	r, g, b := hsvToRGB(240*(1-t), 0.9, 0.9)
	return Color{r, g, b}
}

// hsvToRGB converts hue in degrees, saturation and value in [0,1] to RGB channels in [0,1]
func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	h = math.Mod(h, 360)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
