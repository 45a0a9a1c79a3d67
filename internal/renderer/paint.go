package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/acoeffic/readon/internal/scene"
)

// box is a rectangle in output pixels.
type box struct {
	x, y, w, h float64
}

// source returns an image usable as a draw source for p over b, in
// destination coordinates, with every sample scaled by opacity.
func source(p scene.Paint, b box, opacity float64) image.Image {
	if p.Kind == scene.Solid || len(p.Stops) == 0 {
		c := p.Color
		if p.Kind != scene.Solid && len(p.Stops) == 0 {
			c = color.NRGBA{}
		}
		return image.NewUniform(premul(c, opacity))
	}
	g := &gradient{paint: p, b: b, opacity: opacity}
	g.prepare()
	return g
}

func premul(c color.NRGBA, opacity float64) color.RGBA {
	a := float64(c.A) / 255 * clamp01(opacity)
	return color.RGBA{
		R: uint8(float64(c.R)*a + 0.5),
		G: uint8(float64(c.G)*a + 0.5),
		B: uint8(float64(c.B)*a + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

type rgbaf struct{ r, g, b, a float64 }

// gradient evaluates linear and radial paints lazily per pixel. Stops are
// interpolated premultiplied so fades to transparent keep their hue.
type gradient struct {
	paint   scene.Paint
	b       box
	opacity float64

	stops  []float64
	colors []rgbaf

	// linear
	cx, cy, dx, dy, length float64
	// radial
	rx, ry float64
}

func (g *gradient) prepare() {
	for _, s := range g.paint.Stops {
		a := float64(s.Color.A) / 255
		g.stops = append(g.stops, s.Offset)
		g.colors = append(g.colors, rgbaf{
			r: float64(s.Color.R) / 255 * a,
			g: float64(s.Color.G) / 255 * a,
			b: float64(s.Color.B) / 255 * a,
			a: a,
		})
	}
	switch g.paint.Kind {
	case scene.LinearGradient:
		rad := g.paint.Angle * math.Pi / 180
		g.dx, g.dy = math.Sin(rad), -math.Cos(rad)
		g.cx, g.cy = g.b.x+g.b.w/2, g.b.y+g.b.h/2
		g.length = math.Abs(g.b.w*g.dx) + math.Abs(g.b.h*g.dy)
		if g.length == 0 {
			g.length = 1
		}
	case scene.RadialGradient:
		g.cx = g.b.x + g.paint.CX*g.b.w
		g.cy = g.b.y + g.paint.CY*g.b.h
		g.rx = math.Max(g.paint.RX*g.b.w, 1e-6)
		g.ry = math.Max(g.paint.RY*g.b.h, 1e-6)
	}
}

func (g *gradient) ColorModel() color.Model { return color.RGBAModel }

func (g *gradient) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g *gradient) At(x, y int) color.Color {
	px, py := float64(x)+0.5, float64(y)+0.5
	var t float64
	if g.paint.Kind == scene.LinearGradient {
		t = ((px-g.cx)*g.dx+(py-g.cy)*g.dy)/g.length + 0.5
	} else {
		ex, ey := (px-g.cx)/g.rx, (py-g.cy)/g.ry
		t = math.Sqrt(ex*ex + ey*ey)
	}
	c := g.sample(t)
	o := clamp01(g.opacity)
	return color.RGBA{
		R: uint8(c.r*o*255 + 0.5),
		G: uint8(c.g*o*255 + 0.5),
		B: uint8(c.b*o*255 + 0.5),
		A: uint8(c.a*o*255 + 0.5),
	}
}

func (g *gradient) sample(t float64) rgbaf {
	n := len(g.stops)
	if t <= g.stops[0] {
		return g.colors[0]
	}
	if t >= g.stops[n-1] {
		return g.colors[n-1]
	}
	for i := 1; i < n; i++ {
		if t > g.stops[i] {
			continue
		}
		lo, hi := g.stops[i-1], g.stops[i]
		if hi <= lo {
			return g.colors[i]
		}
		u := (t - lo) / (hi - lo)
		a, b := g.colors[i-1], g.colors[i]
		return rgbaf{
			r: a.r + (b.r-a.r)*u,
			g: a.g + (b.g-a.g)*u,
			b: a.b + (b.b-a.b)*u,
			a: a.a + (b.a-a.a)*u,
		}
	}
	return g.colors[n-1]
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
