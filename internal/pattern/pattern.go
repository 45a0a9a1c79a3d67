// Package pattern generates the animated vector backgrounds of the
// book-finished template. The seed picks one of six kinds; every kind is a
// pure function of (seed, color, size, frame).
package pattern

import (
	"math"

	"github.com/acoeffic/readon/internal/colorx"
	"github.com/acoeffic/readon/internal/prng"
	"github.com/acoeffic/readon/internal/scene"
)

type Kind int

const (
	ConcentricCircles Kind = iota
	DiagonalLines
	DotsGrid
	Waves
	Geometric
	Particles
)

var kindNames = [...]string{
	"concentric-circles",
	"diagonal-lines",
	"dots-grid",
	"waves",
	"geometric",
	"particles",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Select maps a seed onto a kind with a floor modulo, so negative seeds
// still land in range.
func Select(seed int64) Kind {
	k := seed % 6
	if k < 0 {
		k += 6
	}
	return Kind(k)
}

const strokeWidth = 0.5

// Generate draws the selected pattern for one frame.
func Generate(seed int64, hex string, w, h float64, frame float64) []scene.Shape {
	return GenerateKind(Select(seed), seed, hex, w, h, frame)
}

func GenerateKind(kind Kind, seed int64, hex string, w, h float64, frame float64) []scene.Shape {
	switch kind {
	case ConcentricCircles:
		return concentric(hex, w/2, h*0.35, frame)
	case DiagonalLines:
		return diagonal(hex, h, frame)
	case DotsGrid:
		return dots(hex, w, h, frame)
	case Waves:
		return waves(hex, w, h, frame)
	case Geometric:
		return hexagons(hex, w/2, h*0.4, frame)
	case Particles:
		return drifting(seed, hex, w, h, frame)
	}
	return nil
}

func nonNeg(v float64) float64 {
	return math.Max(0, v)
}

func concentric(hex string, cx, cy, f float64) []scene.Shape {
	c := colorx.Alpha(hex, 1)
	rings := []float64{60, 100, 140, 180, 220}
	out := make([]scene.Shape, 0, len(rings))
	for i, base := range rings {
		fi := float64(i)
		r := base + math.Sin(f*0.03+fi*1.2)*8
		op := nonNeg(0.04 + math.Sin(f*0.025+fi*0.8)*0.02)
		out = append(out, scene.Circle(cx, cy, r).Stroked(c, strokeWidth).WithOpacity(op))
	}
	return out
}

func diagonal(hex string, h, f float64) []scene.Shape {
	c := colorx.Alpha(hex, 1)
	const (
		count   = 12
		spacing = 50
	)
	offset := f * 0.3
	out := make([]scene.Shape, 0, count)
	for i := 0; i < count; i++ {
		x := -h + float64(i)*spacing + offset
		out = append(out, scene.Line(x, 0, x+h, h).Stroked(c, strokeWidth).WithOpacity(0.06))
	}
	return out
}

// dots is positional: the seed only chooses the kind.
func dots(hex string, w, h, f float64) []scene.Shape {
	c := colorx.Alpha(hex, 1)
	const (
		cols = 8
		rows = 14
	)
	gapX := w / (cols + 1)
	gapY := h / (rows + 1)
	out := make([]scene.Shape, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			idx := float64(row*cols + col)
			local := f - idx*0.8
			if local < 0 {
				continue
			}
			fadeIn := math.Min(local/10, 1)
			pulse := 0.04 + math.Sin(f*0.04+idx*0.5)*0.02
			dot := scene.Circle(gapX*float64(col+1), gapY*float64(row+1), 1.5).Filled(c)
			out = append(out, dot.WithOpacity(nonNeg(pulse*fadeIn)))
		}
	}
	return out
}

func waves(hex string, w, h, f float64) []scene.Shape {
	c := colorx.Alpha(hex, 1)
	const count = 5
	out := make([]scene.Shape, 0, count)
	for i := 0; i < count; i++ {
		fi := float64(i)
		baseY := h*0.2 + fi*(h*0.15)
		phase := f*0.02 + fi*1.5
		var pts []scene.Point
		for x := 0.0; x <= w; x += 4 {
			y := baseY + math.Sin(x*0.025+phase)*15 + math.Sin(x*0.01+phase*0.7)*8
			pts = append(pts, scene.Point{X: x, Y: y})
		}
		op := nonNeg(0.06 + math.Sin(f*0.02+fi)*0.02)
		out = append(out, scene.Polyline(pts).Stroked(c, strokeWidth).WithOpacity(op))
	}
	return out
}

func hexagons(hex string, cx, cy, f float64) []scene.Shape {
	c := colorx.Alpha(hex, 1)
	sizes := []float64{40, 80, 120}
	out := make([]scene.Shape, 0, len(sizes))
	for i, size := range sizes {
		dir := 1.0
		if i%2 != 0 {
			dir = -1
		}
		rot := f * 0.15 * dir * math.Pi / 180
		op := nonNeg(0.05 + math.Sin(f*0.03+float64(i))*0.02)
		out = append(out, scene.Polygon(HexPoints(cx, cy, size, rot)).Stroked(c, strokeWidth).WithOpacity(op))
	}
	return out
}

// HexPoints returns a pointy-top hexagon of circumradius r rotated by rot
// radians around its centre.
func HexPoints(cx, cy, r, rot float64) []scene.Point {
	pts := make([]scene.Point, 6)
	for i := range pts {
		a := math.Pi/3*float64(i) - math.Pi/6 + rot
		pts[i] = scene.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

type mote struct {
	x, y, r, sx, sy, phase float64
}

func drifting(seed int64, hex string, w, h, f float64) []scene.Shape {
	c := colorx.Alpha(hex, 1)
	rng := prng.NewParkMiller(seed)
	motes := make([]mote, 20)
	for i := range motes {
		motes[i] = mote{
			x:     rng.Next() * w,
			y:     rng.Next() * h,
			r:     0.8 + rng.Next()*1.5,
			sx:    (rng.Next() - 0.5) * 0.15,
			sy:    (rng.Next() - 0.5) * 0.12,
			phase: rng.Next() * math.Pi * 2,
		}
	}

	out := make([]scene.Shape, 0, len(motes))
	for _, m := range motes {
		x := m.x + math.Sin(f*0.02+m.phase)*15 + f*m.sx
		y := m.y + math.Cos(f*0.015+m.phase)*10 + f*m.sy
		op := nonNeg(0.05 + math.Sin(f*0.06+m.phase)*0.04)
		out = append(out, scene.Circle(Wrap(x, w), Wrap(y, h), m.r).Filled(c).WithOpacity(op))
	}
	return out
}

// Wrap is a floor modulo: the result is always in [0, n).
func Wrap(v, n float64) float64 {
	if n <= 0 {
		return 0
	}
	m := math.Mod(v, n)
	if m < 0 {
		m += n
	}
	if m >= n {
		m = 0
	}
	return m
}
