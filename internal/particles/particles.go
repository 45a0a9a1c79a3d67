// Package particles is the seeded twinkling dust overlay drawn behind
// every template.
package particles

import (
	"math"

	"github.com/acoeffic/readon/internal/colorx"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/pattern"
	"github.com/acoeffic/readon/internal/prng"
	"github.com/acoeffic/readon/internal/scene"
)

const (
	DefaultCount = 35
	DefaultColor = "#7FA497"

	twinkleAmplitude = 0.1
)

// Particle is generated once per (seed, count, width, height).
type Particle struct {
	X, Y         float64
	Radius       float64
	BaseOpacity  float64
	TwinkleSpeed float64
	TwinklePhase float64
	DriftX       float64
	DriftY       float64
}

// Generate draws six values per particle from a Park-Miller source in a
// fixed order, so the same inputs always give the same field.
func Generate(seed int64, count int, w, h float64) []Particle {
	if count <= 0 {
		return nil
	}
	rng := prng.NewParkMiller(seed)
	out := make([]Particle, count)
	for i := range out {
		out[i] = Particle{
			X:            rng.Next() * w,
			Y:            rng.Next() * h,
			Radius:       0.6 + rng.Next()*1.0,
			BaseOpacity:  0.1 + rng.Next()*0.25,
			TwinkleSpeed: 0.02 + rng.Next()*0.04,
			TwinklePhase: rng.Next() * math.Pi * 2,
		}
	}
	return out
}

// Position is the particle centre at frame, wrapped into [0,w)x[0,h).
func Position(p Particle, frame, w, h float64) (float64, float64) {
	return pattern.Wrap(p.X+p.DriftX*frame, w), pattern.Wrap(p.Y+p.DriftY*frame, h)
}

func Opacity(p Particle, frame float64) float64 {
	return motion.Pulse(frame, p.BaseOpacity, p.TwinkleSpeed, p.TwinklePhase, twinkleAmplitude)
}

// Field is a configured overlay. Zero values take the defaults.
type Field struct {
	Count  int
	Color  string
	Seed   int64
	Width  float64
	Height float64

	particles []Particle
}

func NewField(count int, color string, seed int64, w, h float64) *Field {
	if count <= 0 {
		count = DefaultCount
	}
	if color == "" {
		color = DefaultColor
	}
	return &Field{
		Count:     count,
		Color:     color,
		Seed:      seed,
		Width:     w,
		Height:    h,
		particles: Generate(seed, count, w, h),
	}
}

func (f *Field) Particles() []Particle {
	return f.particles
}

// Shapes renders the field for one frame.
func (f *Field) Shapes(frame float64) []scene.Shape {
	c := colorx.Alpha(f.Color, 1)
	out := make([]scene.Shape, 0, len(f.particles))
	for _, p := range f.particles {
		x, y := Position(p, frame, f.Width, f.Height)
		out = append(out, scene.Circle(x, y, p.Radius).Filled(c).WithOpacity(Opacity(p, frame)))
	}
	return out
}

// Element wraps the field in a scene element with the given id.
func (f *Field) Element(id string, frame float64) scene.Element {
	return scene.NewElement(id, f.Shapes(frame)...)
}
