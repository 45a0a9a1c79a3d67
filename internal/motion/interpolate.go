// Package motion is the frame-based animation toolkit shared by every
// template: clamped interpolation, easing curves, springs and envelopes.
package motion

import (
	"github.com/fogleman/ease"
)

// Easing maps normalised progress to eased progress.
type Easing func(t float64) float64

var (
	Linear     Easing = ease.Linear
	OutCubic   Easing = ease.OutCubic
	InOutCubic Easing = ease.InOutCubic
	OutBack    Easing = ease.OutBack
)

// Extrapolate controls what happens outside the input range.
type Extrapolate int

const (
	Clamp Extrapolate = iota
	Extend
)

type options struct {
	left, right Extrapolate
	easing      Easing
}

// Option tweaks Interpolate.
type Option func(*options)

func WithEasing(e Easing) Option {
	return func(o *options) { o.easing = e }
}

func ExtendLeft() Option {
	return func(o *options) { o.left = Extend }
}

func ExtendRight() Option {
	return func(o *options) { o.right = Extend }
}

// Interpolate maps frame from the input breakpoints onto the output
// breakpoints. Both slices must have the same length (>= 2) and in must be
// non-decreasing. Values are clamped on both sides unless extended.
func Interpolate(frame float64, in, out []float64, opts ...Option) float64 {
	o := options{easing: Linear}
	for _, opt := range opts {
		opt(&o)
	}
	if len(in) == 0 || len(in) != len(out) {
		return 0
	}
	if len(in) == 1 {
		return out[0]
	}

	last := len(in) - 1
	if frame <= in[0] && o.left == Clamp {
		return out[0]
	}
	if frame >= in[last] && o.right == Clamp {
		return out[last]
	}

	// find the segment holding frame; out-of-range frames use the edge segment
	seg := 0
	for i := 0; i < last; i++ {
		seg = i
		if frame < in[i+1] {
			break
		}
	}

	lo, hi := in[seg], in[seg+1]
	if hi == lo {
		if frame <= lo {
			return out[seg]
		}
		return out[seg+1]
	}

	t := (frame - lo) / (hi - lo)
	if t >= 0 && t <= 1 {
		t = o.easing(t)
	}
	return lerp(out[seg], out[seg+1], t)
}

// Anim is the clamped OutCubic tween used across the templates: from
// 'from' to 'to' over [start, end].
func Anim(frame, start, end, from, to float64) float64 {
	return Interpolate(frame, []float64{start, end}, []float64{from, to}, WithEasing(OutCubic))
}

// Progress is Anim from 0 to 1.
func Progress(frame, start, end float64) float64 {
	return Anim(frame, start, end, 0, 1)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
