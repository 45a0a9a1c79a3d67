package motion

import (
	"math"
	"sort"
)

// Window is a single linear ramp over frames [In[0], In[1]].
type Window struct {
	In  [2]float64
	Out [2]float64
}

func (w Window) At(frame float64) float64 {
	return Interpolate(frame, w.In[:], w.Out[:])
}

// Envelope is the audio volume curve: the minimum of a fade-in and a
// fade-out window.
type Envelope struct {
	FadeIn  Window
	FadeOut Window
}

// NewEnvelope ramps 0->peak over [0, in] and peak->0 over [outStart, outEnd].
func NewEnvelope(peak, in, outStart, outEnd float64) Envelope {
	return Envelope{
		FadeIn:  Window{In: [2]float64{0, in}, Out: [2]float64{0, peak}},
		FadeOut: Window{In: [2]float64{outStart, outEnd}, Out: [2]float64{peak, 0}},
	}
}

func (e Envelope) Volume(frame float64) float64 {
	return math.Min(e.FadeIn.At(frame), e.FadeOut.At(frame))
}

// Point is one breakpoint of the piecewise-linear envelope.
type Point struct {
	Frame  float64
	Volume float64
}

// Points lists the breakpoints between which the envelope is linear.
func (e Envelope) Points() []Point {
	frames := []float64{e.FadeIn.In[0], e.FadeIn.In[1], e.FadeOut.In[0], e.FadeOut.In[1]}
	sort.Float64s(frames)
	pts := make([]Point, 0, len(frames))
	for i, f := range frames {
		if i > 0 && f == frames[i-1] {
			continue
		}
		pts = append(pts, Point{Frame: f, Volume: e.Volume(f)})
	}
	return pts
}
