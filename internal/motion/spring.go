package motion

import "math"

// SpringConfig describes a damped harmonic oscillator released at rest.
type SpringConfig struct {
	Damping           float64
	Stiffness         float64
	Mass              float64
	From              float64
	To                float64
	OvershootClamping bool
}

func (c SpringConfig) withDefaults() SpringConfig {
	if c.Mass <= 0 {
		c.Mass = 1
	}
	if c.Damping <= 0 {
		c.Damping = 10
	}
	if c.Stiffness <= 0 {
		c.Stiffness = 100
	}
	return c
}

// Spring evaluates the oscillator at t = frame/fps seconds. Negative frames
// return From; the value converges to To.
func Spring(frame, fps float64, cfg SpringConfig) float64 {
	if frame <= 0 || fps <= 0 {
		return cfg.From
	}
	c := cfg.withDefaults()
	t := frame / fps

	w0 := math.Sqrt(c.Stiffness / c.Mass)
	zeta := c.Damping / (2 * math.Sqrt(c.Stiffness*c.Mass))
	x0 := c.From - c.To

	var x float64
	switch {
	case zeta < 1:
		wd := w0 * math.Sqrt(1-zeta*zeta)
		x = math.Exp(-zeta*w0*t) * (x0*math.Cos(wd*t) + (zeta*w0*x0/wd)*math.Sin(wd*t))
	case zeta == 1:
		x = math.Exp(-w0*t) * (x0 + w0*x0*t)
	default:
		wd := w0 * math.Sqrt(zeta*zeta-1)
		x = math.Exp(-zeta*w0*t) * (x0*math.Cosh(wd*t) + (zeta*w0*x0/wd)*math.Sinh(wd*t))
	}

	pos := c.To + x
	if c.OvershootClamping {
		if c.To >= c.From {
			pos = math.Min(pos, c.To)
		} else {
			pos = math.Max(pos, c.To)
		}
	}
	return pos
}

const (
	settleThreshold = 0.005
	settleHorizon   = 3000
)

// SpringSettleFrame returns the first frame from which the spring stays
// within 0.005 of To (relative to the travel distance) for good.
func SpringSettleFrame(fps float64, cfg SpringConfig) int {
	dist := math.Abs(cfg.To - cfg.From)
	if dist == 0 {
		return 0
	}
	settled := 0
	for f := 0; f <= settleHorizon; f++ {
		if math.Abs(Spring(float64(f), fps, cfg)-cfg.To)/dist >= settleThreshold {
			settled = f + 1
		}
	}
	return settled
}
