package motion

import "math"

// FadeUp returns opacity and vertical offset of an element that fades in
// while sliding up by offset over duration frames.
func FadeUp(frame, start, duration, offset float64) (opacity, translateY float64) {
	if duration <= 0 {
		duration = 20
	}
	opacity = Anim(frame, start, start+duration, 0, 1)
	translateY = Anim(frame, start, start+duration, offset, 0)
	return opacity, translateY
}

// BarGrow is the 0..1 fill of a bar animated over duration frames (25 by default).
func BarGrow(frame, start, duration float64) float64 {
	if duration <= 0 {
		duration = 25
	}
	return Anim(frame, start, start+duration, 0, 1)
}

// Counter is the rounded value a counting-up number shows at progress p.
func Counter(target, p float64) int {
	return int(math.Round(target * p))
}

// Pulse is base + sin(frame*speed + phase)*amp, never below zero.
func Pulse(frame, base, speed, phase, amp float64) float64 {
	return math.Max(0, base+math.Sin(frame*speed+phase)*amp)
}
