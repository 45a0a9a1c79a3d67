// Package prng holds the small deterministic generators used by the templates.
// Two families exist and they are never mixed inside one generated set:
// ParkMiller drives particles and patterns, LCG32 drives badge-card stars.
package prng

// Source yields floats in [0, 1).
type Source interface {
	Next() float64
}

const (
	parkMillerModulus    = 2147483647
	parkMillerMultiplier = 16807
)

// ParkMiller is the minimal standard Lehmer generator.
type ParkMiller struct {
	state int64
}

// NewParkMiller normalises the seed into [1, 2^31-2] so that every seed,
// including 0 and negatives, produces values inside [0, 1).
func NewParkMiller(seed int64) *ParkMiller {
	s := seed % parkMillerModulus
	if s < 0 {
		s += parkMillerModulus
	}
	if s == 0 {
		s = 1
	}
	return &ParkMiller{state: s}
}

func (p *ParkMiller) Next() float64 {
	p.state = p.state * parkMillerMultiplier % parkMillerModulus
	return float64(p.state-1) / (parkMillerModulus - 1)
}

// LCG32 is the Numerical Recipes linear congruential generator on uint32.
type LCG32 struct {
	state uint32
}

func NewLCG32(seed int64) *LCG32 {
	return &LCG32{state: uint32(seed)}
}

// Next divides by 2^32 so the top state still lands below 1.
func (l *LCG32) Next() float64 {
	l.state = l.state*1664525 + 1013904223
	return float64(l.state) / (1 << 32)
}

// HashSeed is the 31-multiplier string hash with int32 wraparound,
// computed over UTF-16 code units.
func HashSeed(s string) int32 {
	var h int32
	for _, u := range utf16Units(s) {
		h = (h << 5) - h + int32(u)
	}
	return h
}

// SumSeed adds up the UTF-16 code units of s.
func SumSeed(s string) int64 {
	var sum int64
	for _, u := range utf16Units(s) {
		sum += int64(u)
	}
	return sum
}

func utf16Units(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
			continue
		}
		units = append(units, uint16(r))
	}
	return units
}
