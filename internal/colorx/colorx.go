// Package colorx wraps go-colorful with the hex helpers the templates use.
package colorx

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Parse accepts #RGB and #RRGGBB.
func Parse(hex string) (colorful.Color, error) {
	h := strings.TrimSpace(hex)
	if len(h) == 4 && h[0] == '#' {
		h = "#" + strings.Repeat(h[1:2], 2) + strings.Repeat(h[2:3], 2) + strings.Repeat(h[3:4], 2)
	}
	c, err := colorful.Hex(h)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("parse color %q: %w", hex, err)
	}
	return c, nil
}

// MustParse returns black for invalid input.
func MustParse(hex string) colorful.Color {
	c, err := Parse(hex)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

func channels(hex string) (r, g, b uint8) {
	return MustParse(hex).RGB255()
}

func toHex(r, g, b float64) string {
	return fmt.Sprintf("#%02x%02x%02x", clampByte(r), clampByte(g), clampByte(b))
}

// Darken multiplies every channel by factor.
func Darken(hex string, factor float64) string {
	r, g, b := channels(hex)
	return toHex(math.Round(float64(r)*factor), math.Round(float64(g)*factor), math.Round(float64(b)*factor))
}

// Lighten adds 255*amount to every channel, saturating at 255.
func Lighten(hex string, amount float64) string {
	r, g, b := channels(hex)
	add := math.Round(255 * amount)
	return toHex(
		math.Min(255, float64(r)+add),
		math.Min(255, float64(g)+add),
		math.Min(255, float64(b)+add),
	)
}

// Alpha returns the colour with a float alpha in [0, 1].
func Alpha(hex string, a float64) color.NRGBA {
	r, g, b := channels(hex)
	return color.NRGBA{R: r, G: g, B: b, A: clampByte(math.Round(a * 255))}
}

// HexAlpha parses #RRGGBBAA, the suffix notation the templates use for
// translucent fills ("#7FA49720"). Plain #RRGGBB is opaque.
func HexAlpha(hex string) color.NRGBA {
	h := strings.TrimSpace(hex)
	if len(h) == 9 && h[0] == '#' {
		a, err := strconv.ParseUint(h[7:], 16, 8)
		if err == nil {
			c := Alpha(h[:7], 1)
			c.A = uint8(a)
			return c
		}
	}
	return Alpha(h, 1)
}

// WithAlphaByte appends a two-digit alpha suffix to a #RRGGBB colour.
func WithAlphaByte(hex string, a uint8) string {
	return fmt.Sprintf("%s%02x", strings.ToLower(hex[:min(len(hex), 7)]), a)
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
