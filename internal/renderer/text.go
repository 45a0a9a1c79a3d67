package renderer

import (
	"image"
	"image/draw"
	"math"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/acoeffic/readon/internal/scene"
)

const ellipsis = "…"

// glyphRun is a text run resolved against one face: only runes the font
// covers survive, so emoji without a colour font simply vanish.
type glyphRun struct {
	face    font.Face
	runes   []rune
	spacing float64
}

func (r *Rasterizer) run(text string, st scene.TextStyle, px float64) glyphRun {
	weight := st.Weight
	if weight == 0 {
		weight = 400
	}
	size := math.Round(px*4) / 4
	face := r.faces.Face(st.Family, size, weight, st.Italic)
	out := glyphRun{face: face, spacing: st.LetterSpacing * px / math.Max(st.Size, 1e-6)}
	for _, c := range text {
		if unicode.Is(unicode.Variation_Selector, c) || c == '\u200d' {
			continue
		}
		if c == ' ' || c == '\u202f' || r.faces.HasGlyph(st.Family, weight, st.Italic, c) {
			out.runes = append(out.runes, c)
		}
	}
	return out
}

func (g glyphRun) width() float64 {
	w := 0.0
	prev := rune(-1)
	for i, c := range g.runes {
		if prev >= 0 {
			w += fix(g.face.Kern(prev, c))
		}
		adv, ok := g.face.GlyphAdvance(c)
		if ok {
			w += fix(adv)
		}
		if i < len(g.runes)-1 {
			w += g.spacing
		}
		prev = c
	}
	return w
}

// fit trims runes and appends an ellipsis until the run fits limit pixels.
func (g glyphRun) fit(limit float64) glyphRun {
	if limit <= 0 || g.width() <= limit {
		return g
	}
	dots := []rune(ellipsis)
	for n := len(g.runes) - 1; n > 0; n-- {
		t := g
		t.runes = append(append([]rune{}, g.runes[:n]...), dots...)
		if t.width() <= limit {
			return t
		}
	}
	g.runes = dots
	return g
}

func fix(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// drawText paints s anchored at (x, y): x per the alignment, y the vertical
// middle of the line.
func (r *Rasterizer) drawText(dst *image.RGBA, x, y, scale float64, text string, st scene.TextStyle, opacity float64) {
	px := st.Size * scale
	if px < 0.5 || text == "" {
		return
	}
	g := r.run(text, st, px).fit(st.MaxWidth * scale)
	if len(g.runes) == 0 {
		return
	}
	w := g.width()
	switch st.Align {
	case scene.AlignCenter:
		x -= w / 2
	case scene.AlignRight:
		x -= w
	}
	m := g.face.Metrics()
	asc, desc := fix(m.Ascent), fix(m.Descent)
	baseline := y + (asc-desc)/2

	var src image.Image
	if st.Fill != nil {
		src = source(*st.Fill, box{x, baseline - asc, w, asc + desc}, opacity)
	} else {
		src = image.NewUniform(premul(st.Color, opacity))
	}

	dot := fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)}
	prev := rune(-1)
	for _, c := range g.runes {
		if prev >= 0 {
			dot.X += g.face.Kern(prev, c)
		}
		dr, mask, mp, adv, ok := g.face.Glyph(dot, c)
		if ok {
			draw.DrawMask(dst, dr, src, dr.Min, mask, mp, draw.Over)
		}
		dot.X += adv + fixed.Int26_6(g.spacing*64)
		prev = c
	}
}
