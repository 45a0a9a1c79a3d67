package badge

import (
	"image/color"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/acoeffic/readon/internal/colorx"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/prng"
	"github.com/acoeffic/readon/internal/scene"
	"github.com/acoeffic/readon/internal/store"
)

const (
	Width  = 420.0
	Height = 600.0

	background   = "#0F172A"
	accent       = "#6B988D"
	accentDark   = "#4A7A70"
	cream        = "#F5F1EB"
	slate        = "#94A3B8"
	slateDark    = "#475569"
	slateDarker  = "#334155"
	defaultColor = accent

	starCount = 50
	qrSize    = 40.0

	serif = fonts.LibreBaskerville
	sans  = fonts.Inter
)

// Star is one background dot, positioned by its top-left corner.
type Star struct {
	X, Y    float64
	R       float64
	Opacity float64
}

// Stars scatters count dots over the card. The layout depends only on the
// badge id, so every card of one badge shares its sky.
func Stars(badgeID string, count int) []Star {
	rng := prng.NewLCG32(int64(prng.HashSeed(badgeID)))
	out := make([]Star, count)
	for i := range out {
		out[i] = Star{
			X:       rng.Next() * Width,
			Y:       rng.Next() * Height,
			R:       0.5 + rng.Next()*1.2,
			Opacity: 0.15 + rng.Next()*0.35,
		}
	}
	return out
}

// Stats are the reader totals printed under the description.
type Stats struct {
	Books   int
	Pages   int
	Minutes float64
}

// SessionStats totals completed sessions. Sessions longer than a day and
// page ranges that go backwards are ignored.
func SessionStats(books int, sessions []store.Session) Stats {
	st := Stats{Books: books}
	for _, s := range sessions {
		if s.StartTime != nil && s.EndTime != nil {
			diff := s.EndTime.Sub(*s.StartTime).Minutes()
			if diff > 0 && diff < 1440 {
				st.Minutes += diff
			}
		}
		if s.StartPage != nil && s.EndPage != nil {
			if d := *s.EndPage - *s.StartPage; d > 0 {
				st.Pages += d
			}
		}
	}
	return st
}

func style(family string, size float64, weight int, hex string) scene.TextStyle {
	return scene.TextStyle{Family: family, Size: size, Weight: weight, Color: colorx.Alpha(hex, 1), Align: scene.AlignCenter}
}

func fadeLine(x, y, w, h float64, c color.NRGBA) scene.Shape {
	faded := c
	faded.A = 0
	p := scene.Linear(90,
		scene.Stop{Offset: 0, Color: faded},
		scene.Stop{Offset: 0.5, Color: c},
		scene.Stop{Offset: 1, Color: faded})
	return scene.Box(x, y, w, h).Painted(p)
}

func corners() []scene.Shape {
	const inset, arm = 16.0, 20.0
	c := colorx.Alpha(accent, 1)
	l, r := inset, Width-inset
	t, b := inset, Height-inset
	return []scene.Shape{
		scene.Line(l, t, l+arm, t).Stroked(c, 1), scene.Line(l, t, l, t+arm).Stroked(c, 1),
		scene.Line(r-arm, t, r, t).Stroked(c, 1), scene.Line(r, t, r, t+arm).Stroked(c, 1),
		scene.Line(l, b, l+arm, b).Stroked(c, 1), scene.Line(l, b-arm, l, b).Stroked(c, 1),
		scene.Line(r-arm, b, r, b).Stroked(c, 1), scene.Line(r, b-arm, r, b).Stroked(c, 1),
	}
}

func logo() []scene.Shape {
	const x, y = 152.0, 28.0
	return []scene.Shape{
		scene.Box(x, y, 18, 22).Rounded(3).Filled(colorx.Alpha(accent, 1)),
		scene.Polygon([]scene.Point{{X: x, Y: y + 16}, {X: x + 9, Y: y + 12}, {X: x + 18, Y: y + 16}, {X: x + 18, Y: y + 18}, {X: x, Y: y + 18}}).
			Filled(colorx.Alpha(accentDark, 1)),
		scene.Text(x+26, y+11, "LEXDAY", tracked(leftAligned(style(serif, 18, 600, accent)), 2)),
	}
}

func leftAligned(s scene.TextStyle) scene.TextStyle {
	s.Align = scene.AlignLeft
	return s
}

func tracked(s scene.TextStyle, spacing float64) scene.TextStyle {
	s.LetterSpacing = spacing
	return s
}

// qrShapes draws the QR code of url as a light tile of dark modules with
// its top-left corner at (x, y). An unencodable url draws nothing.
func qrShapes(url string, x, y, size float64) []scene.Shape {
	if url == "" {
		return nil
	}
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil
	}
	q.DisableBorder = true
	bits := q.Bitmap()
	if len(bits) == 0 {
		return nil
	}
	const pad = 3.0
	cell := (size - 2*pad) / float64(len(bits))
	dark := colorx.Alpha(background, 1)
	out := []scene.Shape{scene.Box(x, y, size, size).Rounded(3).Filled(colorx.Alpha(cream, 0.9))}
	for row, line := range bits {
		for col, on := range line {
			if on {
				out = append(out, scene.Box(x+pad+float64(col)*cell, y+pad+float64(row)*cell, cell, cell).Filled(dark))
			}
		}
	}
	return out
}

// Tree lays out the card. publicURL is encoded in the corner QR code.
func Tree(b store.Badge, st Stats, stars []Star, publicURL string, scale float64) *scene.Tree {
	t := scene.New(Width, Height, scale)
	t.Fill(scene.SolidPaint(colorx.Alpha(background, 1)))

	sky := make([]scene.Shape, 0, len(stars))
	for _, s := range stars {
		sky = append(sky, scene.Circle(s.X+s.R, s.Y+s.R, s.R).Filled(colorx.Alpha("#FFFFFF", s.Opacity)))
	}
	t.Add(scene.NewElement("stars", sky...))

	glow := colorx.Alpha(accent, 0.18)
	t.Add(scene.NewElement("glow", scene.Circle(Width/2, 278.4, 180).Painted(scene.Radial(0.5, 0.5, 0.5, 0.5,
		scene.Stop{Offset: 0, Color: glow},
		scene.Stop{Offset: 0.7, Color: color.NRGBA{R: glow.R, G: glow.G, B: glow.B}}))))

	t.Add(
		scene.NewElement("top-bar", fadeLine(0, 0, Width, 3, colorx.Alpha(accent, 1))).Fade(0.8),
		scene.NewElement("corners", corners()...).Fade(0.3),
		scene.NewElement("logo", logo()...),
	)

	hex := b.Color
	if hex == "" {
		hex = defaultColor
	}
	const cx, cy = Width / 2, 168.0
	halo := colorx.HexAlpha(colorx.WithAlphaByte(hex, 0x30))
	haloClear := halo
	haloClear.A = 0
	t.Add(scene.NewElement("badge",
		scene.Circle(cx, cy+8, 110).Painted(scene.Radial(0.5, 0.5, 0.5, 0.5,
			scene.Stop{Offset: 0.6, Color: colorx.Alpha("#000000", 0.6)},
			scene.Stop{Offset: 1, Color: color.NRGBA{}})),
		scene.Circle(cx, cy, 110).Painted(scene.Radial(0.5, 0.5, 0.5, 0.5,
			scene.Stop{Offset: 0.7, Color: halo},
			scene.Stop{Offset: 1, Color: haloClear})),
		scene.Circle(cx, cy, 80).Filled(colorx.HexAlpha(colorx.WithAlphaByte(hex, 0x25))),
		scene.Circle(cx, cy, 80).Stroked(colorx.HexAlpha(colorx.WithAlphaByte(hex, 0x60)), 3),
		scene.Text(cx, cy, b.Icon, style("", 80, 400, "#FFFFFF")),
	))

	label := tracked(style(sans, 10, 500, accent), 3)
	t.Add(scene.NewElement("unlocked", scene.Text(cx, 282, strings.ToUpper("✦ Badge débloqué ✦"), label)).Fade(0.9))

	name := tracked(style(serif, 36, 700, cream), 0.5)
	name.MaxWidth = Width - 80
	category := tracked(style(serif, 16, 400, slate), 1)
	category.Italic = true
	t.Add(
		scene.NewElement("name", scene.Text(cx, 316, b.Name, name)),
		scene.NewElement("category", scene.Text(cx, 350, CategoryLabel(b.Category), category)),
		scene.NewElement("separator", fadeLine(cx-20, 378, 40, 1, colorx.Alpha(accent, 1))),
	)

	desc := style(sans, 13, 300, slate)
	desc.MaxWidth = Width - 80
	var lines []scene.Shape
	for i, l := range scene.WrapWords(b.Description, 48, 2) {
		lines = append(lines, scene.Text(cx, 410+float64(i)*22, l, desc))
	}
	t.Add(scene.NewElement("description", lines...))

	value := style(serif, 22, 600, cream)
	caption := tracked(style(sans, 9, 400, slateDark), 2)
	cells := []struct{ value, label string }{
		{FormatNumber(st.Books), "LIVRES LUS"},
		{FormatNumber(st.Pages), "PAGES LUES"},
		{FormatHours(st.Minutes), "DE LECTURE"},
	}
	stats := []scene.Shape{scene.Box(60, 460, Width-120, 1).Filled(colorx.Alpha("#FFFFFF", 0.06))}
	for i, c := range cells {
		x := cx + float64(i-1)*100
		stats = append(stats,
			scene.Text(x, 494, c.value, value),
			scene.Text(x, 516, c.label, caption))
	}
	t.Add(scene.NewElement("stats", stats...))

	t.Add(
		scene.NewElement("bottom-bar", fadeLine(0, Height-3, Width, 3, colorx.Alpha(accent, 1))).Fade(0.4),
		scene.NewElement("footer", scene.Text(cx, Height-23, "LEXDAY.APP", tracked(style(sans, 9, 400, slateDarker), 3))),
	)
	if qr := qrShapes(publicURL, Width-44-qrSize, 44, qrSize); qr != nil {
		t.Add(scene.NewElement("qr", qr...))
	}
	return t
}
