package compositions

import (
	"fmt"
	"math"
	"strings"

	"github.com/acoeffic/readon/internal/colorx"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/pattern"
	"github.com/acoeffic/readon/internal/scene"
)

const bookFinishedFrames = 180

var (
	coverScaleSpring   = motion.SpringConfig{Damping: 14, Stiffness: 120, Mass: 0.9, From: 0.8, To: 1}
	coverOpacitySpring = motion.SpringConfig{Damping: 20, Stiffness: 150, Mass: 1, To: 1}
	logoSpring         = motion.SpringConfig{Damping: 14, Stiffness: 120, Mass: 1, To: 1}
)

// Both formats share one reveal table; only the layout differs.
func bookFinishedTimeline() Timeline {
	return Timeline{
		fadeStage("background", 0, 15),
		static("pattern"),
		fadeStage("header", 5, 20),
		springStage("cover", 15, coverScaleSpring),
		fadeStage("title", 40, 58),
		fadeStage("author", 50, 65),
		fadeStage("hero", 65, 83),
		fadeStage("stat-pages", 80, 95),
		fadeStage("stat-sessions", 90, 105),
		fadeStage("stat-period", 100, 115),
		counterStage("counters", 80, 110),
		springStage("footer", 130, logoSpring),
		fadeStage("tagline", 140, 155),
	}
}

type BookFinished struct {
	in     BookFinishedInput
	tl     Timeline
	assets Assets
}

func NewBookFinished(in BookFinishedInput, assets Assets) *BookFinished {
	in.Normalize()
	return &BookFinished{in: in, tl: bookFinishedTimeline(), assets: assets}
}

func (b *BookFinished) Stages() []Stage { return b.tl }

func (b *BookFinished) Audio() motion.Envelope {
	return motion.NewEnvelope(0.25, 15, bookFinishedFrames-30, bookFinishedFrames)
}

func (b *BookFinished) Resources() []Resource {
	if b.in.CoverURL == "" {
		return nil
	}
	return []Resource{{Label: "cover", URL: b.in.CoverURL}}
}

func (b *BookFinished) Render(frame int) *scene.Tree {
	f := float64(frame)
	t := newTree(b.in.Format)
	t.Add(b.background(t.Width, t.Height, f))
	t.Add(scene.NewElement("pattern", pattern.Generate(b.in.Seed, b.in.DominantColor, t.Width, t.Height, f)...))

	if b.in.Format == Square {
		b.square(t, f)
	} else {
		b.story(t, f)
	}
	return t
}

func (b *BookFinished) background(w, h, f float64) scene.Element {
	dom, sec := b.in.DominantColor, b.in.SecondaryColor
	base := scene.Linear(145,
		stop(0, tint(colorx.Darken(dom, 0.7), 1)),
		stop(0.5, tint(colorx.Darken(sec, 0.75), 1)),
		stop(1, tint(colorx.Darken(dom, 0.8), 1)))
	glowC := tintByte(dom, 0x35)
	glow := scene.Radial(0.5, 0.15, 1, 0.7, stop(0, glowC), stop(0.7, clearOf(glowC)))
	vignette := scene.Radial(0.5, 0.5, 0.8, 0.8, stop(0.4, tint("#000000", 0)), stop(1, tint("#000000", 0.4)))

	shapes := []scene.Shape{
		scene.Box(0, 0, w, h).Rounded(cardRadius).Painted(base),
		scene.Box(0, 0, w, h).Painted(glow),
	}
	blobs := []struct {
		x, y float64
		size float64
		c    string
		a    uint8
	}{
		{30 + math.Sin(f*0.012)*18, 25 + math.Cos(f*0.008)*12, 0.6, dom, 0x20},
		{70 + math.Sin(f*0.01+2)*15, 60 + math.Cos(f*0.014+1)*20, 0.45, sec, 0x25},
		{50 + math.Sin(f*0.009+4)*22, 85 + math.Cos(f*0.011+3)*10, 0.35, dom, 0x18},
	}
	for _, bl := range blobs {
		// the soft edge stands in for the blur filter
		r := w * bl.size / 2 * 1.4
		c := tintByte(bl.c, bl.a)
		p := scene.Radial(0.5, 0.5, 0.5, 0.5, stop(0, c), stop(0.7, clearOf(c)))
		shapes = append(shapes, scene.Box(bl.x/100*w-r, bl.y/100*h-r, 2*r, 2*r).Painted(p))
	}
	shapes = append(shapes, scene.Box(0, 0, w, h).Painted(vignette))
	return reveal(b.tl, "background", f, shapes...)
}

// CoverWidth and CoverHeight are the logical size of the cover slot. Covers
// should be fitted to this aspect before rendering.
const (
	CoverWidth  = 110.0
	CoverHeight = 160.0
)

// cover draws the book cover, or a typographic stand-in, centred on (cx, cy).
func (b *BookFinished) cover(cx, cy, f float64) scene.Element {
	const w, h = CoverWidth, CoverHeight
	dom := b.in.DominantColor
	shapes := []scene.Shape{
		scene.Box(cx-70, cy-95, 140, 190).Rounded(20).
			Painted(scene.Radial(0.5, 0.5, 0.5, 0.5, stop(0, tintByte(dom, 0x30)), stop(1, clearOf(tintByte(dom, 0x30))))),
	}
	if b.assets.Cover != nil {
		shapes = append(shapes, scene.Picture(cx-w/2, cy-h/2, w, h, b.assets.Cover).Rounded(12))
	} else {
		grad := scene.Linear(145, stop(0, tintByte(dom, 0x40)), stop(1, tintByte(dom, 0x15)))
		title := maxWidth(tracked(style(fonts.Inter, 14, 800, white(0.85)), -0.5), w-24)
		auth := tracked(style(fonts.Inter, 9, 500, white(0.4)), 1)
		shapes = append(shapes, scene.Box(cx-w/2, cy-h/2, w, h).Rounded(12).Painted(grad))
		lines := wrapWords(b.in.Title, 12, 3)
		top := cy - float64(len(lines))*17/2 - 8
		for i, l := range lines {
			shapes = append(shapes, scene.Text(cx, top+float64(i)*17, l, title))
		}
		ly := top + float64(len(lines))*17
		shapes = append(shapes,
			plainLine(cx, ly, 20, white(0.2)),
			scene.Text(cx, ly+14, strings.ToUpper(b.in.Author), maxWidth(auth, w-24)))
	}
	scale := springAt(f, 15, coverScaleSpring)
	op := math.Min(springAt(f, 15, coverOpacitySpring), 1)
	return scene.NewElement("cover", shapes...).Scaled(scale, scene.Point{X: cx, Y: cy}).Fade(op)
}

// wrapWords greedily breaks s into at most limit lines of roughly width runes.
func wrapWords(s string, width, limit int) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = word
		case len([]rune(cur))+1+len([]rune(word)) <= width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	if len(lines) > limit {
		lines = lines[:limit]
		lines[limit-1] += "…"
	}
	return lines
}

func (b *BookFinished) header(x, y float64, align scene.Align, f float64) scene.Element {
	st := tracked(style(fonts.Inter, 8, 700, white(0.5)), 3)
	st.Align = align
	return reveal(b.tl, "header", f, scene.Text(x, y, "LEXDAY", st))
}

func (b *BookFinished) info(x, titleY, authorY float64, align scene.Align, width, f float64) []scene.Element {
	ts := maxWidth(tracked(style(fonts.Inter, TitleFontSize(b.in.Title), 800, white(1)), -0.7), width)
	ts.Align = align
	as := maxWidth(italic(style(fonts.Inter, 10, 500, white(0.5))), width)
	as.Align = align
	title := reveal(b.tl, "title", f, scene.Text(x, titleY, b.in.Title, ts)).
		Move(0, b.tl.Lerp("title", f, 10, 0))
	return []scene.Element{title, reveal(b.tl, "author", f, scene.Text(x, authorY, b.in.Author, as))}
}

// stats lays out the hero reading time over a three-cell grid spanning
// [left, right] with the grid starting at gridTop.
func (b *BookFinished) stats(left, right, heroY, gridTop, f float64) []scene.Element {
	dom := b.in.DominantColor
	cx := (left + right) / 2
	heroFill := scene.Linear(135, stop(0, tint(dom, 1)), stop(1, tint(colorx.Lighten(dom, 0.3), 1)))
	hero := reveal(b.tl, "hero", f,
		scene.Text(cx, heroY, b.in.ReadingTime, filledWith(tracked(style(fonts.Inter, 19, 800, white(1)), -0.5), heroFill)),
		scene.Text(cx, heroY+18, "TEMPS DE LECTURE", tracked(style(fonts.Inter, 6, 600, white(0.35)), 2)),
	).Move(0, b.tl.Lerp("hero", f, 12, 0))

	const gap, cellH = 8.0, 44.0
	cellW := (right - left - 2*gap) / 3
	cells := []struct {
		id, value, label string
		small            bool
	}{
		{"stat-pages", fmt.Sprint(b.tl.Count("counters", f, b.in.PagesRead)), "PAGES", false},
		{"stat-sessions", fmt.Sprint(b.tl.Count("counters", f, b.in.Sessions)), "SESSIONS", false},
		{"stat-period", b.in.StartDate + " → " + b.in.EndDate, "PÉRIODE", true},
	}
	out := []scene.Element{hero}
	for i, c := range cells {
		x := left + float64(i)*(cellW+gap)
		size := 14.0
		if c.small {
			size = 10
		}
		mid := x + cellW/2
		out = append(out, rise(b.tl, c.id, f, 8,
			scene.Box(x, gridTop, cellW, cellH).Rounded(12).Filled(white(0.06)),
			scene.Text(mid, gridTop+17, c.value, maxWidth(style(fonts.Inter, size, 700, white(1)), cellW-8)),
			scene.Text(mid, gridTop+33, c.label, tracked(style(fonts.Inter, 5, 600, white(0.3)), 1)),
		))
	}
	return out
}

func (b *BookFinished) footer(cx, logoY, f float64) []scene.Element {
	s := springAt(f, 130, logoSpring)
	logo := scene.NewElement("footer",
		scene.Text(cx, logoY, "LexDay", tracked(style(fonts.Inter, 11, 700, white(0.8)), 1))).
		Scaled(s, scene.Point{X: cx, Y: logoY}).Fade(math.Min(s, 1))
	tag := reveal(b.tl, "tagline", f,
		scene.Text(cx, logoY+14, "Track your reading journey", style(fonts.Inter, 6, 500, white(0.25))))
	return []scene.Element{logo, tag}
}

func (b *BookFinished) story(t *scene.Tree, f float64) {
	cx := t.Width / 2
	t.Add(b.header(cx, 33, scene.AlignCenter, f))
	t.Add(b.cover(cx, 146, f))
	t.Add(b.info(cx, 262, 290, scene.AlignCenter, 300, f)...)
	t.Add(b.stats(24, t.Width-24, 490, 526, f)...)
	t.Add(b.footer(cx, 590, f)...)
}

func (b *BookFinished) square(t *scene.Tree, f float64) {
	t.Add(b.header(20, 23, scene.AlignLeft, f))
	t.Add(b.cover(75, 120, f))
	t.Add(b.info(146, 108, 134, scene.AlignLeft, t.Width-146-20, f)...)
	t.Add(b.stats(20, t.Width-20, 222, 256, f)...)
	t.Add(b.footer(t.Width/2, 322, f)...)
}
