package widget

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/acoeffic/readon/internal/colorx"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/renderer"
	"github.com/acoeffic/readon/internal/scene"
)

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"

	green     = "#6B988D"
	cream     = "#FAF5EB"
	greenDark = "#50736A"
	orange    = "#FF9500"

	serif = fonts.LibreBaskerville
	sans  = fonts.Inter

	// OutputScale renders the point sizes at @3x.
	OutputScale = 3.0
)

// Dimensions are in points.
func Dimensions(s Size) (w, h float64, err error) {
	switch s {
	case SizeSmall, "":
		return 170, 170, nil
	case SizeMedium:
		return 364, 170, nil
	}
	return 0, 0, fmt.Errorf("unknown widget size %q", s)
}

func text(family string, size float64, weight int, c string, a float64) scene.TextStyle {
	return scene.TextStyle{Family: family, Size: size, Weight: weight, Color: colorx.Alpha(c, a)}
}

func progress(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// bar is the rounded progress track and its fill.
func bar(x, y, w, h, p float64) []scene.Shape {
	out := []scene.Shape{scene.Box(x, y, w, h).Rounded(3).Filled(colorx.Alpha(green, 0.2))}
	if fill := w * progress(p); fill > 0 {
		out = append(out, scene.Box(x, y, fill, h).Rounded(3).Filled(colorx.Alpha(green, 1)))
	}
	return out
}

// clock and flame stand in for the SF symbols.
func clock(cx, cy, r float64) []scene.Shape {
	c := colorx.Alpha(green, 1)
	return []scene.Shape{
		scene.Circle(cx, cy, r).Filled(c),
		scene.Line(cx, cy, cx, cy-r*0.6).Stroked(colorx.Alpha(cream, 1), r*0.25),
		scene.Line(cx, cy, cx+r*0.45, cy).Stroked(colorx.Alpha(cream, 1), r*0.25),
	}
}

func flame(cx, cy, r float64) []scene.Shape {
	c := colorx.Alpha(orange, 1)
	return []scene.Shape{
		scene.Circle(cx, cy+r*0.25, r*0.75).Filled(c),
		scene.Polygon([]scene.Point{{X: cx - r*0.7, Y: cy + r*0.1}, {X: cx, Y: cy - r}, {X: cx + r*0.7, Y: cy + r*0.1}}).Filled(c),
	}
}

func newTree(s Size) *scene.Tree {
	w, h, _ := Dimensions(s)
	t := scene.New(w, h, OutputScale)
	t.Fill(scene.SolidPaint(colorx.Alpha(cream, 1)))
	return t
}

// Small is the square widget: brand and streak on top, the book and
// today's minutes at the bottom.
func Small(e Entry) *scene.Tree {
	t := newTree(SizeSmall)
	const pad, w = 12.0, 170.0

	streak := text(sans, 10, 700, greenDark, 1)
	streak.Align = scene.AlignRight
	t.Add(
		scene.NewElement("brand", scene.Text(pad, pad+6, "LEXDAY", text(serif, 9, 700, green, 1))),
		scene.NewElement("streak", append(flame(w-pad-20, pad+6, 5), scene.Text(w-pad, pad+6, strconv.Itoa(e.Streak), streak))...),
	)

	title := text(serif, 13, 600, greenDark, 1)
	title.MaxWidth = w - 2*pad
	lines := scene.WrapWords(e.CurrentBook, 20, 2)
	var book []scene.Shape
	top := 118.0 - float64(len(lines)-1)*16
	for i, l := range lines {
		book = append(book, scene.Text(pad, top+float64(i)*16, l, title))
	}
	t.Add(
		scene.NewElement("book", book...),
		scene.NewElement("progress", bar(pad, 132, w-2*pad, 4, e.ProgressPercent)...),
		scene.NewElement("minutes", append(clock(pad+4, 150, 4.5),
			scene.Text(pad+13, 150, fmt.Sprintf("%d min aujourd'hui", e.TodayMinutes), text(sans, 10, 400, green, 1)))...),
	)
	return t
}

// Medium puts the book on the left and today's stats in a column on the
// right.
func Medium(e Entry) *scene.Tree {
	t := newTree(SizeMedium)
	const pad, w, h, column = 14.0, 364.0, 170.0, 80.0
	left := w - 2*pad - column - 16

	label := text(sans, 9, 700, green, 0.7)
	label.LetterSpacing = 1.5
	title := text(serif, 15, 600, greenDark, 1)
	title.MaxWidth = left
	author := text(serif, 11, 400, green, 1)
	author.MaxWidth = left

	lines := scene.WrapWords(e.CurrentBook, 26, 2)
	book := []scene.Shape{}
	for i, l := range lines {
		book = append(book, scene.Text(pad, pad+30+float64(i)*19, l, title))
	}
	t.Add(
		scene.NewElement("label", scene.Text(pad, pad+6, "EN COURS", label)),
		scene.NewElement("book", book...),
	)
	if e.CurrentAuthor != "" {
		y := pad + 30 + float64(len(lines))*19 + 2
		t.Add(scene.NewElement("author", scene.Text(pad, y, e.CurrentAuthor, author)))
	}
	t.Add(
		scene.NewElement("percent", scene.Text(pad, h-pad-20, strconv.Itoa(int(e.ProgressPercent*100))+"%", text(sans, 11, 500, green, 1))),
		scene.NewElement("progress", bar(pad, h-pad-10, left, 5, e.ProgressPercent)...),
		scene.NewElement("divider", scene.Line(pad+left+8, pad, pad+left+8, h-pad).Stroked(colorx.Alpha(green, 0.3), 1)),
	)

	cx := w - pad - column/2
	value := text(serif, 20, 700, greenDark, 1)
	value.Align = scene.AlignCenter
	caption := text(sans, 9, 400, green, 0.8)
	caption.Align = scene.AlignCenter
	t.Add(
		scene.NewElement("today", append(clock(cx, 36, 7),
			scene.Text(cx, 60, strconv.Itoa(e.TodayMinutes), value),
			scene.Text(cx, 77, "min today", caption))...),
		scene.NewElement("streak", append(flame(cx, 100, 8),
			scene.Text(cx, 124, strconv.Itoa(e.Streak), value),
			scene.Text(cx, 141, "day streak", caption))...),
	)
	return t
}

// View picks the layout for s.
func View(s Size, e Entry) (*scene.Tree, error) {
	switch s {
	case SizeSmall, "":
		return Small(e), nil
	case SizeMedium:
		return Medium(e), nil
	}
	return nil, fmt.Errorf("unknown widget size %q", s)
}

// PNG draws the widget for e.
func PNG(reg *fonts.Registry, s Size, e Entry) ([]byte, error) {
	tree, err := View(s, e)
	if err != nil {
		return nil, err
	}
	w, h := tree.PixelSize()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r := renderer.NewRasterizer(reg)
	defer r.Close()
	r.Draw(tree, img)

	var buf bytes.Buffer
	if err := renderer.EncodePNG(&buf, img); err != nil {
		return nil, fmt.Errorf("encode widget: %w", err)
	}
	return buf.Bytes(), nil
}
