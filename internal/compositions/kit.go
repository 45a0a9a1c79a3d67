package compositions

import (
	"image/color"

	"github.com/acoeffic/readon/internal/colorx"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/scene"
)

const (
	FPS = 30

	LogicalWidth = 360.0
	StoryHeight  = 640.0
	SquareHeight = 360.0
	OutputScale  = 3.0

	cardRadius = 24.0
)

func logicalHeight(f Format) float64 {
	if f == Square {
		return SquareHeight
	}
	return StoryHeight
}

func newTree(f Format) *scene.Tree {
	t := scene.New(LogicalWidth, logicalHeight(f), OutputScale)
	t.Fill(scene.SolidPaint(color.NRGBA{A: 255}))
	return t
}

func white(a float64) color.NRGBA {
	return colorx.Alpha("#FFFFFF", a)
}

func tint(hex string, a float64) color.NRGBA {
	return colorx.Alpha(hex, a)
}

// tintByte mirrors the "#RRGGBB" + "AA" suffix notation.
func tintByte(hex string, a uint8) color.NRGBA {
	return colorx.HexAlpha(colorx.WithAlphaByte(hex, a))
}

func clearOf(c color.NRGBA) color.NRGBA {
	c.A = 0
	return c
}

func stop(offset float64, c color.NRGBA) scene.Stop {
	return scene.Stop{Offset: offset, Color: c}
}

func style(family string, size float64, weight int, c color.NRGBA) scene.TextStyle {
	return scene.TextStyle{Family: family, Size: size, Weight: weight, Color: c, Align: scene.AlignCenter}
}

func leftAligned(s scene.TextStyle) scene.TextStyle {
	s.Align = scene.AlignLeft
	return s
}

func rightAligned(s scene.TextStyle) scene.TextStyle {
	s.Align = scene.AlignRight
	return s
}

func tracked(s scene.TextStyle, spacing float64) scene.TextStyle {
	s.LetterSpacing = spacing
	return s
}

func italic(s scene.TextStyle) scene.TextStyle {
	s.Italic = true
	return s
}

func maxWidth(s scene.TextStyle, w float64) scene.TextStyle {
	s.MaxWidth = w
	return s
}

func filledWith(s scene.TextStyle, p scene.Paint) scene.TextStyle {
	s.Fill = &p
	return s
}

func emoji(x, y, size float64, glyph string) scene.Shape {
	return scene.Text(x, y, glyph, style("", size, 400, white(1)))
}

// card is the rounded surface every template draws on.
func card(w, h float64, bg scene.Paint, border color.NRGBA) scene.Element {
	return scene.NewElement("card", scene.Box(0, 0, w, h).Rounded(cardRadius).Painted(bg).Stroked(border, 1))
}

// topGlow is a soft radial light hanging from the top edge.
func topGlow(w, height float64, c color.NRGBA) scene.Element {
	p := scene.Radial(0.5, 0, 0.71, 1.41, stop(0, c), stop(1, clearOf(c)))
	return scene.NewElement("top-glow", scene.Box(0, 0, w, height).Painted(p))
}

// endGlow pulses the whole card in the accent colour once the outro starts.
func endGlow(w, h float64, hex string, frame, start, base, amp float64) scene.Element {
	o := 0.0
	if frame > start {
		o = motion.Pulse(frame-start, base, 0.15, 0, amp)
	}
	return scene.NewElement("end-glow", scene.Box(0, 0, w, h).Rounded(cardRadius).Filled(tint(hex, 1))).Fade(o)
}

// accentLine is a 1px rule fading to transparent at both ends.
func accentLine(cx, y, w float64, c color.NRGBA) scene.Shape {
	p := scene.Linear(90, stop(0, clearOf(c)), stop(0.5, c), stop(1, clearOf(c)))
	return scene.Box(cx-w/2, y, w, 1).Painted(p)
}

// plainLine is a solid 1px rule centred on cx.
func plainLine(cx, y, w float64, c color.NRGBA) scene.Shape {
	return scene.Box(cx-w/2, y, w, 1).Filled(c)
}

func springAt(frame, delay float64, cfg motion.SpringConfig) float64 {
	return motion.Spring(frame-delay, FPS, cfg)
}

// reveal wraps shapes in an element faded by its stage.
func reveal(tl Timeline, id string, frame float64, shapes ...scene.Shape) scene.Element {
	return scene.NewElement(id, shapes...).Fade(tl.Opacity(id, frame))
}

// rise is reveal plus a slide up by dy as the element fades in.
func rise(tl Timeline, id string, frame, dy float64, shapes ...scene.Shape) scene.Element {
	s := tl.At(id)
	o, y := motion.FadeUp(frame, s.Start, s.End-s.Start, dy)
	return scene.NewElement(id, shapes...).Fade(o).Move(0, y)
}

// fadeAll multiplies every element by the card opacity.
func fadeAll(t *scene.Tree, opacity float64) {
	for i := range t.Elements {
		t.Elements[i].Opacity *= opacity
	}
}

// statCell is the emoji, value and label column used by the stat grids.
type statCell struct {
	id    string
	emoji string
	value string
	label string
}

type statLook struct {
	emojiSize float64
	value     scene.TextStyle
	label     scene.TextStyle
	valueDY   float64
	labelDY   float64
}

// shapes stacks the cell under top, centred on cx, after any backdrop.
func (c statCell) shapes(cx, top float64, look statLook, backdrop ...scene.Shape) []scene.Shape {
	out := append([]scene.Shape(nil), backdrop...)
	y := top
	if c.emoji != "" {
		y += look.emojiSize * 0.65
		out = append(out, emoji(cx, y, look.emojiSize, c.emoji))
	}
	out = append(out,
		scene.Text(cx, y+look.valueDY, c.value, look.value),
		scene.Text(cx, y+look.valueDY+look.labelDY, c.label, look.label),
	)
	return out
}
