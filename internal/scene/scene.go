// Package scene is the declarative frame description produced by the
// templates and consumed by the rasteriser. Coordinates are logical pixels;
// Tree.Scale maps them to output pixels.
package scene

import (
	"image"
	"image/color"
)

type Point struct {
	X, Y float64
}

type PaintKind int

const (
	Solid PaintKind = iota
	LinearGradient
	RadialGradient
)

// Stop is a gradient colour stop; Offset is in [0, 1].
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// Paint describes how an area is coloured. Gradient geometry is relative to
// the bounding box of whatever is being painted:
// linear gradients follow the CSS angle convention (0 = to top, 90 = to right),
// radial gradients place an ellipse at (CX, CY) with radii (RX, RY), all as
// fractions of the box.
type Paint struct {
	Kind   PaintKind
	Color  color.NRGBA
	Angle  float64
	CX, CY float64
	RX, RY float64
	Stops  []Stop
}

func SolidPaint(c color.NRGBA) Paint {
	return Paint{Kind: Solid, Color: c}
}

func Linear(angle float64, stops ...Stop) Paint {
	return Paint{Kind: LinearGradient, Angle: angle, Stops: stops}
}

func Radial(cx, cy, rx, ry float64, stops ...Stop) Paint {
	return Paint{Kind: RadialGradient, CX: cx, CY: cy, RX: rx, RY: ry, Stops: stops}
}

// Layer is a background paint covering Rect (the whole canvas when empty).
type Layer struct {
	Paint   Paint
	Rect    Rect
	Opacity float64
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// TextStyle selects a face from the font registry and positions the run.
type TextStyle struct {
	Family        string
	Size          float64
	Weight        int
	Italic        bool
	Color         color.NRGBA
	Fill          *Paint
	Align         Align
	LetterSpacing float64
	MaxWidth      float64
}

type ShapeKind int

const (
	KindCircle ShapeKind = iota
	KindLine
	KindPolyline
	KindPolygon
	KindRect
	KindText
	KindImage
)

func (k ShapeKind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindLine:
		return "line"
	case KindPolyline:
		return "polyline"
	case KindPolygon:
		return "polygon"
	case KindRect:
		return "rect"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Shape is one drawable primitive. Which fields matter depends on Kind:
// circles use Center and R, lines and polys use Points, rects and images use
// Box (with Radius for rounded corners). Text is anchored at Center: X is
// the left, middle or right edge depending on Style.Align and Y is the
// vertical middle of the line.
type Shape struct {
	Kind    ShapeKind
	Center  Point
	R       float64
	Points  []Point
	Box     Rect
	Radius  float64
	Fill    *Paint
	Stroke  color.NRGBA
	Width   float64
	Opacity float64
	Text    string
	Style   TextStyle
	Image   image.Image
}

func Circle(cx, cy, r float64) Shape {
	return Shape{Kind: KindCircle, Center: Point{cx, cy}, R: r, Opacity: 1}
}

func Line(x1, y1, x2, y2 float64) Shape {
	return Shape{Kind: KindLine, Points: []Point{{x1, y1}, {x2, y2}}, Opacity: 1}
}

func Polyline(pts []Point) Shape {
	return Shape{Kind: KindPolyline, Points: pts, Opacity: 1}
}

func Polygon(pts []Point) Shape {
	return Shape{Kind: KindPolygon, Points: pts, Opacity: 1}
}

func Box(x, y, w, h float64) Shape {
	return Shape{Kind: KindRect, Box: Rect{x, y, w, h}, Opacity: 1}
}

func Text(x, y float64, s string, style TextStyle) Shape {
	return Shape{Kind: KindText, Center: Point{x, y}, Text: s, Style: style, Opacity: 1}
}

func Picture(x, y, w, h float64, img image.Image) Shape {
	return Shape{Kind: KindImage, Box: Rect{x, y, w, h}, Image: img, Opacity: 1}
}

func (s Shape) Filled(c color.NRGBA) Shape {
	p := SolidPaint(c)
	s.Fill = &p
	return s
}

func (s Shape) Painted(p Paint) Shape {
	s.Fill = &p
	return s
}

func (s Shape) Stroked(c color.NRGBA, width float64) Shape {
	s.Stroke = c
	s.Width = width
	return s
}

func (s Shape) Rounded(r float64) Shape {
	s.Radius = r
	return s
}

func (s Shape) WithOpacity(o float64) Shape {
	s.Opacity = o
	return s
}

// Element groups shapes under one opacity and transform. Scale is applied
// around Origin, then the translation.
type Element struct {
	ID         string
	Opacity    float64
	TranslateX float64
	TranslateY float64
	Scale      float64
	Origin     Point
	Shapes     []Shape
}

func NewElement(id string, shapes ...Shape) Element {
	return Element{ID: id, Opacity: 1, Scale: 1, Shapes: shapes}
}

func (e Element) Fade(opacity float64) Element {
	e.Opacity = opacity
	return e
}

func (e Element) Move(dx, dy float64) Element {
	e.TranslateX += dx
	e.TranslateY += dy
	return e
}

func (e Element) Scaled(s float64, origin Point) Element {
	e.Scale = s
	e.Origin = origin
	return e
}

// Tree is one frame.
type Tree struct {
	Width      float64
	Height     float64
	Scale      float64
	Background []Layer
	Elements   []Element
}

func New(width, height, scale float64) *Tree {
	return &Tree{Width: width, Height: height, Scale: scale}
}

func (t *Tree) Fill(p Paint) {
	t.Background = append(t.Background, Layer{Paint: p, Opacity: 1})
}

func (t *Tree) Add(e ...Element) {
	t.Elements = append(t.Elements, e...)
}

// Find returns the first element with the given id.
func (t *Tree) Find(id string) (*Element, bool) {
	for i := range t.Elements {
		if t.Elements[i].ID == id {
			return &t.Elements[i], true
		}
	}
	return nil, false
}

func (t *Tree) IDs() []string {
	ids := make([]string, 0, len(t.Elements))
	for _, e := range t.Elements {
		ids = append(ids, e.ID)
	}
	return ids
}

// Visible reports whether the element exists and is drawn with non-zero opacity.
func (t *Tree) Visible(id string) bool {
	e, ok := t.Find(id)
	return ok && e.Opacity > 0
}

// PixelSize is the output raster size.
func (t *Tree) PixelSize() (int, int) {
	s := t.Scale
	if s <= 0 {
		s = 1
	}
	return int(t.Width*s + 0.5), int(t.Height*s + 0.5)
}

// Texts collects every text run of an element, in order.
func (e Element) Texts() []string {
	var out []string
	for _, s := range e.Shapes {
		if s.Kind == KindText {
			out = append(out, s.Text)
		}
	}
	return out
}
