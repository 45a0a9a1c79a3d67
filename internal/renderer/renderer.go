// Package renderer rasterises scene trees into RGBA frames.
package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/scene"
	"github.com/acoeffic/readon/internal/system"
)

// Rasterizer draws trees. It owns font faces and scratch buffers, so each
// worker needs its own.
type Rasterizer struct {
	faces *fonts.FaceCache
	ras   *vector.Rasterizer
}

func NewRasterizer(reg *fonts.Registry) *Rasterizer {
	return &Rasterizer{faces: fonts.NewFaceCache(reg), ras: vector.NewRasterizer(0, 0)}
}

func (r *Rasterizer) Close() {
	r.faces.Close()
}

// transform maps logical coordinates of one element to output pixels.
type transform struct {
	s              float64
	scale          float64
	ox, oy, tx, ty float64
}

func (t transform) apply(x, y float64) (float64, float64) {
	x = (x-t.ox)*t.scale + t.ox + t.tx
	y = (y-t.oy)*t.scale + t.oy + t.ty
	return x * t.s, y * t.s
}

// length maps a logical length.
func (t transform) length(v float64) float64 {
	return v * t.scale * t.s
}

// Draw paints tree onto dst, which must be at least the tree's pixel size.
func (r *Rasterizer) Draw(tree *scene.Tree, dst *image.RGBA) {
	s := tree.Scale
	if s <= 0 {
		s = 1
	}
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	for _, l := range tree.Background {
		rect := l.Rect
		if rect.Empty() {
			rect = scene.Rect{W: tree.Width, H: tree.Height}
		}
		b := box{rect.X * s, rect.Y * s, rect.W * s, rect.H * s}
		r.fillRect(dst, b, 0, source(l.Paint, b, l.Opacity))
	}
	for _, e := range tree.Elements {
		if e.Opacity <= 0 {
			continue
		}
		// a spring that has not started yet holds its element at scale 0
		if e.Scale <= 0 {
			continue
		}
		tf := transform{s: s, scale: e.Scale, ox: e.Origin.X, oy: e.Origin.Y, tx: e.TranslateX, ty: e.TranslateY}
		for _, sh := range e.Shapes {
			r.drawShape(dst, tf, sh, e.Opacity*sh.Opacity)
		}
	}
}

func (r *Rasterizer) drawShape(dst *image.RGBA, tf transform, sh scene.Shape, opacity float64) {
	if opacity <= 0 {
		return
	}
	switch sh.Kind {
	case scene.KindCircle:
		cx, cy := tf.apply(sh.Center.X, sh.Center.Y)
		rad := tf.length(sh.R)
		b := box{cx - rad, cy - rad, 2 * rad, 2 * rad}
		if sh.Fill != nil {
			r.fill(dst, b, source(*sh.Fill, b, opacity), func(p pen) { p.ellipse(cx, cy, rad, rad, false) })
		}
		if sw := tf.length(sh.Width); sw > 0 && sh.Stroke.A > 0 {
			outer, inner := rad+sw/2, math.Max(rad-sw/2, 0)
			ob := box{cx - outer, cy - outer, 2 * outer, 2 * outer}
			r.fill(dst, ob, image.NewUniform(premul(sh.Stroke, opacity)), func(p pen) {
				p.ellipse(cx, cy, outer, outer, false)
				if inner > 0 {
					p.ellipse(cx, cy, inner, inner, true)
				}
			})
		}

	case scene.KindRect:
		x0, y0 := tf.apply(sh.Box.X, sh.Box.Y)
		b := box{x0, y0, tf.length(sh.Box.W), tf.length(sh.Box.H)}
		rad := tf.length(sh.Radius)
		if sh.Fill != nil {
			r.fillRect(dst, b, rad, source(*sh.Fill, b, opacity))
		}
		if sw := tf.length(sh.Width); sw > 0 && sh.Stroke.A > 0 {
			h := sw / 2
			ob := box{b.x - h, b.y - h, b.w + sw, b.h + sw}
			r.fill(dst, ob, image.NewUniform(premul(sh.Stroke, opacity)), func(p pen) {
				p.roundRect(ob.x, ob.y, ob.w, ob.h, rad+h, false)
				p.roundRect(b.x+h, b.y+h, b.w-sw, b.h-sw, math.Max(rad-h, 0), true)
			})
		}

	case scene.KindLine, scene.KindPolyline, scene.KindPolygon:
		pts := make([]pt, len(sh.Points))
		for i, q := range sh.Points {
			pts[i].x, pts[i].y = tf.apply(q.X, q.Y)
		}
		if len(pts) == 0 {
			return
		}
		closed := sh.Kind == scene.KindPolygon
		if closed && sh.Fill != nil {
			b := bounds(pts, 0)
			r.fill(dst, b, source(*sh.Fill, b, opacity), func(p pen) { p.polygon(pts) })
		}
		if sw := tf.length(sh.Width); sw > 0 && sh.Stroke.A > 0 {
			b := bounds(pts, sw)
			r.fill(dst, b, image.NewUniform(premul(sh.Stroke, opacity)), func(p pen) { p.segments(pts, sw, closed) })
		}

	case scene.KindText:
		x, y := tf.apply(sh.Center.X, sh.Center.Y)
		r.drawText(dst, x, y, tf.s*tf.scale, sh.Text, sh.Style, opacity)

	case scene.KindImage:
		if sh.Image == nil {
			return
		}
		x0, y0 := tf.apply(sh.Box.X, sh.Box.Y)
		r.drawImage(dst, box{x0, y0, tf.length(sh.Box.W), tf.length(sh.Box.H)}, tf.length(sh.Radius), sh.Image, opacity)
	}
}

func (r *Rasterizer) fillRect(dst *image.RGBA, b box, radius float64, src image.Image) {
	r.fill(dst, b, src, func(p pen) { p.roundRect(b.x, b.y, b.w, b.h, radius, false) })
}

// fill rasterises the path traced by trace, clipped to b and dst, and
// composites src over dst through it.
func (r *Rasterizer) fill(dst *image.RGBA, b box, src image.Image, trace func(pen)) {
	rect := image.Rect(
		int(math.Floor(b.x)), int(math.Floor(b.y)),
		int(math.Ceil(b.x+b.w)), int(math.Ceil(b.y+b.h)),
	).Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	r.ras.Reset(rect.Dx(), rect.Dy())
	r.ras.DrawOp = draw.Over
	trace(pen{r: r.ras, ox: float64(rect.Min.X), oy: float64(rect.Min.Y)})
	r.ras.Draw(dst, rect, src, rect.Min)
}

func (r *Rasterizer) drawImage(dst *image.RGBA, b box, radius float64, img image.Image, opacity float64) {
	rect := image.Rect(int(math.Round(b.x)), int(math.Round(b.y)), int(math.Round(b.x+b.w)), int(math.Round(b.y+b.h)))
	if rect.Empty() {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	mask := image.NewAlpha(scaled.Bounds())
	ras := vector.NewRasterizer(rect.Dx(), rect.Dy())
	pen{r: ras}.roundRect(0, 0, float64(rect.Dx()), float64(rect.Dy()), radius, false)
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	if o := clamp01(opacity); o < 1 {
		for i, a := range mask.Pix {
			mask.Pix[i] = uint8(float64(a)*o + 0.5)
		}
	}
	draw.DrawMask(dst, rect, scaled, image.Point{}, mask, image.Point{}, draw.Over)
}

// RenderFrame draws one frame into a pooled buffer. Callers hand it back
// with system.PutImage once encoded.
func (r *Rasterizer) RenderFrame(tree *scene.Tree) *image.RGBA {
	w, h := tree.PixelSize()
	dst := system.GetImage(image.Rect(0, 0, w, h))
	r.Draw(tree, dst)
	return dst
}

// EncodePNG writes img flattened onto black, the way the video is seen.
func EncodePNG(w io.Writer, img image.Image) error {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	return png.Encode(w, out)
}
