package renderer

import (
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498

type pt struct{ x, y float64 }

// pen writes paths into a rasterizer whose origin sits at (ox, oy) in
// output pixels.
type pen struct {
	r      *vector.Rasterizer
	ox, oy float64
}

func (p pen) moveTo(x, y float64) { p.r.MoveTo(float32(x-p.ox), float32(y-p.oy)) }
func (p pen) lineTo(x, y float64) { p.r.LineTo(float32(x-p.ox), float32(y-p.oy)) }
func (p pen) cubeTo(x1, y1, x2, y2, x, y float64) {
	p.r.CubeTo(float32(x1-p.ox), float32(y1-p.oy), float32(x2-p.ox), float32(y2-p.oy), float32(x-p.ox), float32(y-p.oy))
}
func (p pen) close() { p.r.ClosePath() }

// ellipse traces clockwise, or counter-clockwise when reverse is set so it
// punches a hole in a clockwise outline.
func (p pen) ellipse(cx, cy, rx, ry float64, reverse bool) {
	kx, ky := rx*kappa, ry*kappa
	if !reverse {
		p.moveTo(cx+rx, cy)
		p.cubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
		p.cubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
		p.cubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
		p.cubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	} else {
		p.moveTo(cx+rx, cy)
		p.cubeTo(cx+rx, cy-ky, cx+kx, cy-ry, cx, cy-ry)
		p.cubeTo(cx-kx, cy-ry, cx-rx, cy-ky, cx-rx, cy)
		p.cubeTo(cx-rx, cy+ky, cx-kx, cy+ry, cx, cy+ry)
		p.cubeTo(cx+kx, cy+ry, cx+rx, cy+ky, cx+rx, cy)
	}
	p.close()
}

// roundRect traces a rectangle with corner radius r, clamped to half the
// shorter side.
func (p pen) roundRect(x, y, w, h, r float64, reverse bool) {
	if w <= 0 || h <= 0 {
		return
	}
	r = math.Max(0, math.Min(r, math.Min(w, h)/2))
	k := r * kappa
	x2, y2 := x+w, y+h
	if r == 0 {
		if !reverse {
			p.moveTo(x, y)
			p.lineTo(x2, y)
			p.lineTo(x2, y2)
			p.lineTo(x, y2)
		} else {
			p.moveTo(x, y)
			p.lineTo(x, y2)
			p.lineTo(x2, y2)
			p.lineTo(x2, y)
		}
		p.close()
		return
	}
	if !reverse {
		p.moveTo(x+r, y)
		p.lineTo(x2-r, y)
		p.cubeTo(x2-r+k, y, x2, y+r-k, x2, y+r)
		p.lineTo(x2, y2-r)
		p.cubeTo(x2, y2-r+k, x2-r+k, y2, x2-r, y2)
		p.lineTo(x+r, y2)
		p.cubeTo(x+r-k, y2, x, y2-r+k, x, y2-r)
		p.lineTo(x, y+r)
		p.cubeTo(x, y+r-k, x+r-k, y, x+r, y)
	} else {
		p.moveTo(x+r, y)
		p.cubeTo(x+r-k, y, x, y+r-k, x, y+r)
		p.lineTo(x, y2-r)
		p.cubeTo(x, y2-r+k, x+r-k, y2, x+r, y2)
		p.lineTo(x2-r, y2)
		p.cubeTo(x2-r+k, y2, x2, y2-r+k, x2, y2-r)
		p.lineTo(x2, y+r)
		p.cubeTo(x2, y+r-k, x2-r+k, y, x2-r, y)
	}
	p.close()
}

// polygon traces a closed outline. Direction follows the input order.
func (p pen) polygon(pts []pt) {
	if len(pts) < 3 {
		return
	}
	p.moveTo(pts[0].x, pts[0].y)
	for _, q := range pts[1:] {
		p.lineTo(q.x, q.y)
	}
	p.close()
}

// segments strokes consecutive points as quads of the given width, with a
// square-ish join from the overlap. Every quad is wound the same way so
// overlaps saturate instead of cancelling.
func (p pen) segments(pts []pt, width float64, closed bool) {
	n := len(pts)
	if n < 2 || width <= 0 {
		return
	}
	last := n - 1
	if closed {
		last = n
	}
	hw := width / 2
	for i := 0; i < last; i++ {
		a, b := pts[i], pts[(i+1)%n]
		dx, dy := b.x-a.x, b.y-a.y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		// normal, plus a half-width extension along the segment to close joins
		nx, ny := -dy/l*hw, dx/l*hw
		ex, ey := dx/l*hw, dy/l*hw
		q := [4]pt{
			{a.x - ex + nx, a.y - ey + ny},
			{b.x + ex + nx, b.y + ey + ny},
			{b.x + ex - nx, b.y + ey - ny},
			{a.x - ex - nx, a.y - ey - ny},
		}
		if cross(q[0], q[1], q[2]) < 0 {
			q[1], q[3] = q[3], q[1]
		}
		p.polygon(q[:])
	}
}

func cross(a, b, c pt) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// bounds returns the axis-aligned box of pts grown by pad.
func bounds(pts []pt, pad float64) box {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, q := range pts {
		minX, maxX = math.Min(minX, q.x), math.Max(maxX, q.x)
		minY, maxY = math.Min(minY, q.y), math.Max(maxY, q.y)
	}
	return box{minX - pad, minY - pad, maxX - minX + 2*pad, maxY - minY + 2*pad}
}
