package fonts

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

type faceKey struct {
	family string
	size   float64
	weight int
	italic bool
}

// FaceCache memoises faces for one goroutine. opentype faces keep scratch
// buffers and must not be shared.
type FaceCache struct {
	reg   *Registry
	faces map[faceKey]font.Face
	buf   sfnt.Buffer
}

func NewFaceCache(reg *Registry) *FaceCache {
	if reg == nil {
		reg = Default()
	}
	return &FaceCache{reg: reg, faces: make(map[faceKey]font.Face)}
}

// Face returns a face at size pixels (72 DPI, so points equal pixels).
func (c *FaceCache) Face(family string, size float64, weight int, italic bool) font.Face {
	k := faceKey{family, size, weight, italic}
	if f, ok := c.faces[k]; ok {
		return f
	}
	f, err := opentype.NewFace(c.reg.Font(family, weight, italic), &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		f, _ = opentype.NewFace(c.reg.fallbackFont(false, 400, false), &opentype.FaceOptions{Size: size, DPI: 72})
	}
	c.faces[k] = f
	return f
}

// HasGlyph reports whether the font behind family covers r.
func (c *FaceCache) HasGlyph(family string, weight int, italic bool, r rune) bool {
	idx, err := c.reg.Font(family, weight, italic).GlyphIndex(&c.buf, r)
	return err == nil && idx != 0
}

func (c *FaceCache) Close() {
	for k, f := range c.faces {
		_ = f.Close()
		delete(c.faces, k)
	}
}
