package analyzer

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

var ErrNoColor = errors.New("analyzer: no usable colour in image")

// PaletteDetector finds the two most frequent mid-tone colours of an image
// using a 4-bit-per-channel histogram.
type PaletteDetector struct {
	SampleSize  int     // side of the downsampled square
	MinDistance float64 // minimum Lab distance between dominant and secondary
	MinLum      float64 // buckets darker than this are ignored
	MaxLum      float64 // buckets brighter than this are ignored
}

// NewPaletteDetector creates a detector with default settings
func NewPaletteDetector() *PaletteDetector {
	return &PaletteDetector{
		SampleSize:  64,
		MinDistance: 0.15,
		MinLum:      0.08,
		MaxLum:      0.92,
	}
}

type bucket struct {
	count   int
	r, g, b int // channel sums
}

func (b bucket) mean() colorful.Color {
	n := float64(b.count)
	return colorful.Color{
		R: float64(b.r) / n / 255,
		G: float64(b.g) / n / 255,
		B: float64(b.b) / n / 255,
	}
}

// Detect downsamples the image and ranks quantised colour buckets.
func (d *PaletteDetector) Detect(img image.Image) (Palette, error) {
	if img == nil || img.Bounds().Empty() {
		return Palette{}, ErrNoColor
	}

	size := d.SampleSize
	if size <= 0 {
		size = 64
	}
	small := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	buckets := make(map[int]*bucket)
	total := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := small.RGBAAt(x, y)
			if c.A < 128 {
				continue
			}
			col := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
			l, _, _ := col.Lab()
			if l < d.MinLum || l > d.MaxLum {
				continue
			}
			key := int(c.R>>4)<<8 | int(c.G>>4)<<4 | int(c.B>>4)
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.count++
			bk.r += int(c.R)
			bk.g += int(c.G)
			bk.b += int(c.B)
			total++
		}
	}
	if total == 0 {
		return Palette{}, ErrNoColor
	}

	ranked := make([]*bucket, 0, len(buckets))
	keys := make(map[*bucket]int, len(buckets))
	for k, b := range buckets {
		ranked = append(ranked, b)
		keys[b] = k
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return keys[ranked[i]] < keys[ranked[j]]
	})

	dom := ranked[0].mean()
	p := Palette{
		Dominant:   dom.Clamped().Hex(),
		Confidence: float64(ranked[0].count) / float64(total),
	}
	for _, b := range ranked[1:] {
		c := b.mean()
		if dom.DistanceLab(c) >= d.MinDistance {
			p.Secondary = c.Clamped().Hex()
			break
		}
	}
	if p.Secondary == "" {
		// single-colour cover: derive a darker companion
		h, c, l := dom.Hcl()
		p.Secondary = colorful.Hcl(h, c, l*0.6).Clamped().Hex()
	}
	return p, nil
}

func (p Palette) String() string {
	return fmt.Sprintf("%s/%s (%.0f%%)", p.Dominant, p.Secondary, p.Confidence*100)
}
