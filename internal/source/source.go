// Package source loads book cover artwork for the templates. A cover
// reference may be a URL, a local image or a local ebook whose first page
// is used as the cover.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

var ErrNoCover = errors.New("no cover reference")

// CoverLoader fetches one cover image.
type CoverLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

var ebookExts = map[string]bool{
	".pdf":  true,
	".epub": true,
	".mobi": true,
	".fb2":  true,
	".cbz":  true,
	".xps":  true,
}

// Resolver picks a loader from the reference's scheme or extension.
type Resolver struct {
	HTTP  *HTTPCover
	File  *FileCover
	Ebook *EbookCover
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{
		HTTP:  NewHTTPCover(timeout),
		File:  &FileCover{},
		Ebook: &EbookCover{DPI: 96},
	}
}

func (r *Resolver) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNoCover
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return r.HTTP.Load(ctx, ref)
	}
	ref = strings.TrimPrefix(ref, "file://")
	if ebookExts[strings.ToLower(filepath.Ext(ref))] {
		return r.Ebook.Load(ctx, ref)
	}
	return r.File.Load(ctx, ref)
}

// Fit scales img to cover a w x h box, cropping the overflow around the
// centre (CSS object-fit: cover).
func Fit(img image.Image, w, h int) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrNoCover
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("fit: invalid size %dx%d", w, h)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("fit: empty image")
	}

	scale := max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	cropW := int(float64(w)/scale + 0.5)
	cropH := int(float64(h)/scale + 0.5)
	x0 := b.Min.X + (b.Dx()-cropW)/2
	y0 := b.Min.Y + (b.Dy()-cropH)/2
	src := image.Rect(x0, y0, x0+cropW, y0+cropH).Intersect(b)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst, nil
}
