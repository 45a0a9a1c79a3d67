package source

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// EbookCover renders the first page of a local ebook with MuPDF.
type EbookCover struct {
	DPI float64
}

func (e *EbookCover) Load(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open ebook %s: %w", path, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("ebook %s has no pages", path)
	}
	dpi := e.DPI
	if dpi <= 0 {
		dpi = 96
	}
	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("render ebook cover: %w", err)
	}
	return img, nil
}
