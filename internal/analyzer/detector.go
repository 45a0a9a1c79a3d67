package analyzer

import "image"

// Palette is the pair of colours a cover contributes to the
// book-finished background.
type Palette struct {
	Dominant   string  // #rrggbb
	Secondary  string  // #rrggbb
	Confidence float64 // share of sampled pixels in the dominant bucket
}

// Detector is the interface for cover analysis strategies
type Detector interface {
	Detect(img image.Image) (Palette, error)
}
