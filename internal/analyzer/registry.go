package analyzer

import "fmt"

// NewDetector creates a detector based on the specified variant. "none"
// returns a nil Detector: covers are drawn but never sampled for colour.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "palette", "":
		return NewPaletteDetector(), nil
	case "none":
		return nil, nil
	case "kmeans":
		return nil, fmt.Errorf("k-means detector not yet implemented")
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
