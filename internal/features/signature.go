// Package features computes the four per-image signatures spec.md §4.2
// defines: perceptual hash, difference hash, a local-feature descriptor
// set, and a low-resolution grayscale fallback signature. All four are
// pure functions of the decoded image's pixels, so signature computation
// is deterministic in the image bytes as required by spec.md §3.
package features

import "image"

// Signature bundles all four per-image signals.
type Signature struct {
	PHash       PHash
	DHash       DHash
	Features    []Descriptor
	Fallback    FallbackSignature
}

// Compute derives the full signature set for a decoded image.
func Compute(img image.Image) Signature {
	return Signature{
		PHash:    computePHash(img),
		DHash:    computeDHash(img),
		Features: computeKeypoints(img),
		Fallback: computeFallback(img),
	}
}
