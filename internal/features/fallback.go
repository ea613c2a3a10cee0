package features

import "image"

const fallbackSize = 64

// FallbackSignature is a normalized 64x64 grayscale thumbnail, used as a
// single-signal admissibility route for low-texture images (spec.md §4.3
// rationale: small icons typically lack enough texture for local-feature
// matching).
type FallbackSignature [fallbackSize * fallbackSize]float64

func computeFallback(img image.Image) FallbackSignature {
	gray := toGrayscale(img, fallbackSize, fallbackSize)
	matrix := grayMatrix(gray, fallbackSize, fallbackSize)

	var sig FallbackSignature
	i := 0
	for y := 0; y < fallbackSize; y++ {
		for x := 0; x < fallbackSize; x++ {
			sig[i] = matrix[y][x] / 255.0
			i++
		}
	}
	return sig
}

// FallbackSimilarity returns 1 - mean(|a-b|), a real in [0,1], higher is
// more similar.
func FallbackSimilarity(a, b FallbackSignature) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return 1.0 - sum/float64(len(a))
}
