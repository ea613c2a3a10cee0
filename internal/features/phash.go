package features

import (
	"image"
	"sort"
)

const (
	phashSourceSize = 32
	phashBlockSize  = 8
)

// PHash is a 64-bit perceptual hash. Each bit reflects whether a
// low-frequency DCT coefficient exceeds the block median, per spec.md
// §4.2.
type PHash uint64

// computePHash down-samples img to 32x32 grayscale, runs a 2D DCT, and
// thresholds the top-left 8x8 low-frequency block against its own
// median (computed excluding the DC coefficient at (0,0), matching the
// classic pHash algorithm so a single outlier DC value cannot skew every
// bit toward one side).
func computePHash(img image.Image) PHash {
	gray := toGrayscale(img, phashSourceSize, phashSourceSize)
	matrix := grayMatrix(gray, phashSourceSize, phashSourceSize)
	spectrum := dct2D(matrix)

	block := make([]float64, 0, phashBlockSize*phashBlockSize)
	for y := 0; y < phashBlockSize; y++ {
		for x := 0; x < phashBlockSize; x++ {
			block = append(block, spectrum[y][x])
		}
	}

	median := medianExcludingFirst(block)

	var hash PHash
	for i, v := range block {
		if v > median {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// medianExcludingFirst returns the median of values[1:], i.e. excluding
// the DC coefficient at index 0.
func medianExcludingFirst(values []float64) float64 {
	ac := make([]float64, len(values)-1)
	copy(ac, values[1:])
	sort.Float64s(ac)
	n := len(ac)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return ac[n/2]
	}
	return (ac[n/2-1] + ac[n/2]) / 2
}

// HammingDistance returns the number of differing bits between two
// 64-bit hashes, an integer in [0,64].
func HammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}
