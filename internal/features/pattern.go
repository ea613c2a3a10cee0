package features

import "math/rand"

const descriptorBits = 256

// offsetPair is one sample-point pair of a BRIEF-style descriptor test,
// expressed as (x,y) offsets from a keypoint within a patchRadius patch.
type offsetPair struct {
	x1, y1 int
	x2, y2 int
}

const patchRadius = 15

// samplingPattern is the fixed set of descriptorBits offset pairs applied
// at every keypoint (after rotation to the keypoint's orientation), the
// same role as ORB's pre-computed rBRIEF pattern: a single pattern shared
// across all images so that descriptors from different images are
// directly comparable.
var samplingPattern = generatePattern()

func generatePattern() [descriptorBits]offsetPair {
	// Fixed seed: the pattern must be identical across process runs for
	// descriptors to be comparable at all, let alone deterministic.
	src := rand.New(rand.NewSource(0xA55A5))
	var pattern [descriptorBits]offsetPair
	for i := range pattern {
		pattern[i] = offsetPair{
			x1: src.Intn(2*patchRadius+1) - patchRadius,
			y1: src.Intn(2*patchRadius+1) - patchRadius,
			x2: src.Intn(2*patchRadius+1) - patchRadius,
			y2: src.Intn(2*patchRadius+1) - patchRadius,
		}
	}
	return pattern
}

// fastCircle is the 16-pixel Bresenham circle of radius 3 used by the
// FAST corner test.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}
