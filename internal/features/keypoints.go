package features

import (
	"image"
	"math"
	"sort"
)

const (
	maxProcessingDim  = 512
	fastThreshold     = 20.0
	fastArcLength     = 9
	gridCell          = 16
	maxKeypoints      = 500
	minDescriptorsFor = 8
)

// Descriptor is a 256-bit rotation-steered BRIEF descriptor.
type Descriptor [4]uint64

type keypoint struct {
	x, y  int
	score float64
}

// computeKeypoints runs a deterministic FAST-corner + intensity-centroid
// orientation + steered-BRIEF pipeline over img, the rotation-invariant
// corner-descriptor family spec.md §4.2 calls for ("the implementer may
// choose any well-known such detector"). Descriptors for the same image
// bytes are always identical and in the same order (grid-major, then
// score descending), which is all determinism requires.
func computeKeypoints(img image.Image) []Descriptor {
	gray, width, height := toBoundedGray(img)
	if width < 2*patchRadius+1 || height < 2*patchRadius+1 {
		return nil
	}
	smoothed := boxBlur3(gray, width, height)

	kps := detectFASTCorners(smoothed, width, height)
	kps = gridNonMaxSuppress(kps, width, height)
	if len(kps) > maxKeypoints {
		kps = kps[:maxKeypoints]
	}

	descriptors := make([]Descriptor, 0, len(kps))
	for _, kp := range kps {
		angle := intensityCentroidAngle(smoothed, width, height, kp.x, kp.y)
		descriptors = append(descriptors, steeredBRIEF(smoothed, width, height, kp.x, kp.y, angle))
	}
	return descriptors
}

// toBoundedGray converts img to grayscale, downscaling first if either
// dimension exceeds maxProcessingDim, for bounded, deterministic runtime.
func toBoundedGray(img image.Image) (*image.Gray, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxProcessingDim || h > maxProcessingDim {
		scale := float64(maxProcessingDim) / float64(w)
		if hs := float64(maxProcessingDim) / float64(h); hs < scale {
			scale = hs
		}
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}
	gray := toGrayscale(img, uint(w), uint(h))
	return gray, w, h
}

// boxBlur3 applies a 3x3 box blur, returned as a flat row-major float64
// slice, smoothing sensor noise before intensity comparisons the way a
// BRIEF implementation typically pre-filters its patch.
func boxBlur3(gray *image.Gray, width, height int) []float64 {
	src := grayMatrix(gray, width, height)
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum, count := 0.0, 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= height || nx < 0 || nx >= width {
						continue
					}
					sum += src[ny][nx]
					count++
				}
			}
			out[y*width+x] = sum / float64(count)
		}
	}
	return out
}

func at(img []float64, width, height, x, y int) float64 {
	if x < 0 {
		x = 0
	}
	if x >= width {
		x = width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= height {
		y = height - 1
	}
	return img[y*width+x]
}

// detectFASTCorners finds pixels whose 16-pixel Bresenham circle contains
// an arc of at least fastArcLength contiguous pixels all brighter or all
// darker than the center by fastThreshold, per the classic FAST test.
func detectFASTCorners(img []float64, width, height int) []keypoint {
	var kps []keypoint
	border := 3
	for y := border; y < height-border; y++ {
		for x := border; x < width-border; x++ {
			center := at(img, width, height, x, y)
			var circle [16]float64
			for i, off := range fastCircle {
				circle[i] = at(img, width, height, x+off[0], y+off[1])
			}
			if ok, score := fastTest(center, circle[:]); ok {
				kps = append(kps, keypoint{x: x, y: y, score: score})
			}
		}
	}
	return kps
}

func fastTest(center float64, circle []float64) (bool, float64) {
	n := len(circle)
	brighter := make([]bool, n)
	darker := make([]bool, n)
	for i, v := range circle {
		brighter[i] = v > center+fastThreshold
		darker[i] = v < center-fastThreshold
	}
	if longestRun(brighter) >= fastArcLength || longestRun(darker) >= fastArcLength {
		score := 0.0
		for _, v := range circle {
			d := v - center
			if d < 0 {
				d = -d
			}
			score += d
		}
		return true, score
	}
	return false, 0
}

// longestRun returns the longest run of true values in a circular
// boolean slice.
func longestRun(flags []bool) int {
	n := len(flags)
	doubled := make([]bool, 2*n)
	copy(doubled, flags)
	copy(doubled[n:], flags)

	best, cur := 0, 0
	for i := 0; i < 2*n; i++ {
		if doubled[i] {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	if best > n {
		best = n
	}
	return best
}

// gridNonMaxSuppress keeps, per gridCell x gridCell bucket, only the
// highest-scoring keypoint, then returns all survivors ordered by
// (bucket row, bucket col, score descending) for deterministic output.
func gridNonMaxSuppress(kps []keypoint, width, height int) []keypoint {
	cols := (width + gridCell - 1) / gridCell
	rows := (height + gridCell - 1) / gridCell
	best := make(map[int]keypoint, cols*rows)
	for _, kp := range kps {
		cell := (kp.y/gridCell)*cols + kp.x/gridCell
		if existing, ok := best[cell]; !ok || kp.score > existing.score {
			best[cell] = kp
		}
	}
	out := make([]keypoint, 0, len(best))
	for _, kp := range best {
		out = append(out, kp)
	}
	sort.Slice(out, func(i, j int) bool {
		ci := (out[i].y/gridCell)*cols + out[i].x/gridCell
		cj := (out[j].y/gridCell)*cols + out[j].x/gridCell
		if ci != cj {
			return ci < cj
		}
		return out[i].score > out[j].score
	})
	_ = rows
	return out
}

// intensityCentroidAngle computes the ORB-style orientation of a
// keypoint: the angle from the keypoint to the intensity centroid of its
// surrounding patch, which makes the subsequent descriptor comparison
// robust to in-plane rotation.
func intensityCentroidAngle(img []float64, width, height, cx, cy int) float64 {
	var m10, m01 float64
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		for dx := -patchRadius; dx <= patchRadius; dx++ {
			if dx*dx+dy*dy > patchRadius*patchRadius {
				continue
			}
			v := at(img, width, height, cx+dx, cy+dy)
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

// steeredBRIEF builds a 256-bit descriptor by rotating the fixed sampling
// pattern to the keypoint's orientation and comparing intensities at each
// rotated pair.
func steeredBRIEF(img []float64, width, height, cx, cy int, angle float64) Descriptor {
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	var desc Descriptor
	for i, pair := range samplingPattern {
		rx1, ry1 := rotate(pair.x1, pair.y1, cosA, sinA)
		rx2, ry2 := rotate(pair.x2, pair.y2, cosA, sinA)
		v1 := at(img, width, height, cx+rx1, cy+ry1)
		v2 := at(img, width, height, cx+rx2, cy+ry2)
		if v1 < v2 {
			word := i / 64
			bit := uint(i % 64)
			desc[word] |= 1 << bit
		}
	}
	return desc
}

func rotate(x, y int, cosA, sinA float64) (int, int) {
	rx := float64(x)*cosA - float64(y)*sinA
	ry := float64(x)*sinA + float64(y)*cosA
	return int(math.Round(rx)), int(math.Round(ry))
}

// descriptorDistance is the Hamming distance between two 256-bit
// descriptors.
func descriptorDistance(a, b Descriptor) int {
	dist := 0
	for i := range a {
		x := a[i] ^ b[i]
		for x != 0 {
			x &= x - 1
			dist++
		}
	}
	return dist
}

const ratioTestThreshold = 0.8

// FeatureSimilarity implements spec.md §4.2's local-feature similarity:
// the fraction of descriptors in the smaller set whose nearest neighbor
// in the larger set passes the standard nearest/second-nearest ratio
// test, multiplied by a completion factor for the set-size gap. Returns
// 0 when either set has fewer than 8 descriptors.
func FeatureSimilarity(a, b []Descriptor) float64 {
	if len(a) < minDescriptorsFor || len(b) < minDescriptorsFor {
		return 0
	}

	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}

	good := 0
	for _, d := range small {
		nearest, second := math.MaxInt32, math.MaxInt32
		for _, e := range large {
			dist := descriptorDistance(d, e)
			if dist < nearest {
				second = nearest
				nearest = dist
			} else if dist < second {
				second = dist
			}
		}
		if second == math.MaxInt32 {
			second = nearest
		}
		ratio := (float64(nearest) + 1) / (float64(second) + 1)
		if ratio < ratioTestThreshold {
			good++
		}
	}

	completion := float64(len(small)) / float64(len(large))
	return (float64(good) / float64(len(small))) * completion
}
