package features

import (
	"image"

	"github.com/nfnt/resize"
)

// toGrayscale converts img to an 8-bit grayscale raster of the requested
// dimensions using the teacher library's bicubic resampler, matching the
// resize call rivo-duplo's CreateHash makes before its own wavelet
// transform.
func toGrayscale(img image.Image, width, height uint) *image.Gray {
	scaled := resize.Resize(width, height, img, resize.Bicubic)
	bounds := scaled.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, scaled.At(x, y))
		}
	}
	return gray
}

// grayMatrix returns the grayscale pixel values as a row-major float64
// matrix in [0,255].
func grayMatrix(gray *image.Gray, width, height int) [][]float64 {
	m := make([][]float64, height)
	for y := 0; y < height; y++ {
		row := make([]float64, width)
		for x := 0; x < width; x++ {
			row[x] = float64(gray.GrayAt(gray.Bounds().Min.X+x, gray.Bounds().Min.Y+y).Y)
		}
		m[y] = row
	}
	return m
}
