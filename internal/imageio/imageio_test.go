package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiusrecall/internal/evalerr"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadDecodesPNG(t *testing.T) {
	path := writePNG(t, t.TempDir(), "fixture.png")
	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestLoadUnicodePath(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "参照_héllo.png")
	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	var evalErr *evalerr.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, evalerr.CodeDecodeFailure, evalErr.Code)
}

func TestDecodeUnrecognizedFormatIsNotFatalDecodeFailure(t *testing.T) {
	// Bytes that match no registered decoder's signature at all (a
	// stray non-image file) must come back as UnrecognizedFormatError,
	// not evalerr.CodeDecodeFailure, so callers can skip-and-warn
	// instead of aborting the run.
	_, err := Decode("readme.txt", []byte("not an image"))
	require.Error(t, err)
	var unrecognized *UnrecognizedFormatError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "readme.txt", unrecognized.Path)
	var evalErr *evalerr.Error
	assert.False(t, errors.As(err, &evalErr))
}

func TestDecodeCorruptRecognizedFormatIsFatalDecodeFailure(t *testing.T) {
	// Bytes that match the PNG signature but are truncated/corrupt
	// afterward must still be a fatal DecodeFailure: the manifest (or a
	// human) believed this was a real image.
	pngSignature := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	corrupt := append(append([]byte{}, pngSignature...), []byte("truncated garbage, not a real IHDR chunk")...)

	_, err := Decode("bogus.png", corrupt)
	require.Error(t, err)
	var evalErr *evalerr.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, evalerr.CodeDecodeFailure, evalErr.Code)
	var unrecognized *UnrecognizedFormatError
	assert.False(t, errors.As(err, &unrecognized))
}
