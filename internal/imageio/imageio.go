// Package imageio decodes image files the way spec.md §4.1 requires: by
// reading the raw bytes through a pathway unaffected by platform-specific
// narrow-string path handling, then decoding from memory. It never hands
// a filename to a decoder that opens the file itself.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"mobiusrecall/internal/evalerr"
)

// UnrecognizedFormatError means the bytes at Path do not match any
// registered image decoder's signature at all, as opposed to a corrupt
// instance of a recognized format. spec.md §6 treats the two cases
// differently: a non-image file sitting in a reference/extracted
// directory (a stray .DS_Store, Thumbs.db, README, ...) is ignored with
// a warning, while a file that looks like, say, a PNG but fails to
// decode is a genuine DecodeFailure and fatal. Callers distinguish the
// two with errors.As against this type.
type UnrecognizedFormatError struct {
	Path string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized image format: %s", e.Path)
}

// Load reads path as raw bytes, then decodes it as an image. The
// returned error is either an *UnrecognizedFormatError (not an image at
// all) or an *evalerr.Error with CodeDecodeFailure (a recognized but
// corrupt/unreadable image), so callers can classify it without
// re-inspecting the underlying error.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, evalerr.DecodeFailure(path, fmt.Sprintf("read file: %s", err))
	}
	return Decode(path, data)
}

// Decode decodes raw image bytes already in memory, given only a path for
// error messages. This is the seam that keeps the decoder from ever
// touching the filesystem directly, satisfying the "bytes are the unit of
// input" rationale in spec.md §4.1.
func Decode(path string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, &UnrecognizedFormatError{Path: path}
		}
		return nil, evalerr.DecodeFailure(path, fmt.Sprintf("decode failed: %s", err))
	}
	return img, nil
}
