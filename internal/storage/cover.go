package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	CoverMaxSide  = 1200
	CoverQuality  = 85
	CoverMimeType = "image/jpeg"
	MaxUploadSize = 20 << 20
)

var ErrNotImage = errors.New("storage: not a decodable image")

// NormalizeCover decodes a jpeg/png/gif/bmp/tiff image, fits it into CoverMaxSide²
// keeping the aspect ratio and re-encodes it as JPEG.
func NormalizeCover(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	b := img.Bounds()
	if b.Dx() > CoverMaxSide || b.Dy() > CoverMaxSide {
		img = imaging.Fit(img, CoverMaxSide, CoverMaxSide, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(CoverQuality)); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
