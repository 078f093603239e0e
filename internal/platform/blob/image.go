package blob

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	ErrEmptySignature = errors.New("empty signature")
	ErrNotPNG         = errors.New("signature is not a PNG image")
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// DecodeSignature accepts a canvas data URL (data:image/png;base64,...) or
// bare base64 and returns the PNG bytes.
func DecodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptySignature
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 || !strings.Contains(s[:i], ";base64") {
			return nil, ErrNotPNG
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptySignature
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, ErrNotPNG
	}
	return data, nil
}

// Compressor downsizes photos and re-encodes them as JPEG before upload.
type Compressor struct {
	MaxDimension int
	Quality      int
}

const ContentTypeJPEG = "image/jpeg"

func (c Compressor) Compress(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if c.MaxDimension > 0 && (b.Dx() > c.MaxDimension || b.Dy() > c.MaxDimension) {
		img = imaging.Fit(img, c.MaxDimension, c.MaxDimension, imaging.Lanczos)
	}
	q := c.Quality
	if q <= 0 || q > 100 {
		q = 80
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
