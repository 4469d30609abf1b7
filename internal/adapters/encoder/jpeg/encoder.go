// Package jpeg encodes captured stills as lossy JPEG frames.
package jpeg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"interview-monitor/internal/domain"
)

// Quality is the fixed JPEG quality factor used for every frame.
const Quality = 70

const MimeType = "image/jpeg"

type Encoder struct {
	quality int
}

func New() *Encoder { return &Encoder{quality: Quality} }

func (e *Encoder) Encode(img image.Image) (domain.Frame, error) {
	if img == nil {
		return domain.Frame{}, errors.New("jpeg: nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return domain.Frame{}, errors.New("jpeg: empty image")
	}
	var buf bytes.Buffer
	buf.Grow(b.Dx() * b.Dy() / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return domain.Frame{}, fmt.Errorf("jpeg: encode: %w", err)
	}
	return domain.Frame{Data: buf.Bytes(), MimeType: MimeType, Width: b.Dx(), Height: b.Dy()}, nil
}
