package convert

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// Prepared is an image ready for upload
type Prepared struct {
	Data    []byte
	Format  string // png, jpeg or gif
	Width   int
	Height  int
	Resized bool
}

// PrepareImage validates that data is a decodable image. Images whose longest
// side exceeds maxSide are downscaled, preserving the aspect ratio, and
// re-encoded as PNG. Others are passed on unchanged.
func PrepareImage(data []byte, maxSide int) (Prepared, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, fmt.Errorf("cannot decode image: %w", err)
	}

	bounds := img.Bounds()
	p := Prepared{
		Data:   data,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	if maxSide <= 0 || (p.Width <= maxSide && p.Height <= maxSide) {
		return p, nil
	}

	scaled := resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return Prepared{}, fmt.Errorf("cannot encode image: %w", err)
	}
	b := scaled.Bounds()
	return Prepared{
		Data:    buf.Bytes(),
		Format:  "png",
		Width:   b.Dx(),
		Height:  b.Dy(),
		Resized: true,
	}, nil
}
