package media

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Image is a decoded raster image in 8-bit RGBA order.
type Image struct {
	Width  int
	Height int
	// Pixels holds Width*Height*4 bytes in row-major RGBA order.
	Pixels []byte
}

// NewImage builds an Image and validates the pixel buffer length.
func NewImage(width, height int, pixels []byte) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedPayload, width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("%w: %d pixel bytes for %dx%d RGBA", ErrMalformedPayload, len(pixels), width, height)
	}
	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

// EncodePNG encodes the image as a PNG payload.
func (img *Image) EncodePNG() ([]byte, error) {
	nrgba := &image.NRGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePNG parses a PNG payload back into an Image.
func DecodePNG(payload []byte) (*Image, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	src, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	bounds := src.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)
	return &Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: nrgba.Pix,
	}, nil
}

// Equal reports observational equality (same dimensions and pixels).
func (img *Image) Equal(other *Image) bool {
	if img == nil || other == nil {
		return img == other
	}
	return img.Width == other.Width &&
		img.Height == other.Height &&
		bytes.Equal(img.Pixels, other.Pixels)
}
