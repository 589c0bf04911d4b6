package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	// Registered decoders for the formats ugoira bundles and live captures use.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks failures to turn a frame's bytes into pixels.
var ErrDecode = errors.New("decode error")

// DecodeError describes a frame that could not be decoded.
type DecodeError struct {
	Name  string
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ErrDecode.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: frame %d (%s)", ErrDecode, e.Index, e.Name)
	}
	return fmt.Sprintf("%s: frame %d (%s): %v", ErrDecode, e.Index, e.Name, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e == nil || e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

var errEmptyData = errors.New("empty image data")

// Bitmap is a decoded frame: width*height RGBA pixels, row-major, no padding.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
	Format string
}

// RGBA exposes the bitmap as an image without copying.
func (b *Bitmap) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Release drops the pixel buffer. Safe to call more than once and on nil.
func (b *Bitmap) Release() {
	if b == nil {
		return
	}
	b.Pix = nil
}

// Released reports whether Release has been called.
func (b *Bitmap) Released() bool {
	return b == nil || b.Pix == nil
}

// Decode turns f.Data into an RGBA bitmap. index is only used to label errors.
func Decode(f Frame, index int) (*Bitmap, error) {
	name := Label(f, index)
	if len(f.Data) == 0 {
		return nil, &DecodeError{Name: name, Index: index, Err: errEmptyData}
	}
	img, format, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, &DecodeError{Name: name, Index: index, Err: err}
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &DecodeError{Name: name, Index: index, Err: fmt.Errorf("invalid dimensions %dx%d", bounds.Dx(), bounds.Dy())}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Bitmap{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
		Format: format,
	}, nil
}

// DecodeConfig reads only the image header and reports the frame dimensions.
func DecodeConfig(f Frame, index int) (width, height int, err error) {
	name := Label(f, index)
	if len(f.Data) == 0 {
		return 0, 0, &DecodeError{Name: name, Index: index, Err: errEmptyData}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return 0, 0, &DecodeError{Name: name, Index: index, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, &DecodeError{Name: name, Index: index, Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	return cfg.Width, cfg.Height, nil
}
