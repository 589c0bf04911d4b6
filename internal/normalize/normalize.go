package normalize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"ugoira/internal/frame"
)

// Anchor selects where an undersized scaled image sits on the canvas.
type Anchor int

const (
	// AnchorTopLeft pins the image to (0,0).
	AnchorTopLeft Anchor = iota
	// AnchorCenter centers the image, rounding the offset down.
	AnchorCenter
)

func (a Anchor) String() string {
	switch a {
	case AnchorCenter:
		return "center"
	default:
		return "top_left"
	}
}

// White is the default canvas background.
var White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

var (
	// ErrReleasedBitmap is returned when a bitmap is normalized after Release.
	ErrReleasedBitmap = errors.New("bitmap already released")
	// ErrCanvasSize reports a non-positive target canvas.
	ErrCanvasSize = errors.New("invalid canvas size")
)

// Frame is a fixed-size RGB buffer, three bytes per pixel, no padding.
type Frame struct {
	Width  int
	Height int
	RGB    []byte
}

// At returns the color at (x, y).
func (f Frame) At(x, y int) color.RGBA {
	i := (y*f.Width + x) * 3
	return color.RGBA{R: f.RGB[i], G: f.RGB[i+1], B: f.RGB[i+2], A: 0xff}
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	rgb := make([]byte, len(f.RGB))
	copy(rgb, f.RGB)
	return Frame{Width: f.Width, Height: f.Height, RGB: rgb}
}

// Normalizer renders bitmaps onto a canvas of a fixed size.
type Normalizer struct {
	Anchor     Anchor
	Background color.RGBA
	// Scaler resamples images that do not match the canvas size. Nil means
	// ApproxBiLinear.
	Scaler xdraw.Interpolator
}

// New returns a normalizer with a white background and bilinear scaling.
func New(anchor Anchor) Normalizer {
	return Normalizer{Anchor: anchor, Background: White, Scaler: xdraw.ApproxBiLinear}
}

// Normalize renders b onto a freshly allocated width x height canvas.
func (n Normalizer) Normalize(b *frame.Bitmap, width, height int) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("%w: %dx%d", ErrCanvasSize, width, height)
	}
	if b.Released() {
		return Frame{}, ErrReleasedBitmap
	}

	if b.Width == width && b.Height == height {
		return n.copyVerbatim(b), nil
	}

	canvas := n.filledCanvas(width, height)
	dw, dh := ScaledSize(b.Width, b.Height, width, height)
	if dw > 0 && dh > 0 {
		x, y := n.offset(width, height, dw, dh)
		scaler := n.Scaler
		if scaler == nil {
			scaler = xdraw.ApproxBiLinear
		}
		dst := image.Rect(x, y, x+dw, y+dh)
		scaler.Scale(canvas, dst, b.RGBA(), image.Rect(0, 0, b.Width, b.Height), xdraw.Over, nil)
	}
	return fromRGBA(canvas), nil
}

// Blank returns a background-only canvas. The safety-net strategy uses it in
// place of frames that fail to decode.
func (n Normalizer) Blank(width, height int) Frame {
	return fromRGBA(n.filledCanvas(width, height))
}

// copyVerbatim keeps same-size pixels as they are and drops alpha. Bitmap
// pixels are premultiplied, so translucent pixels are composited over the
// background the same way the scaled path's draw.Over does.
func (n Normalizer) copyVerbatim(b *frame.Bitmap) Frame {
	bg := n.Background
	rgb := make([]byte, b.Width*b.Height*3)
	for src, dst := 0, 0; src+3 < len(b.Pix); src, dst = src+4, dst+3 {
		a := b.Pix[src+3]
		if a == 0xff {
			rgb[dst] = b.Pix[src]
			rgb[dst+1] = b.Pix[src+1]
			rgb[dst+2] = b.Pix[src+2]
			continue
		}
		rgb[dst] = over(b.Pix[src], bg.R, a)
		rgb[dst+1] = over(b.Pix[src+1], bg.G, a)
		rgb[dst+2] = over(b.Pix[src+2], bg.B, a)
	}
	return Frame{Width: b.Width, Height: b.Height, RGB: rgb}
}

// over blends a premultiplied source channel onto an opaque background.
func over(src, bg, alpha uint8) uint8 {
	v := uint32(src) + (uint32(bg)*uint32(0xff-alpha)+0x7f)/0xff
	return uint8(min(v, 0xff))
}

func (n Normalizer) filledCanvas(width, height int) *image.RGBA {
	bg := n.Background
	bg.A = 0xff
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = bg.R
		canvas.Pix[i+1] = bg.G
		canvas.Pix[i+2] = bg.B
		canvas.Pix[i+3] = bg.A
	}
	return canvas
}

func (n Normalizer) offset(width, height, dw, dh int) (int, int) {
	if n.Anchor == AnchorCenter {
		return (width - dw) / 2, (height - dh) / 2
	}
	return 0, 0
}

// ScaledSize fits srcW x srcH inside dstW x dstH preserving aspect ratio.
// Results are floored.
func ScaledSize(srcW, srcH, dstW, dstH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	return int(math.Floor(float64(srcW) * scale)), int(math.Floor(float64(srcH) * scale))
}

// CanvasSize derives the shared canvas for a conversion. Both targets set
// wins; a single target scales the other side from the first frame; no
// target means the first frame's size.
func CanvasSize(firstW, firstH, targetW, targetH int) (int, int, error) {
	if firstW <= 0 || firstH <= 0 {
		return 0, 0, fmt.Errorf("%w: first frame %dx%d", ErrCanvasSize, firstW, firstH)
	}
	switch {
	case targetW > 0 && targetH > 0:
		return targetW, targetH, nil
	case targetW > 0:
		h := int(math.Round(float64(firstH) * float64(targetW) / float64(firstW)))
		return targetW, max(h, 1), nil
	case targetH > 0:
		w := int(math.Round(float64(firstW) * float64(targetH) / float64(firstH)))
		return max(w, 1), targetH, nil
	default:
		return firstW, firstH, nil
	}
}

func fromRGBA(canvas *image.RGBA) Frame {
	w, h := canvas.Rect.Dx(), canvas.Rect.Dy()
	rgb := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+w*4]
		out := rgb[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			out[x*3] = row[x*4]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4+2]
		}
	}
	return Frame{Width: w, Height: h, RGB: rgb}
}
