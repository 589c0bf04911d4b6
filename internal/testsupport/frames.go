package testsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"ugoira/internal/frame"
)

// Palette of clearly distinct colors used by generated frames.
var Palette = []color.RGBA{
	{R: 0xe6, G: 0x19, B: 0x4b, A: 0xff},
	{R: 0x3c, G: 0xb4, B: 0x4b, A: 0xff},
	{R: 0x43, G: 0x63, B: 0xd8, A: 0xff},
	{R: 0xff, G: 0xe1, B: 0x19, A: 0xff},
	{R: 0x91, G: 0x1e, B: 0xb4, A: 0xff},
	{R: 0x46, G: 0xf0, B: 0xf0, A: 0xff},
	{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
	{R: 0xf5, G: 0x82, B: 0x31, A: 0xff},
	{R: 0x80, G: 0x00, B: 0x00, A: 0xff},
	{R: 0x00, G: 0x80, B: 0x80, A: 0xff},
	{R: 0x80, G: 0x80, B: 0x00, A: 0xff},
	{R: 0xfa, G: 0xbe, B: 0xd4, A: 0xff},
}

// ColorAt returns the generated color for frame index i.
func ColorAt(i int) color.RGBA {
	return Palette[i%len(Palette)]
}

// SolidImage returns an opaque w×h image filled with c.
func SolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// PNG encodes img as PNG.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes img as a high quality JPEG.
func JPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// SolidPNG is a shortcut for PNG(SolidImage(...)).
func SolidPNG(t testing.TB, w, h int, c color.RGBA) []byte {
	t.Helper()
	return PNG(t, SolidImage(w, h, c))
}

// TranslucentPNG encodes a w×h PNG filled with the non-premultiplied color c.
func TranslucentPNG(t testing.TB, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return PNG(t, img)
}

// Frames builds one solid w×h PNG frame per delay, each in a distinct color.
func Frames(t testing.TB, w, h int, delays ...int) []frame.Frame {
	t.Helper()
	frames := make([]frame.Frame, len(delays))
	for i, delay := range delays {
		frames[i] = frame.Frame{
			Data:    SolidPNG(t, w, h, ColorAt(i)),
			DelayMS: delay,
			Name:    fmt.Sprintf("%06d.png", i),
		}
	}
	return frames
}

// MarkedImage fills the top three quarters of a w×h image with ColorAt(i)
// and the bottom quarter with a swatch band of every Palette color, so a
// palette built from any one frame can represent all of them.
func MarkedImage(w, h, i int) *image.RGBA {
	img := SolidImage(w, h, ColorAt(i))
	band := h - h/4
	for y := band; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, Palette[x*len(Palette)/w])
		}
	}
	return img
}

// MarkedFrames builds one MarkedImage PNG per delay. Body colors identify
// the input position; read them back at BodyPoint.
func MarkedFrames(t testing.TB, w, h int, delays ...int) []frame.Frame {
	t.Helper()
	frames := make([]frame.Frame, len(delays))
	for i, delay := range delays {
		frames[i] = frame.Frame{
			Data:    PNG(t, MarkedImage(w, h, i)),
			DelayMS: delay,
			Name:    fmt.Sprintf("%06d.png", i),
		}
	}
	return frames
}

// BodyPoint is a pixel inside the body area of a MarkedImage.
func BodyPoint(w, h int) (int, int) {
	return w / 2, h / 4
}

// DecodeGIF decodes an encoded animation or fails the test.
func DecodeGIF(t testing.TB, data []byte) *gif.GIF {
	t.Helper()
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	return g
}

// PixelAt returns the color of frame i at (x, y) with the frame's palette applied.
func PixelAt(g *gif.GIF, i, x, y int) color.RGBA {
	r, gr, b, a := g.Image[i].At(x, y).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(gr >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

// Near reports whether two colors differ by at most tol per channel.
func Near(a, b color.RGBA, tol int) bool {
	diff := func(x, y uint8) int {
		d := int(x) - int(y)
		if d < 0 {
			return -d
		}
		return d
	}
	return diff(a.R, b.R) <= tol && diff(a.G, b.G) <= tol && diff(a.B, b.B) <= tol
}
