// Package gifwriter serializes indexed frames into an animated GIF.
//
// The writer always emits a single global color table (frames with a
// different palette add a local one), an infinite loop
// count and disposal method 2 (restore to background) on every frame.
// Dropping the disposal method lets a renderer paint frame k+1 over frame k,
// which is the overlap artifact this package exists to prevent.
package gifwriter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"

	"ugoira/internal/quantize"
)

// MIMEType is the content type of the writer's output.
const MIMEType = "image/gif"

// LoopForever is the GIF loop count meaning "repeat indefinitely".
const LoopForever = 0

var (
	// ErrFinished is returned when frames are written after Finish.
	ErrFinished = errors.New("gif writer already finished")
	// ErrNoFrames is returned by Finish when nothing was written.
	ErrNoFrames = errors.New("gif writer has no frames")
	// ErrFrameSize reports an index buffer that does not cover the canvas.
	ErrFrameSize = errors.New("index buffer does not match canvas size")
	// ErrIndexRange reports an index that points outside the palette.
	ErrIndexRange = errors.New("palette index out of range")
	// ErrPalette reports an empty or oversized palette.
	ErrPalette = errors.New("invalid palette")
)

// IndexedFrame is one frame ready for the container. A nil Palette, or one
// equal to the global palette, means the writer's global palette.
type IndexedFrame struct {
	Indices  []byte
	Palette  quantize.Palette
	DelayMS  int
	Disposal byte
}

// Writer accumulates frames for a single GIF. It is not safe for concurrent use.
type Writer struct {
	width    int
	height   int
	global   quantize.Palette
	colors   color.Palette
	anim     *gif.GIF
	locals   int
	finished bool
}

// New returns a writer for a width x height animation sharing global.
func New(width, height int, global quantize.Palette) (*Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gif canvas %dx%d: %w", width, height, ErrFrameSize)
	}
	if err := checkPalette(global); err != nil {
		return nil, err
	}
	colors := global.ColorPalette()
	return &Writer{
		width:  width,
		height: height,
		global: global,
		colors: colors,
		anim: &gif.GIF{
			LoopCount: LoopForever,
			Config: image.Config{
				ColorModel: colors,
				Width:      width,
				Height:     height,
			},
		},
	}, nil
}

// WriteFrame appends f. Disposal 0 is promoted to DisposalBackground.
func (w *Writer) WriteFrame(f IndexedFrame) error {
	if w.finished {
		return ErrFinished
	}
	if len(f.Indices) != w.width*w.height {
		return fmt.Errorf("frame %d: got %d indices for %dx%d: %w", len(w.anim.Image), len(f.Indices), w.width, w.height, ErrFrameSize)
	}
	palette, colors := w.global, w.colors
	local := f.Palette != nil && !f.Palette.Equal(w.global)
	if local {
		palette, colors = f.Palette, f.Palette.ColorPalette()
	}
	if err := checkPalette(palette); err != nil {
		return fmt.Errorf("frame %d: %w", len(w.anim.Image), err)
	}
	limit := len(palette)
	for i, idx := range f.Indices {
		if int(idx) >= limit {
			return fmt.Errorf("frame %d pixel %d: index %d with %d colors: %w", len(w.anim.Image), i, idx, limit, ErrIndexRange)
		}
	}

	pix := make([]byte, len(f.Indices))
	copy(pix, f.Indices)
	img := &image.Paletted{
		Pix:     pix,
		Stride:  w.width,
		Rect:    image.Rect(0, 0, w.width, w.height),
		Palette: colors,
	}

	disposal := f.Disposal
	if disposal == 0 {
		disposal = gif.DisposalBackground
	}
	if local {
		w.locals++
	}
	w.anim.Image = append(w.anim.Image, img)
	w.anim.Delay = append(w.anim.Delay, DelayCentiseconds(f.DelayMS))
	w.anim.Disposal = append(w.anim.Disposal, disposal)
	return nil
}

// Frames reports how many frames have been written.
func (w *Writer) Frames() int {
	return len(w.anim.Image)
}

// LocalPalettes reports how many written frames carry their own color table.
func (w *Writer) LocalPalettes() int {
	return w.locals
}

// Finish serializes the animation. The writer cannot be reused afterwards.
func (w *Writer) Finish() ([]byte, error) {
	if w.finished {
		return nil, ErrFinished
	}
	w.finished = true
	if len(w.anim.Image) == 0 {
		return nil, ErrNoFrames
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, w.anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	w.anim = nil
	return buf.Bytes(), nil
}

// DelayCentiseconds converts milliseconds to GIF delay units, rounding half
// away from zero. Zero stays zero; the format allows it and most viewers
// clamp it themselves.
func DelayCentiseconds(delayMS int) int {
	if delayMS <= 0 {
		return 0
	}
	cs := int(math.Round(float64(delayMS) / 10))
	if cs > math.MaxUint16 {
		return math.MaxUint16
	}
	return cs
}

func checkPalette(p quantize.Palette) error {
	if len(p) == 0 || len(p) > quantize.MaxColors {
		return fmt.Errorf("%w: %d colors", ErrPalette, len(p))
	}
	return nil
}
