package gifwriter_test

import (
	"bytes"
	"errors"
	"image/color"
	"image/gif"
	"testing"

	"ugoira/internal/gifwriter"
	"ugoira/internal/quantize"
)

var twoColors = quantize.Palette{
	{R: 0xff, A: 0xff},
	{B: 0xff, A: 0xff},
}

func indices(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}

func TestWriterEmitsLoopDisposalAndDelays(t *testing.T) {
	w, err := gifwriter.New(4, 3, twoColors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, delay := range []int{100, 150, 200} {
		if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: indices(12, byte(i%2)), DelayMS: delay}); err != nil {
			t.Fatalf("WriteFrame %d: %v", i, err)
		}
	}
	if w.Frames() != 3 {
		t.Fatalf("Frames = %d", w.Frames())
	}
	data, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if g.LoopCount != 0 {
		t.Fatalf("LoopCount = %d, want 0 (forever)", g.LoopCount)
	}
	if g.Config.Width != 4 || g.Config.Height != 3 {
		t.Fatalf("unexpected logical screen %dx%d", g.Config.Width, g.Config.Height)
	}
	wantDelays := []int{10, 15, 20}
	for i := range g.Image {
		if g.Delay[i] != wantDelays[i] {
			t.Fatalf("frame %d delay = %d, want %d", i, g.Delay[i], wantDelays[i])
		}
		if g.Disposal[i] != gif.DisposalBackground {
			t.Fatalf("frame %d disposal = %d, want %d", i, g.Disposal[i], gif.DisposalBackground)
		}
		r, _, b, _ := g.Image[i].At(0, 0).RGBA()
		if i%2 == 0 && r>>8 != 0xff || i%2 == 1 && b>>8 != 0xff {
			t.Fatalf("frame %d has wrong color", i)
		}
	}
	global, ok := g.Config.ColorModel.(color.Palette)
	if !ok || len(global) < len(twoColors) {
		t.Fatalf("expected global color table, got %T", g.Config.ColorModel)
	}
}

func TestWriterLocalPalette(t *testing.T) {
	w, err := gifwriter.New(2, 2, twoColors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	local := quantize.Palette{{G: 0xff, A: 0xff}}
	if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: indices(4, 0), Palette: local}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	data, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	_, green, _, _ := g.Image[0].At(1, 1).RGBA()
	if green>>8 != 0xff {
		t.Fatal("expected the local palette to be used")
	}
	if w.LocalPalettes() != 1 {
		t.Fatalf("LocalPalettes = %d, want 1", w.LocalPalettes())
	}
}

func TestWriterFoldsPaletteEqualToGlobal(t *testing.T) {
	w, err := gifwriter.New(2, 2, twoColors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	same := quantize.Palette{{R: 0xff, A: 0xff}, {B: 0xff, A: 0xff}}
	for i, p := range []quantize.Palette{nil, same, {{G: 0xff, A: 0xff}}} {
		if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: indices(4, 0), Palette: p}); err != nil {
			t.Fatalf("WriteFrame %d: %v", i, err)
		}
	}
	if w.LocalPalettes() != 1 {
		t.Fatalf("LocalPalettes = %d, want 1", w.LocalPalettes())
	}
	data, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if r, _, _, _ := g.Image[1].At(0, 0).RGBA(); r>>8 != 0xff {
		t.Fatal("expected the folded frame to draw from the global palette")
	}
}

func TestWriterRejectsBadInput(t *testing.T) {
	if _, err := gifwriter.New(0, 1, twoColors); !errors.Is(err, gifwriter.ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
	if _, err := gifwriter.New(1, 1, nil); !errors.Is(err, gifwriter.ErrPalette) {
		t.Fatalf("expected ErrPalette, got %v", err)
	}
	oversized := make(quantize.Palette, 257)
	if _, err := gifwriter.New(1, 1, oversized); !errors.Is(err, gifwriter.ErrPalette) {
		t.Fatalf("expected ErrPalette for 257 colors, got %v", err)
	}

	w, err := gifwriter.New(2, 2, twoColors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: indices(3, 0)}); !errors.Is(err, gifwriter.ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
	if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: indices(4, 2)}); !errors.Is(err, gifwriter.ErrIndexRange) {
		t.Fatalf("expected ErrIndexRange, got %v", err)
	}
	if _, err := w.Finish(); !errors.Is(err, gifwriter.ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames, got %v", err)
	}
	if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: indices(4, 0)}); !errors.Is(err, gifwriter.ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
}

func TestWriterCopiesIndices(t *testing.T) {
	w, err := gifwriter.New(2, 1, twoColors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := []byte{0, 0}
	if err := w.WriteFrame(gifwriter.IndexedFrame{Indices: buf}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	buf[0], buf[1] = 1, 1
	data, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if g.Image[0].Pix[0] != 0 {
		t.Fatal("writer kept a reference to the caller's buffer")
	}
}

func TestDelayCentiseconds(t *testing.T) {
	tests := []struct {
		ms, want int
	}{
		{-10, 0},
		{0, 0},
		{4, 0},
		{5, 1},
		{15, 2},
		{100, 10},
		{155, 16},
		{1000000, 65535},
	}
	for _, tt := range tests {
		if got := gifwriter.DelayCentiseconds(tt.ms); got != tt.want {
			t.Fatalf("DelayCentiseconds(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}
