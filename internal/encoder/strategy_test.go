package encoder_test

import (
	"bytes"
	"context"
	"errors"
	"image/gif"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ugoira/internal/encoder"
	"ugoira/internal/frame"
	"ugoira/internal/normalize"
	"ugoira/internal/testsupport"
)

const colorTolerance = 24

func strategies(opts encoder.Options) []encoder.Strategy {
	return []encoder.Strategy{
		encoder.NewFast(opts),
		encoder.NewStable(opts),
		encoder.NewSafetyNet(opts),
	}
}

func TestStrategiesThreeFrameAnimation(t *testing.T) {
	for _, s := range strategies(encoder.DefaultOptions()) {
		t.Run(s.Name(), func(t *testing.T) {
			frames := testsupport.MarkedFrames(t, 100, 100, 100, 150, 200)
			data, err := s.Encode(context.Background(), frames, nil)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			g := testsupport.DecodeGIF(t, data)
			if len(g.Image) != 3 {
				t.Fatalf("got %d frames, want 3", len(g.Image))
			}
			if g.Config.Width != 100 || g.Config.Height != 100 {
				t.Fatalf("unexpected screen %dx%d", g.Config.Width, g.Config.Height)
			}
			if g.LoopCount != 0 {
				t.Fatalf("LoopCount = %d, want 0", g.LoopCount)
			}
			for i, want := range []int{10, 15, 20} {
				if g.Delay[i] != want {
					t.Fatalf("frame %d delay = %d, want %d", i, g.Delay[i], want)
				}
				if g.Disposal[i] != gif.DisposalBackground {
					t.Fatalf("frame %d disposal = %d", i, g.Disposal[i])
				}
			}
		})
	}
}

func TestStrategiesSingleFrameZeroDelay(t *testing.T) {
	for _, s := range strategies(encoder.DefaultOptions()) {
		t.Run(s.Name(), func(t *testing.T) {
			frames := testsupport.MarkedFrames(t, 50, 80, 0)
			data, err := s.Encode(context.Background(), frames, nil)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			g := testsupport.DecodeGIF(t, data)
			if len(g.Image) != 1 {
				t.Fatalf("got %d frames, want 1", len(g.Image))
			}
			if b := g.Image[0].Bounds(); b.Dx() != 50 || b.Dy() != 80 {
				t.Fatalf("unexpected frame size %v", b)
			}
			if g.Delay[0] != 0 {
				t.Fatalf("delay = %d, want 0", g.Delay[0])
			}
		})
	}
}

func TestStrategiesPreserveOrderAcrossBatches(t *testing.T) {
	delays := make([]int, 12)
	for i := range delays {
		delays[i] = 10 * (i + 1)
	}
	opts := encoder.DefaultOptions()
	opts.BatchSize = 5
	for _, s := range strategies(opts) {
		t.Run(s.Name(), func(t *testing.T) {
			frames := testsupport.MarkedFrames(t, 48, 48, delays...)
			data, err := s.Encode(context.Background(), frames, nil)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			g := testsupport.DecodeGIF(t, data)
			if len(g.Image) != len(frames) {
				t.Fatalf("got %d frames, want %d", len(g.Image), len(frames))
			}
			x, y := testsupport.BodyPoint(48, 48)
			for i := range frames {
				got := testsupport.PixelAt(g, i, x, y)
				if !testsupport.Near(got, testsupport.ColorAt(i), colorTolerance) {
					t.Fatalf("frame %d body = %v, want about %v", i, got, testsupport.ColorAt(i))
				}
				if g.Delay[i] != i+1 {
					t.Fatalf("frame %d delay = %d, want %d", i, g.Delay[i], i+1)
				}
			}
		})
	}
}

func TestStrategiesShareCanvasAcrossMixedSizes(t *testing.T) {
	for _, s := range strategies(encoder.DefaultOptions()) {
		t.Run(s.Name(), func(t *testing.T) {
			frames := []frame.Frame{
				{Data: testsupport.PNG(t, testsupport.MarkedImage(64, 40, 0)), DelayMS: 100},
				{Data: testsupport.PNG(t, testsupport.MarkedImage(32, 40, 1)), DelayMS: 100},
				{Data: testsupport.PNG(t, testsupport.MarkedImage(128, 128, 2)), DelayMS: 100},
			}
			data, err := s.Encode(context.Background(), frames, nil)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			g := testsupport.DecodeGIF(t, data)
			for i, img := range g.Image {
				if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 40 {
					t.Fatalf("frame %d size %v, want 64x40", i, b)
				}
			}
		})
	}
}

func TestStrategiesHonorTargetSize(t *testing.T) {
	opts := encoder.DefaultOptions()
	opts.TargetWidth, opts.TargetHeight = 40, 30
	for _, s := range strategies(opts) {
		t.Run(s.Name(), func(t *testing.T) {
			data, err := s.Encode(context.Background(), testsupport.MarkedFrames(t, 80, 80, 100, 100), nil)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			g := testsupport.DecodeGIF(t, data)
			if g.Config.Width != 40 || g.Config.Height != 30 {
				t.Fatalf("unexpected screen %dx%d", g.Config.Width, g.Config.Height)
			}
		})
	}
}

func TestStrategiesReportMonotonicProgress(t *testing.T) {
	for _, s := range strategies(encoder.DefaultOptions()) {
		t.Run(s.Name(), func(t *testing.T) {
			var values []float64
			_, err := s.Encode(context.Background(), testsupport.MarkedFrames(t, 16, 16, 100, 100, 100, 100, 100, 100, 100), func(v float64) {
				values = append(values, v)
			})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if len(values) == 0 {
				t.Fatal("expected progress callbacks")
			}
			for i := 1; i < len(values); i++ {
				if values[i] < values[i-1] {
					t.Fatalf("progress went backwards: %v", values)
				}
			}
			for _, v := range values {
				if v < 0 || v > 1 {
					t.Fatalf("progress out of range: %v", values)
				}
			}
			if last := values[len(values)-1]; last < 0.999 {
				t.Fatalf("final progress %v, want 1", last)
			}
		})
	}
}

func TestStrictStrategiesAbortOnDecodeError(t *testing.T) {
	opts := encoder.DefaultOptions()
	for _, s := range []encoder.Strategy{encoder.NewFast(opts), encoder.NewStable(opts)} {
		t.Run(s.Name(), func(t *testing.T) {
			frames := testsupport.MarkedFrames(t, 16, 16, 100, 100, 100)
			frames[1].Data = []byte("corrupt")
			_, err := s.Encode(context.Background(), frames, nil)
			if err == nil {
				t.Fatal("expected failure")
			}
			if !errors.Is(err, encoder.ErrEncode) || !errors.Is(err, frame.ErrDecode) {
				t.Fatalf("expected encode and decode markers, got %v", err)
			}
			var encodeErr *encoder.EncodeError
			if !errors.As(err, &encodeErr) || encodeErr.Strategy != s.Name() {
				t.Fatalf("expected EncodeError from %s, got %v", s.Name(), err)
			}
			var decodeErr *frame.DecodeError
			if !errors.As(err, &decodeErr) || decodeErr.Index != 1 {
				t.Fatalf("expected DecodeError for frame 1, got %v", err)
			}
		})
	}
}

func TestSafetyNetSubstitutesBlankFrame(t *testing.T) {
	var logs bytes.Buffer
	opts := encoder.DefaultOptions()
	opts.Logger = slog.New(slog.NewJSONHandler(&logs, nil))

	frames := testsupport.MarkedFrames(t, 32, 32, 100, 100, 100)
	frames[1].Data = []byte("corrupt")

	data, err := encoder.NewSafetyNet(opts).Encode(context.Background(), frames, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g := testsupport.DecodeGIF(t, data)
	if len(g.Image) != 3 {
		t.Fatalf("got %d frames, want 3", len(g.Image))
	}
	body := testsupport.PixelAt(g, 1, 16, 8)
	band := testsupport.PixelAt(g, 1, 1, 31)
	if body != band {
		t.Fatalf("substituted frame is not uniform: body %v band %v", body, band)
	}
	if !testsupport.Near(testsupport.PixelAt(g, 2, 16, 8), testsupport.ColorAt(2), colorTolerance) {
		t.Fatal("frame after the substitution lost its content")
	}
	if !strings.Contains(logs.String(), "frame_substituted") {
		t.Fatalf("expected substitution warning, got %s", logs.String())
	}
}

func TestSafetyNetSurvivesCorruptFirstFrame(t *testing.T) {
	frames := testsupport.MarkedFrames(t, 24, 24, 100, 100)
	frames[0].Data = []byte("corrupt")
	data, err := encoder.NewSafetyNet(encoder.DefaultOptions()).Encode(context.Background(), frames, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g := testsupport.DecodeGIF(t, data)
	if g.Config.Width != 24 || len(g.Image) != 2 {
		t.Fatalf("unexpected output: %dx%d, %d frames", g.Config.Width, g.Config.Height, len(g.Image))
	}
}

func TestStrategiesRejectEmptyInputAndCancellation(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for _, s := range strategies(encoder.DefaultOptions()) {
		t.Run(s.Name(), func(t *testing.T) {
			if _, err := s.Encode(context.Background(), nil, nil); !errors.Is(err, encoder.ErrNoFrames) {
				t.Fatalf("expected ErrNoFrames, got %v", err)
			}
			frames := testsupport.MarkedFrames(t, 8, 8, 100, 100)
			if _, err := s.Encode(cancelled, frames, nil); !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
		})
	}
}

func TestStrategiesStopWhenCancelledMidRun(t *testing.T) {
	for _, s := range strategies(encoder.DefaultOptions()) {
		t.Run(s.Name(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			delays := make([]int, 24)
			for i := range delays {
				delays[i] = 100
			}
			frames := testsupport.MarkedFrames(t, 8, 8, delays...)
			var last float64
			_, err := s.Encode(ctx, frames, func(v float64) {
				last = v
				if v >= 0.25 {
					cancel()
				}
			})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if last >= 1 {
				t.Fatalf("strategy ran to completion after cancellation (progress %v)", last)
			}
		})
	}
}

func TestFastCapsConcurrentDecodesAtWorkers(t *testing.T) {
	var active, peak atomic.Int32
	restore := encoder.SetRenderForTests(func(n normalize.Normalizer, f frame.Frame, index, width, height int) (normalize.Frame, error) {
		cur := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		b, err := frame.Decode(f, index)
		if err != nil {
			return normalize.Frame{}, err
		}
		defer b.Release()
		return n.Normalize(b, width, height)
	})
	defer restore()

	opts := encoder.DefaultOptions()
	opts.BatchSize = 6
	opts.Workers = 2
	frames := testsupport.MarkedFrames(t, 8, 8, 100, 100, 100, 100, 100, 100, 100, 100)
	data, err := encoder.NewFast(opts).Encode(context.Background(), frames, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := peak.Load(); got < 1 || got > 2 {
		t.Fatalf("peak concurrent decodes = %d, want 1..2", got)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(g.Image) != len(frames) {
		t.Fatalf("decoded %d frames, want %d", len(g.Image), len(frames))
	}
}

func TestStrategiesDoNotMutateFrames(t *testing.T) {
	frames := testsupport.MarkedFrames(t, 16, 16, 100, 120)
	originals := make([][]byte, len(frames))
	for i, f := range frames {
		originals[i] = append([]byte(nil), f.Data...)
	}
	for _, s := range strategies(encoder.DefaultOptions()) {
		if _, err := s.Encode(context.Background(), frames, nil); err != nil {
			t.Fatalf("%s: %v", s.Name(), err)
		}
	}
	for i, f := range frames {
		if !bytes.Equal(f.Data, originals[i]) || f.DelayMS != []int{100, 120}[i] {
			t.Fatalf("frame %d was modified", i)
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range encoder.Names() {
		s, err := encoder.ByName(name, encoder.DefaultOptions())
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Fatalf("ByName(%q).Name() = %q", name, s.Name())
		}
	}
	if s, err := encoder.ByName("Safety-Net", encoder.DefaultOptions()); err != nil || s.Name() != encoder.NameSafetyNet {
		t.Fatalf("expected alias to resolve, got %v %v", s, err)
	}
	if _, err := encoder.ByName("turbo", encoder.DefaultOptions()); !errors.Is(err, encoder.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestFuncAdapter(t *testing.T) {
	want := errors.New("boom")
	s := encoder.Func{Label: "custom", Fn: func(context.Context, []frame.Frame, encoder.ProgressFunc) ([]byte, error) {
		return nil, want
	}}
	if s.Name() != "custom" {
		t.Fatalf("Name = %q", s.Name())
	}
	if _, err := s.Encode(context.Background(), nil, nil); !errors.Is(err, want) {
		t.Fatalf("expected wrapped function error, got %v", err)
	}
	if _, err := (encoder.Func{Label: "empty"}).Encode(context.Background(), nil, nil); !errors.Is(err, encoder.ErrEncode) {
		t.Fatalf("expected ErrEncode for missing function, got %v", err)
	}
}
