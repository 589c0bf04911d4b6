package encoder

import (
	"context"
	"image/gif"
	"time"

	"ugoira/internal/frame"
	"ugoira/internal/gifwriter"
	"ugoira/internal/logging"
	"ugoira/internal/normalize"
	"ugoira/internal/quantize"
)

// Stable processes frames strictly one at a time. Each frame is drawn on its
// own canvas, copied, and quantized against its own palette; the first
// frame's palette doubles as the global color table.
type Stable struct {
	opts Options
}

// NewStable returns the sequential strategy.
func NewStable(opts Options) *Stable {
	return &Stable{opts: opts.withDefaults("encoder.stable")}
}

// Name implements Strategy.
func (s *Stable) Name() string { return NameStable }

// Encode implements Strategy.
func (s *Stable) Encode(ctx context.Context, frames []frame.Frame, progress ProgressFunc) ([]byte, error) {
	if len(frames) == 0 {
		return nil, encodeErr(NameStable, "validate", ErrNoFrames)
	}
	started := time.Now()
	width, height, err := canvasSize(frames, s.opts)
	if err != nil {
		return nil, encodeErr(NameStable, "canvas", err)
	}

	norm := normalize.New(normalize.AnchorTopLeft)
	norm.Background = s.opts.Background

	total := len(frames)
	var writer *gifwriter.Writer
	for i := range frames {
		if err := frameCheckpoint(ctx, i); err != nil {
			return nil, encodeErr(NameStable, "render", err)
		}
		drawn, err := render(norm, frames[i], i, width, height)
		if err != nil {
			return nil, encodeErr(NameStable, "render", err)
		}
		// The writer only ever sees the copy.
		snapshot := drawn.Clone()
		drawn = normalize.Frame{}

		palette := quantize.Build(snapshot, s.opts.MaxColors, s.opts.Background)
		if writer == nil {
			writer, err = gifwriter.New(width, height, palette)
			if err != nil {
				return nil, encodeErr(NameStable, "writer", err)
			}
		}
		if err := writer.WriteFrame(gifwriter.IndexedFrame{
			Indices:  quantize.Apply(snapshot, palette),
			Palette:  palette,
			DelayMS:  frames[i].DelayMS,
			Disposal: gif.DisposalBackground,
		}); err != nil {
			return nil, encodeErr(NameStable, "write", err)
		}
		report(progress, float64(i+1)/float64(total)*0.8)
		s.opts.Logger.Debug("stable frame processed",
			logging.Int("frame", i+1),
			logging.Int("frames", total),
			logging.Int("palette_colors", len(palette)),
		)
	}

	data, err := writer.Finish()
	if err != nil {
		return nil, encodeErr(NameStable, "finish", err)
	}
	report(progress, 1)
	s.opts.Logger.Debug("stable encode finished",
		logging.Int("bytes", len(data)),
		logging.Int("local_palettes", writer.LocalPalettes()),
		logging.Duration("duration", time.Since(started)),
	)
	return data, nil
}
