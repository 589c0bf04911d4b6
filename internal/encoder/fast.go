package encoder

import (
	"context"
	"image/gif"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ugoira/internal/frame"
	"ugoira/internal/gifwriter"
	"ugoira/internal/logging"
	"ugoira/internal/normalize"
	"ugoira/internal/quantize"
)

// Fast decodes frames in concurrent batches and encodes them against one
// palette built from the first frame.
type Fast struct {
	opts Options
}

// NewFast returns the batched strategy.
func NewFast(opts Options) *Fast {
	return &Fast{opts: opts.withDefaults("encoder.fast")}
}

// Name implements Strategy.
func (s *Fast) Name() string { return NameFast }

// Encode implements Strategy.
func (s *Fast) Encode(ctx context.Context, frames []frame.Frame, progress ProgressFunc) ([]byte, error) {
	if len(frames) == 0 {
		return nil, encodeErr(NameFast, "validate", ErrNoFrames)
	}
	started := time.Now()
	width, height, err := canvasSize(frames, s.opts)
	if err != nil {
		return nil, encodeErr(NameFast, "canvas", err)
	}
	s.opts.Logger.Debug("fast encode started",
		logging.Int("frames", len(frames)),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Int("batch_size", s.opts.BatchSize),
		logging.Int("workers", s.opts.Workers),
	)

	norm := normalize.New(normalize.AnchorTopLeft)
	norm.Background = s.opts.Background

	total := len(frames)
	processed := make([]normalize.Frame, total)
	sem := semaphore.NewWeighted(int64(min(s.opts.Workers, s.opts.BatchSize)))
	for start := 0; start < total; start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, total)
		if err := s.renderBatch(ctx, sem, norm, frames, processed, start, end, width, height); err != nil {
			return nil, encodeErr(NameFast, "render", err)
		}
		report(progress, float64(end)/float64(total)*0.7)
		if err := checkpoint(ctx); err != nil {
			return nil, encodeErr(NameFast, "render", err)
		}
	}

	palette := quantize.Build(processed[0], s.opts.MaxColors, s.opts.Background)
	writer, err := gifwriter.New(width, height, palette)
	if err != nil {
		return nil, encodeErr(NameFast, "writer", err)
	}
	for i := range processed {
		indices := quantize.Apply(processed[i], palette)
		processed[i] = normalize.Frame{}
		if err := writer.WriteFrame(gifwriter.IndexedFrame{
			Indices:  indices,
			DelayMS:  frames[i].DelayMS,
			Disposal: gif.DisposalBackground,
		}); err != nil {
			return nil, encodeErr(NameFast, "write", err)
		}
		report(progress, 0.7+float64(i+1)/float64(total)*0.3)
		if err := frameCheckpoint(ctx, i); err != nil {
			return nil, encodeErr(NameFast, "write", err)
		}
	}

	data, err := writer.Finish()
	if err != nil {
		return nil, encodeErr(NameFast, "finish", err)
	}
	s.opts.Logger.Debug("fast encode finished",
		logging.Int("bytes", len(data)),
		logging.Int("palette_colors", len(palette)),
		logging.Duration("duration", time.Since(started)),
	)
	return data, nil
}

// renderBatch fills processed[start:end]. Completion order inside the batch
// does not matter because each goroutine owns its slot. sem holds at most
// Workers slots, so a batch larger than that waits for running decodes.
func (s *Fast) renderBatch(
	ctx context.Context,
	sem *semaphore.Weighted,
	norm normalize.Normalizer,
	frames []frame.Frame,
	processed []normalize.Frame,
	start, end, width, height int,
) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := start; i < end; i++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			out, err := renderFrame(norm, frames[i], i, width, height)
			if err != nil {
				return err
			}
			processed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
