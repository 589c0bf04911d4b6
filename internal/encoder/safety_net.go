package encoder

import (
	"context"
	"image/gif"
	"time"

	xdraw "golang.org/x/image/draw"

	"ugoira/internal/frame"
	"ugoira/internal/gifwriter"
	"ugoira/internal/logging"
	"ugoira/internal/normalize"
	"ugoira/internal/quantize"
)

// SafetyNet renders every frame as a complete, centered image on a freshly
// filled canvas. A frame that cannot be decoded becomes a blank frame
// instead of failing the run.
type SafetyNet struct {
	opts Options
}

// NewSafetyNet returns the last-resort strategy.
func NewSafetyNet(opts Options) *SafetyNet {
	return &SafetyNet{opts: opts.withDefaults("encoder.safety_net")}
}

// Name implements Strategy.
func (s *SafetyNet) Name() string { return NameSafetyNet }

// Encode implements Strategy.
func (s *SafetyNet) Encode(ctx context.Context, frames []frame.Frame, progress ProgressFunc) ([]byte, error) {
	if len(frames) == 0 {
		return nil, encodeErr(NameSafetyNet, "validate", ErrNoFrames)
	}
	started := time.Now()
	width, height, err := s.canvasSize(frames)
	if err != nil {
		return nil, encodeErr(NameSafetyNet, "canvas", err)
	}

	norm := normalize.Normalizer{
		Anchor:     normalize.AnchorCenter,
		Background: s.opts.Background,
		Scaler:     xdraw.CatmullRom,
	}

	total := len(frames)
	full := make([]normalize.Frame, 0, total)
	substituted := 0
	for i := range frames {
		if err := frameCheckpoint(ctx, i); err != nil {
			return nil, encodeErr(NameSafetyNet, "materialize", err)
		}
		out, err := render(norm, frames[i], i, width, height)
		if err != nil {
			substituted++
			logging.WarnWithContext(s.opts.Logger, "frame replaced with blank canvas", "frame_substituted",
				logging.Int("frame", i),
				logging.String("frame_name", frame.Label(frames[i], i)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the frame bytes in the source bundle"),
				logging.String(logging.FieldImpact, "frame shows only background color"),
			)
			out = norm.Blank(width, height)
		}
		full = append(full, out)
		report(progress, float64(i+1)/float64(total)*0.7)
	}

	palette := quantize.Build(full[0], s.opts.MaxColors, s.opts.Background)
	writer, err := gifwriter.New(width, height, palette)
	if err != nil {
		return nil, encodeErr(NameSafetyNet, "writer", err)
	}
	for i := range full {
		indices := quantize.Apply(full[i], palette)
		full[i] = normalize.Frame{}
		if err := writer.WriteFrame(gifwriter.IndexedFrame{
			Indices:  indices,
			DelayMS:  frames[i].DelayMS,
			Disposal: gif.DisposalBackground,
		}); err != nil {
			return nil, encodeErr(NameSafetyNet, "write", err)
		}
		report(progress, 0.7+float64(i+1)/float64(total)*0.3)
		if err := frameCheckpoint(ctx, i); err != nil {
			return nil, encodeErr(NameSafetyNet, "write", err)
		}
	}

	data, err := writer.Finish()
	if err != nil {
		return nil, encodeErr(NameSafetyNet, "finish", err)
	}
	s.opts.Logger.Debug("safety net encode finished",
		logging.Int("bytes", len(data)),
		logging.Int("substituted_frames", substituted),
		logging.Duration("duration", time.Since(started)),
	)
	return data, nil
}

// canvasSize falls forward to the first frame with a readable header so a
// corrupt frame 0 does not sink the whole run.
func (s *SafetyNet) canvasSize(frames []frame.Frame) (int, int, error) {
	var firstErr error
	for i := range frames {
		width, height, err := canvasSize(frames[i:], s.opts)
		if err == nil {
			if i > 0 {
				s.opts.Logger.Debug("canvas sized from later frame", logging.Int("frame", i))
			}
			return width, height, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return 0, 0, firstErr
}
