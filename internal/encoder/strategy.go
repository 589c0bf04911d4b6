package encoder

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"runtime"
	"strings"

	"ugoira/internal/frame"
	"ugoira/internal/logging"
	"ugoira/internal/normalize"
	"ugoira/internal/quantize"
)

// Strategy names as they appear in configuration and logs.
const (
	NameFast      = "fast"
	NameStable    = "stable"
	NameSafetyNet = "safety_net"
)

// DefaultBatchSize is the number of frames the fast strategy decodes together.
const DefaultBatchSize = 5

// writeCheckpointEvery controls how often the write loops yield.
const writeCheckpointEvery = 10

// ProgressFunc receives a completion fraction in [0,1].
type ProgressFunc func(float64)

// Strategy turns an ordered frame sequence into a GIF byte stream.
type Strategy interface {
	Name() string
	Encode(ctx context.Context, frames []frame.Frame, progress ProgressFunc) ([]byte, error)
}

var (
	// ErrEncode marks a strategy failure.
	ErrEncode = errors.New("encode error")
	// ErrNoFrames is returned for an empty frame sequence.
	ErrNoFrames = errors.New("no frames")
	// ErrUnknownStrategy is returned by ByName for unrecognized names.
	ErrUnknownStrategy = errors.New("unknown encoder strategy")
)

// EncodeError describes where a strategy gave up.
type EncodeError struct {
	Strategy string
	Op       string
	Err      error
}

func (e *EncodeError) Error() string {
	if e == nil {
		return ErrEncode.Error()
	}
	parts := make([]string, 0, 3)
	if e.Strategy != "" {
		parts = append(parts, e.Strategy)
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return ErrEncode.Error()
	}
	return fmt.Sprintf("%s: %s", ErrEncode, strings.Join(parts, ": "))
}

func (e *EncodeError) Unwrap() []error {
	if e == nil || e.Err == nil {
		return []error{ErrEncode}
	}
	return []error{ErrEncode, e.Err}
}

func encodeErr(strategy, op string, err error) error {
	return &EncodeError{Strategy: strategy, Op: op, Err: err}
}

// Options carries the settings every strategy understands.
type Options struct {
	// BatchSize bounds how many frames the fast strategy decodes at once.
	BatchSize int
	// Workers caps concurrent decodes within a batch. Zero or less means
	// GOMAXPROCS.
	Workers int
	// TargetWidth and TargetHeight override the canvas derived from frame 0.
	TargetWidth  int
	TargetHeight int
	// MaxColors caps palette size (1..256).
	MaxColors  int
	Background color.RGBA
	Logger     *slog.Logger
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:  DefaultBatchSize,
		MaxColors:  quantize.MaxColors,
		Background: normalize.White,
	}
}

func (o Options) withDefaults(component string) Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.MaxColors <= 0 || o.MaxColors > quantize.MaxColors {
		o.MaxColors = quantize.MaxColors
	}
	if o.Background == (color.RGBA{}) {
		o.Background = normalize.White
	}
	o.Background.A = 0xff
	o.Logger = logging.NewComponentLogger(o.Logger, component)
	return o
}

// ByName builds the strategy registered under name.
func ByName(name string, opts Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameFast:
		return NewFast(opts), nil
	case NameStable:
		return NewStable(opts), nil
	case NameSafetyNet, "safety-net", "safetynet":
		return NewSafetyNet(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Names lists the built-in strategies in their default priority order.
func Names() []string {
	return []string{NameFast, NameStable, NameSafetyNet}
}

// Func adapts a plain function to Strategy.
type Func struct {
	Label string
	Fn    func(ctx context.Context, frames []frame.Frame, progress ProgressFunc) ([]byte, error)
}

// Name implements Strategy.
func (f Func) Name() string { return f.Label }

// Encode implements Strategy.
func (f Func) Encode(ctx context.Context, frames []frame.Frame, progress ProgressFunc) ([]byte, error) {
	if f.Fn == nil {
		return nil, encodeErr(f.Label, "encode", errors.New("strategy has no implementation"))
	}
	return f.Fn(ctx, frames, progress)
}

func report(progress ProgressFunc, value float64) {
	if progress == nil {
		return
	}
	progress(min(max(value, 0), 1))
}

// checkpoint hands the processor back to the scheduler between units of
// work and surfaces cancellation.
func checkpoint(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// frameCheckpoint is the per-frame check for long loops: it yields every
// writeCheckpointEvery frames and only reads ctx otherwise.
func frameCheckpoint(ctx context.Context, i int) error {
	if i%writeCheckpointEvery == 0 {
		return checkpoint(ctx)
	}
	return ctx.Err()
}

// canvasSize sizes the conversion canvas from frame 0's header.
func canvasSize(frames []frame.Frame, opts Options) (int, int, error) {
	if opts.TargetWidth > 0 && opts.TargetHeight > 0 {
		return opts.TargetWidth, opts.TargetHeight, nil
	}
	w, h, err := frame.DecodeConfig(frames[0], 0)
	if err != nil {
		return 0, 0, err
	}
	return normalize.CanvasSize(w, h, opts.TargetWidth, opts.TargetHeight)
}

// render decodes f and draws it on a fresh canvas. The bitmap is released on
// every path.
func render(n normalize.Normalizer, f frame.Frame, index, width, height int) (normalize.Frame, error) {
	bitmap, err := frame.Decode(f, index)
	if err != nil {
		return normalize.Frame{}, err
	}
	defer bitmap.Release()
	return n.Normalize(bitmap, width, height)
}
