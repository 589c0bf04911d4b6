package converter

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ugoira/internal/encoder"
	"ugoira/internal/frame"
	"ugoira/internal/gifwriter"
	"ugoira/internal/logging"
	"ugoira/internal/services"
)

// ErrAllStrategiesFailed marks a conversion where no strategy produced output.
var ErrAllStrategiesFailed = errors.New("all encoder strategies failed")

// Attempt records one failed strategy run.
type Attempt struct {
	Strategy string
	Duration time.Duration
	Err      error
}

// AllStrategiesFailedError is returned once every strategy has failed.
type AllStrategiesFailedError struct {
	Attempts []Attempt
}

func (e *AllStrategiesFailedError) Error() string {
	if e == nil || len(e.Attempts) == 0 {
		return ErrAllStrategiesFailed.Error()
	}
	last := e.Attempts[len(e.Attempts)-1]
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Strategy
	}
	return fmt.Sprintf("%s (tried %s): last strategy %s: %v",
		ErrAllStrategiesFailed, strings.Join(names, ", "), last.Strategy, last.Err)
}

// Unwrap exposes the marker and the last attempt's cause.
func (e *AllStrategiesFailedError) Unwrap() []error {
	if e == nil || len(e.Attempts) == 0 {
		return []error{ErrAllStrategiesFailed}
	}
	return []error{ErrAllStrategiesFailed, e.Attempts[len(e.Attempts)-1].Err}
}

// Last returns the final attempt.
func (e *AllStrategiesFailedError) Last() Attempt {
	if e == nil || len(e.Attempts) == 0 {
		return Attempt{}
	}
	return e.Attempts[len(e.Attempts)-1]
}

// Result is a finished conversion.
type Result struct {
	Data     []byte
	Size     int
	MIMEType string
	Strategy string
}

// Converter runs the strategy chain. It holds configuration only; every
// Convert call starts from scratch.
type Converter struct {
	opts       encoder.Options
	strategies []encoder.Strategy
	names      []string
	logger     *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithStrategies replaces the default chain. Use WithStrategyNames for
// configuration-driven ordering.
func WithStrategies(strategies ...encoder.Strategy) Option {
	return func(c *Converter) {
		c.strategies = append([]encoder.Strategy(nil), strategies...)
	}
}

// WithStrategyNames selects built-in strategies by name, in order.
func WithStrategyNames(names ...string) Option {
	return func(c *Converter) {
		c.names = append([]string(nil), names...)
	}
}

// WithLogger sets the logger used for attempts and passed to strategies.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithBatchSize sets the fast strategy batch size.
func WithBatchSize(n int) Option {
	return func(c *Converter) {
		c.opts.BatchSize = n
	}
}

// WithWorkers caps concurrent frame decodes in the fast strategy.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.opts.Workers = n
	}
}

// WithTarget fixes the canvas size instead of deriving it from frame 0.
func WithTarget(width, height int) Option {
	return func(c *Converter) {
		c.opts.TargetWidth = width
		c.opts.TargetHeight = height
	}
}

// WithMaxColors caps the palette size.
func WithMaxColors(n int) Option {
	return func(c *Converter) {
		c.opts.MaxColors = n
	}
}

// WithBackground sets the letterbox fill color.
func WithBackground(bg color.RGBA) Option {
	return func(c *Converter) {
		c.opts.Background = bg
	}
}

// New builds a converter. Unknown strategy names are reported by Convert.
func New(opts ...Option) *Converter {
	c := &Converter{opts: encoder.DefaultOptions()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.NewComponentLogger(c.logger, "converter")
	c.opts.Logger = c.logger
	return c
}

func (c *Converter) chain() ([]encoder.Strategy, error) {
	if len(c.strategies) > 0 {
		return c.strategies, nil
	}
	names := c.names
	if len(names) == 0 {
		names = encoder.Names()
	}
	out := make([]encoder.Strategy, 0, len(names))
	for _, name := range names {
		s, err := encoder.ByName(name, c.opts)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Convert encodes frames with the first strategy that succeeds. onProgress may
// be nil; when set it sees a non-decreasing value in [0,1].
func (c *Converter) Convert(ctx context.Context, frames []frame.Frame, onProgress encoder.ProgressFunc) (*Result, error) {
	if len(frames) == 0 {
		return nil, &encoder.EncodeError{Op: "convert", Err: encoder.ErrNoFrames}
	}
	if err := frame.Validate(frames); err != nil {
		return nil, &encoder.EncodeError{Op: "validate", Err: err}
	}
	strategies, err := c.chain()
	if err != nil {
		return nil, err
	}

	logger := logging.WithContext(ctx, c.logger)
	progress := newMonotonic(onProgress)
	failed := &AllStrategiesFailedError{}

	for i, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			failed.Attempts = append(failed.Attempts, Attempt{Strategy: strategy.Name(), Err: err})
			break
		}
		attemptCtx := services.WithStrategy(ctx, strategy.Name())
		attemptLogger := logging.WithContext(attemptCtx, c.logger)
		started := time.Now()
		data, err := strategy.Encode(attemptCtx, frames, progress.report)
		elapsed := time.Since(started)
		if err == nil && len(data) == 0 {
			err = &encoder.EncodeError{Strategy: strategy.Name(), Op: "finish", Err: errors.New("empty output")}
		}
		if err != nil {
			failed.Attempts = append(failed.Attempts, Attempt{Strategy: strategy.Name(), Duration: elapsed, Err: err})
			logging.WarnWithContext(attemptLogger, "encoder strategy failed", "strategy_failed",
				logging.Int("attempt", i+1),
				logging.Duration("duration", elapsed),
				logging.Error(err),
				logging.String(logging.FieldImpact, fallbackImpact(i, len(strategies))),
			)
			continue
		}

		progress.report(1)
		attemptLogger.Info("conversion complete",
			logging.Int("attempt", i+1),
			logging.Int("frame_count", len(frames)),
			logging.Int("bytes", len(data)),
			logging.Duration("duration", elapsed),
		)
		return &Result{
			Data:     data,
			Size:     len(data),
			MIMEType: gifwriter.MIMEType,
			Strategy: strategy.Name(),
		}, nil
	}

	logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
		logging.Int("attempts", len(failed.Attempts)),
		logging.Error(failed.Last().Err),
		logging.String(logging.FieldErrorHint, "inspect the frame files; every encoder rejected them"),
	)
	return nil, failed
}

func fallbackImpact(index, total int) string {
	if index+1 < total {
		return "falling back to next strategy"
	}
	return "no strategies left"
}

// monotonic clamps forwarded progress so restarts by a fallback strategy do
// not move the caller's value backwards.
type monotonic struct {
	mu   sync.Mutex
	last float64
	fn   encoder.ProgressFunc
}

func newMonotonic(fn encoder.ProgressFunc) *monotonic {
	return &monotonic{fn: fn, last: -1}
}

func (m *monotonic) report(value float64) {
	if m.fn == nil {
		return
	}
	value = min(max(value, 0), 1)
	m.mu.Lock()
	if value <= m.last {
		m.mu.Unlock()
		return
	}
	m.last = value
	m.mu.Unlock()
	m.fn(value)
}
