package main

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"ugoira/internal/progress"
)

// conversionBar renders job progress on a terminal. A nil bar is valid and
// ignores every call, which is what non-TTY output gets.
type conversionBar struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	phase progress.Phase
}

func newConversionBar(w io.Writer) *conversionBar {
	if !shouldColorize(w) {
		return nil
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(string(progress.PhaseFetching)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &conversionBar{bar: bar}
}

func (b *conversionBar) observe(e progress.Entry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.Phase != b.phase {
		b.phase = e.Phase
		b.bar.Describe(string(e.Phase))
		b.bar.Reset()
	}
	_ = b.bar.Set(int(math.Round(e.Percent)))
}

func (b *conversionBar) finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}
