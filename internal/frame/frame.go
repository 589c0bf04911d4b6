package frame

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultDelayMS is the display duration used when the site metadata omits a
// per-frame delay.
const DefaultDelayMS = 100

// Frame is one still image of an animation plus its display duration.
type Frame struct {
	Data    []byte
	DelayMS int
	Name    string
}

// ErrNegativeDelay reports a frame whose delay is below zero.
var ErrNegativeDelay = errors.New("frame delay must not be negative")

// Validate checks the invariants every frame sequence must satisfy before it
// is handed to an encoder. An empty sequence is valid here; rejecting it is
// the converter's job.
func Validate(frames []Frame) error {
	for i, f := range frames {
		if f.DelayMS < 0 {
			return fmt.Errorf("frame %d (%s): %w", i, Label(f, i), ErrNegativeDelay)
		}
	}
	return nil
}

// Label returns a human readable identifier for log lines and errors.
func Label(f Frame, index int) string {
	if name := strings.TrimSpace(f.Name); name != "" {
		return name
	}
	return fmt.Sprintf("frame_%04d", index)
}

// WithDefaultDelay returns delay when positive and DefaultDelayMS otherwise.
func WithDefaultDelay(delay int) int {
	if delay > 0 {
		return delay
	}
	return DefaultDelayMS
}
