package encoder

import (
	"ugoira/internal/frame"
	"ugoira/internal/normalize"
)

// renderFrame is the decode-and-normalize step used by the fast strategy.
// It is a package-level variable so tests can observe concurrency.
var renderFrame = render

// SetRenderForTests overrides the fast strategy's per-frame render during tests.
func SetRenderForTests(fn func(normalize.Normalizer, frame.Frame, int, int, int) (normalize.Frame, error)) func() {
	previous := renderFrame
	renderFrame = fn
	return func() {
		renderFrame = previous
	}
}
