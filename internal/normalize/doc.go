// Package normalize renders decoded frames onto fixed-size RGB canvases.
//
// Every call allocates and background-fills its own canvas, so the pixels
// of one frame can never show through in the next. Scaling preserves aspect
// ratio and the unused area is letterboxed with the background color.
package normalize
