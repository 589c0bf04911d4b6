// Package encoder holds the interchangeable frame-sequence-to-GIF strategies.
//
// Each strategy runs the same pipeline (decode, normalize, quantize, write)
// with a different trade-off:
//   - Fast decodes and normalizes frames in small concurrent batches and
//     shares one palette across the animation.
//   - Stable processes one frame at a time on a fresh canvas, copies the
//     pixels before quantizing and gives every frame its own palette.
//   - SafetyNet materializes every frame as a complete, centered image and
//     substitutes a blank frame when one cannot be decoded.
//
// Strategies keep no state between calls; the converter package decides the
// order in which they are tried.
package encoder
