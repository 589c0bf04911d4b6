// Package quantize reduces normalized RGB frames to a palette of at most 256
// colors and maps pixels onto it.
package quantize

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"

	"ugoira/internal/normalize"
)

// MaxColors is the largest palette a GIF color table can hold.
const MaxColors = 256

// Palette is an ordered set of opaque colors, never longer than MaxColors.
type Palette []color.RGBA

// ColorPalette converts p for use with the image packages.
func (p Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = c
	}
	return out
}

// Equal reports whether both palettes hold the same colors in the same order.
func (p Palette) Equal(other Palette) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Build derives a palette from a representative frame with median cut.
// maxColors outside 1..256 is treated as 256. The result is never empty:
// a frame with no pixels yields a single-entry palette of fallback.
func Build(f normalize.Frame, maxColors int, fallback color.RGBA) Palette {
	if maxColors <= 0 || maxColors > MaxColors {
		maxColors = MaxColors
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.RGB) < f.Width*f.Height*3 {
		return Palette{opaque(fallback)}
	}

	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean}
	raw := q.Quantize(make(color.Palette, 0, maxColors), rgbImage(f))

	seen := make(map[color.RGBA]struct{}, len(raw))
	out := make(Palette, 0, len(raw))
	for _, c := range raw {
		rgba := opaque(color.RGBAModel.Convert(c).(color.RGBA))
		if _, dup := seen[rgba]; dup {
			continue
		}
		seen[rgba] = struct{}{}
		out = append(out, rgba)
		if len(out) == maxColors {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, opaque(fallback))
	}
	return out
}

// Apply maps every pixel of f to the index of its nearest palette entry.
func Apply(f normalize.Frame, p Palette) []byte {
	indices := make([]byte, f.Width*f.Height)
	if len(p) == 0 {
		return indices
	}
	cache := make(map[uint32]byte, 256)
	for i := range indices {
		o := i * 3
		r, g, b := f.RGB[o], f.RGB[o+1], f.RGB[o+2]
		key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
		idx, ok := cache[key]
		if !ok {
			idx = nearest(p, r, g, b)
			cache[key] = idx
		}
		indices[i] = idx
	}
	return indices
}

func nearest(p Palette, r, g, b uint8) byte {
	best, bestDist := 0, int(^uint(0)>>1)
	for i, c := range p {
		dr := int(c.R) - int(r)
		dg := int(c.G) - int(g)
		db := int(c.B) - int(b)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return byte(best)
}

func opaque(c color.RGBA) color.RGBA {
	c.A = 0xff
	return c
}

// rgbImage wraps f as an opaque RGBA image for the median-cut quantizer.
func rgbImage(f normalize.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for src, dst := 0, 0; src+2 < len(f.RGB) && dst+3 < len(img.Pix); src, dst = src+3, dst+4 {
		img.Pix[dst] = f.RGB[src]
		img.Pix[dst+1] = f.RGB[src+1]
		img.Pix[dst+2] = f.RGB[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img
}
