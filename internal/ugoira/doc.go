// Package ugoira reads and writes ugoira frame bundles.
//
// A bundle is a zip of numbered JPEG or PNG frames. Per-frame delays come
// from the site's metadata JSON, which is accepted as the raw API envelope,
// its body, or the animation.json file that some bundles carry. Extract turns
// a bundle into the ordered frame list the converter consumes; WriteBundle
// produces the zip form for callers that want frames instead of a GIF.
package ugoira
