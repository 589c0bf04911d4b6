// Package main hosts the ugoira CLI entrypoint and command graph.
//
// The Cobra command tree converts ugoira frame bundles into GIFs (or
// re-bundled zips), lists and clears conversion history, reports directory
// health and scaffolds configuration. Configuration resolution and logging
// setup live here so the internal packages stay free of terminal concerns.
package main
