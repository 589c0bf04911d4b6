// Package preflight provides readiness checks for the filesystem paths the
// converter writes to.
//
// The CLI "ugoira status" command prints every result, and the convert
// workflow runs RunAll before doing any work so a missing or read-only output
// directory is reported before frames are decoded.
package preflight
