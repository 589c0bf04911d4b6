// Package converter turns an ordered frame sequence into a single GIF by
// trying encoder strategies in priority order.
//
// The first strategy to succeed wins. Failures advance to the next strategy
// without retrying the same one, and only exhaustion of every strategy is
// reported to the caller as an AllStrategiesFailedError carrying the last
// cause. Progress from all attempts is folded into one non-decreasing value.
package converter
