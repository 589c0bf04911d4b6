// Package progress keeps the latest progress report for each running
// conversion, keyed by conversion id.
//
// Entries are kept until Prune removes those not updated within the
// configured expiry, so a caller polling for a finished job still sees its
// terminal phase for a while.
package progress
