// Package textutil provides text helpers for building safe file names.
//
// Names are NFC-normalized so visually identical titles typed on different
// platforms map to the same bytes, characters that common filesystems reject
// are replaced, and overly long names are cut on rune boundaries.
package textutil
