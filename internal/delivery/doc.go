// Package delivery saves finished conversions into the output directory.
//
// Files are named {author}_{title}.{ext} after sanitizing both parts. An
// existing file is never replaced unless overwrite is enabled; instead the
// name gains a " (n)" suffix. Writes are atomic and verified, and concurrent
// saves are serialized with a file lock so two jobs cannot pick the same name.
package delivery
