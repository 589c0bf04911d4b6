// Package frame defines the still-image frames that make up an ugoira and
// decodes them into RGBA bitmaps.
//
// A Frame is immutable once captured: encoders read Frame.Data and never
// write to it. Decoded bitmaps are scoped resources; callers release them as
// soon as normalization is done so peak memory stays bounded on long
// sequences of high-resolution frames.
package frame
