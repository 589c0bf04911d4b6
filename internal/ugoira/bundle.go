package ugoira

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/maruel/natural"

	"ugoira/internal/frame"
)

// BundleMIMEType is the content type of WriteBundle output.
const BundleMIMEType = "application/zip"

// MaxEntryBytes caps a single decompressed frame.
const MaxEntryBytes = 64 << 20

var (
	// ErrBundle marks archives that cannot be read.
	ErrBundle = errors.New("invalid ugoira bundle")
	// ErrNoImages is returned when a bundle holds no frame images.
	ErrNoImages = errors.New("bundle contains no frame images")
)

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// ExtractOptions tunes Extract.
type ExtractOptions struct {
	// Metadata supplies delays. When nil, an animation.json inside the
	// bundle is used if present.
	Metadata *Metadata
	// DefaultDelayMS replaces missing or zero delays. Zero means frame.DefaultDelayMS.
	DefaultDelayMS int
}

// ExtractFile opens the bundle at path and extracts its frames.
func ExtractFile(ctx context.Context, path string, opts ExtractOptions) ([]frame.Frame, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat bundle: %w", err)
	}
	return Extract(ctx, f, info.Size(), opts)
}

// Extract reads frame images from a zip in natural file-name order and
// pairs them with delays: by file name first, by position second, and
// finally the default delay. It returns the metadata the delays came from.
func Extract(ctx context.Context, r io.ReaderAt, size int64, opts ExtractOptions) ([]frame.Frame, *Metadata, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBundle, err)
	}

	defaultDelay := opts.DefaultDelayMS
	if defaultDelay <= 0 {
		defaultDelay = frame.DefaultDelayMS
	}

	meta := opts.Metadata
	var entries []*zip.File
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := zf.Name
		base := path.Base(name)
		if strings.HasPrefix(base, ".") || strings.HasPrefix(name, "__MACOSX/") {
			continue
		}
		if meta == nil && strings.EqualFold(base, MetadataFileName) {
			data, err := readEntry(zf)
			if err != nil {
				return nil, nil, err
			}
			if meta, err = ParseMetadata(data); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		if _, ok := imageExts[strings.ToLower(path.Ext(base))]; ok {
			entries = append(entries, zf)
		}
	}
	if len(entries) == 0 {
		return nil, nil, ErrNoImages
	}
	slices.SortStableFunc(entries, func(a, b *zip.File) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		default:
			return 0
		}
	})

	byName := make(map[string]int)
	if meta != nil {
		for _, fi := range meta.Frames {
			byName[path.Base(fi.File)] = fi.Delay
		}
	}

	frames := make([]frame.Frame, 0, len(entries))
	for i, zf := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		data, err := readEntry(zf)
		if err != nil {
			return nil, nil, err
		}
		base := path.Base(zf.Name)
		delay, ok := byName[base]
		if !ok && meta != nil && i < len(meta.Frames) {
			delay = meta.Frames[i].Delay
		}
		if delay <= 0 {
			delay = defaultDelay
		}
		frames = append(frames, frame.Frame{Data: data, DelayMS: delay, Name: base})
	}
	return frames, meta, nil
}

func readEntry(zf *zip.File) ([]byte, error) {
	if zf.UncompressedSize64 > MaxEntryBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrBundle, zf.Name, zf.UncompressedSize64, MaxEntryBytes)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrBundle, zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrBundle, zf.Name, err)
	}
	if len(data) > MaxEntryBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBundle, zf.Name, MaxEntryBytes)
	}
	return data, nil
}

// WriteBundle zips frames together with an animation.json delay table.
// Frames without a name are numbered with an extension sniffed from their bytes.
func WriteBundle(w io.Writer, frames []frame.Frame) error {
	if len(frames) == 0 {
		return ErrNoImages
	}
	zw := zip.NewWriter(w)
	table := make([]FrameInfo, 0, len(frames))
	used := make(map[string]struct{}, len(frames))
	for i, f := range frames {
		name := bundleEntryName(f, i)
		if _, dup := used[name]; dup {
			name = fmt.Sprintf("%06d_%s", i, name)
		}
		used[name] = struct{}{}

		// Frame images are already compressed.
		hdr := &zip.FileHeader{Name: name, Method: zip.Store}
		hdr.SetMode(0o644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("bundle %s: %w", name, err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(f.Data)); err != nil {
			return fmt.Errorf("bundle %s: %w", name, err)
		}
		table = append(table, FrameInfo{File: name, Delay: f.DelayMS})
	}

	doc, err := MarshalAnimation(table)
	if err != nil {
		return fmt.Errorf("bundle %s: %w", MetadataFileName, err)
	}
	mw, err := zw.Create(MetadataFileName)
	if err != nil {
		return fmt.Errorf("bundle %s: %w", MetadataFileName, err)
	}
	if _, err := mw.Write(doc); err != nil {
		return fmt.Errorf("bundle %s: %w", MetadataFileName, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish bundle: %w", err)
	}
	return nil
}

func bundleEntryName(f frame.Frame, index int) string {
	if name := path.Base(strings.ReplaceAll(strings.TrimSpace(f.Name), "\\", "/")); name != "" && name != "." && name != "/" {
		return name
	}
	return fmt.Sprintf("%06d%s", index, sniffExt(f.Data))
}

func sniffExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".bin"
	}
}
