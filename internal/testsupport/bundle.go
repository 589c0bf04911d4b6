package testsupport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipEntry is one file placed in a generated archive.
type ZipEntry struct {
	Name string
	Data []byte
}

// Zip builds an in-memory archive holding entries in the given order.
func Zip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes an archive of entries to dir/name and returns its path.
func WriteZip(t testing.TB, dir, name string, entries ...ZipEntry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Zip(t, entries...), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return path
}

// FrameEntries returns n solid w×h PNG entries named 000000.png, 000001.png, ...
func FrameEntries(t testing.TB, w, h, n int) []ZipEntry {
	t.Helper()
	out := make([]ZipEntry, n)
	for i := range out {
		out[i] = ZipEntry{
			Name: frameEntryName(i),
			Data: PNG(t, MarkedImage(w, h, i)),
		}
	}
	return out
}

func frameEntryName(i int) string {
	return fmt.Sprintf("%06d.png", i)
}
