package ugoira_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"ugoira/internal/frame"
	"ugoira/internal/testsupport"
	"ugoira/internal/ugoira"
)

func extract(t *testing.T, data []byte, opts ugoira.ExtractOptions) ([]frame.Frame, *ugoira.Metadata, error) {
	t.Helper()
	return ugoira.Extract(context.Background(), bytes.NewReader(data), int64(len(data)), opts)
}

func TestExtractNaturalOrderAndDelays(t *testing.T) {
	png := testsupport.SolidPNG(t, 4, 4, testsupport.ColorAt(0))
	data := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "10.png", Data: png},
		testsupport.ZipEntry{Name: "2.png", Data: png},
		testsupport.ZipEntry{Name: "1.png", Data: png},
		testsupport.ZipEntry{Name: "readme.txt", Data: []byte("skip")},
		testsupport.ZipEntry{Name: "__MACOSX/._1.png", Data: []byte("junk")},
	)
	meta := &ugoira.Metadata{Frames: []ugoira.FrameInfo{
		{File: "1.png", Delay: 30},
		{File: "2.png", Delay: 0},
		{File: "10.png", Delay: 90},
	}}

	frames, gotMeta, err := extract(t, data, ugoira.ExtractOptions{Metadata: meta, DefaultDelayMS: 70})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if gotMeta != meta {
		t.Fatal("expected supplied metadata to be returned")
	}
	wantNames := []string{"1.png", "2.png", "10.png"}
	wantDelays := []int{30, 70, 90}
	if len(frames) != len(wantNames) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantNames))
	}
	for i, f := range frames {
		if f.Name != wantNames[i] || f.DelayMS != wantDelays[i] {
			t.Fatalf("frame %d = %s/%d, want %s/%d", i, f.Name, f.DelayMS, wantNames[i], wantDelays[i])
		}
		if !bytes.Equal(f.Data, png) {
			t.Fatalf("frame %d data mismatch", i)
		}
	}
}

func TestExtractPositionalDelaysAndDefault(t *testing.T) {
	data := testsupport.Zip(t, testsupport.FrameEntries(t, 4, 4, 3)...)
	meta := &ugoira.Metadata{Frames: []ugoira.FrameInfo{
		{File: "renamed_a.jpg", Delay: 15},
		{File: "renamed_b.jpg", Delay: 25},
	}}
	frames, _, err := extract(t, data, ugoira.ExtractOptions{Metadata: meta})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []int{15, 25, frame.DefaultDelayMS}
	for i, f := range frames {
		if f.DelayMS != want[i] {
			t.Fatalf("frame %d delay = %d, want %d", i, f.DelayMS, want[i])
		}
	}
}

func TestExtractUsesEmbeddedAnimationJSON(t *testing.T) {
	entries := testsupport.FrameEntries(t, 4, 4, 2)
	doc, err := ugoira.MarshalAnimation([]ugoira.FrameInfo{
		{File: entries[0].Name, Delay: 11},
		{File: entries[1].Name, Delay: 22},
	})
	if err != nil {
		t.Fatalf("MarshalAnimation: %v", err)
	}
	entries = append(entries, testsupport.ZipEntry{Name: ugoira.MetadataFileName, Data: doc})

	frames, meta, err := extract(t, testsupport.Zip(t, entries...), ugoira.ExtractOptions{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta == nil || len(meta.Frames) != 2 {
		t.Fatalf("expected embedded metadata, got %+v", meta)
	}
	if frames[0].DelayMS != 11 || frames[1].DelayMS != 22 {
		t.Fatalf("delays = %d,%d", frames[0].DelayMS, frames[1].DelayMS)
	}
}

func TestExtractErrors(t *testing.T) {
	if _, _, err := extract(t, []byte("not a zip"), ugoira.ExtractOptions{}); !errors.Is(err, ugoira.ErrBundle) {
		t.Fatalf("expected ErrBundle, got %v", err)
	}
	empty := testsupport.Zip(t, testsupport.ZipEntry{Name: "notes.txt", Data: []byte("x")})
	if _, _, err := extract(t, empty, ugoira.ExtractOptions{}); !errors.Is(err, ugoira.ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	badMeta := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "0.png", Data: testsupport.SolidPNG(t, 2, 2, testsupport.ColorAt(1))},
		testsupport.ZipEntry{Name: ugoira.MetadataFileName, Data: []byte("{")},
	)
	if _, _, err := extract(t, badMeta, ugoira.ExtractOptions{}); !errors.Is(err, ugoira.ErrMetadata) {
		t.Fatalf("expected ErrMetadata, got %v", err)
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	data := testsupport.Zip(t, testsupport.FrameEntries(t, 4, 4, 2)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := ugoira.Extract(ctx, bytes.NewReader(data), int64(len(data)), ugoira.ExtractOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractFile(t *testing.T) {
	path := testsupport.WriteZip(t, t.TempDir(), "bundle.zip", testsupport.FrameEntries(t, 6, 6, 4)...)
	frames, _, err := ugoira.ExtractFile(context.Background(), path, ugoira.ExtractOptions{DefaultDelayMS: 60})
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	if frames[3].DelayMS != 60 {
		t.Fatalf("default delay = %d, want 60", frames[3].DelayMS)
	}
	if _, _, err := ugoira.ExtractFile(context.Background(), path+".missing", ugoira.ExtractOptions{}); err == nil {
		t.Fatal("expected open error")
	}
}

func TestWriteBundleRoundTrip(t *testing.T) {
	src := testsupport.Frames(t, 5, 5, 40, 80, 120)
	src[1].Name = ""

	var buf bytes.Buffer
	if err := ugoira.WriteBundle(&buf, src); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	frames, meta, err := extract(t, buf.Bytes(), ugoira.ExtractOptions{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if meta == nil || len(meta.Frames) != 3 {
		t.Fatalf("expected animation.json with 3 frames, got %+v", meta)
	}
	if meta.Frames[1].File != "000001.png" {
		t.Fatalf("unnamed frame entry = %q", meta.Frames[1].File)
	}
	byName := make(map[string]frame.Frame, len(frames))
	for _, f := range frames {
		byName[f.Name] = f
	}
	for i, info := range meta.Frames {
		f, ok := byName[info.File]
		if !ok {
			t.Fatalf("entry %s missing from extracted frames", info.File)
		}
		if f.DelayMS != src[i].DelayMS || !bytes.Equal(f.Data, src[i].Data) {
			t.Fatalf("frame %s mismatch", info.File)
		}
	}

	if err := ugoira.WriteBundle(&buf, nil); !errors.Is(err, ugoira.ErrNoImages) {
		t.Fatalf("expected ErrNoImages for empty input, got %v", err)
	}
}
