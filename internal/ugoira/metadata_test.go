package ugoira_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ugoira/internal/ugoira"
)

func TestParseMetadataEnvelope(t *testing.T) {
	doc := `{"error":false,"message":"","body":{"illustId":12345,"src":"https://example.net/a.zip","originalSrc":"https://example.net/b.zip","mime_type":"image/jpeg","frames":[{"file":"000000.jpg","delay":80},{"file":"000001.jpg","delay":120}]}}`
	meta, err := ugoira.ParseMetadata([]byte(doc))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if meta.IllustID != "12345" {
		t.Fatalf("illust id = %q", meta.IllustID)
	}
	if n, ok := meta.IllustID.Int64(); !ok || n != 12345 {
		t.Fatalf("Int64 = %d, %v", n, ok)
	}
	if meta.MIMEType != "image/jpeg" || meta.OriginalSrc == "" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	got := meta.Delays()
	if len(got) != 2 || got[0] != 80 || got[1] != 120 {
		t.Fatalf("delays = %v", got)
	}
}

func TestParseMetadataBareBodyAndStringID(t *testing.T) {
	meta, err := ugoira.ParseMetadata([]byte(`{"illustId":"777","frames":[{"file":"a.png","delay":50}]}`))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if meta.IllustID.String() != "777" || len(meta.Frames) != 1 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestParseMetadataAPIError(t *testing.T) {
	_, err := ugoira.ParseMetadata([]byte(`{"error":true,"message":"not found","body":[]}`))
	if !errors.Is(err, ugoira.ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
}

func TestParseMetadataRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "   ",
		"not json":       "{",
		"negative delay": `{"frames":[{"file":"a.png","delay":-5}]}`,
		"frames type":    `{"frames":"nope"}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ugoira.ParseMetadata([]byte(doc)); !errors.Is(err, ugoira.ErrMetadata) {
				t.Fatalf("expected ErrMetadata, got %v", err)
			}
		})
	}
}

func TestReadMetadataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	data, err := ugoira.MarshalAnimation([]ugoira.FrameInfo{{File: "0.png", Delay: 40}})
	if err != nil {
		t.Fatalf("MarshalAnimation: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	meta, err := ugoira.ReadMetadataFile(path)
	if err != nil {
		t.Fatalf("ReadMetadataFile: %v", err)
	}
	if len(meta.Frames) != 1 || meta.Frames[0].Delay != 40 {
		t.Fatalf("unexpected frames %+v", meta.Frames)
	}

	if _, err := ugoira.ReadMetadataFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
