package ugoira

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MetadataFileName is the delay table stored inside bundles written by WriteBundle.
const MetadataFileName = "animation.json"

var (
	// ErrMetadata marks metadata that cannot be parsed.
	ErrMetadata = errors.New("invalid ugoira metadata")
	// ErrAPI is returned when the metadata envelope reports an error.
	ErrAPI = errors.New("ugoira metadata request failed")
)

// FrameInfo is one entry of the metadata frame table.
type FrameInfo struct {
	File  string `json:"file"`
	Delay int    `json:"delay"`
}

// ID accepts both numeric and string identifiers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("illust id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Metadata describes one ugoira artwork.
type Metadata struct {
	IllustID    ID          `json:"illustId,omitempty"`
	Src         string      `json:"src,omitempty"`
	OriginalSrc string      `json:"originalSrc,omitempty"`
	MIMEType    string      `json:"mime_type,omitempty"`
	Frames      []FrameInfo `json:"frames"`
}

// Delays returns the frame delays in table order.
func (m *Metadata) Delays() []int {
	if m == nil {
		return nil
	}
	out := make([]int, len(m.Frames))
	for i, f := range m.Frames {
		out[i] = f.Delay
	}
	return out
}

type envelope struct {
	Error   *bool           `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

// ParseMetadata decodes the API envelope ({error, message, body}), a bare
// body, or an animation.json document.
func ParseMetadata(data []byte) (*Metadata, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMetadata)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	if env.Error != nil {
		if *env.Error {
			msg := strings.TrimSpace(env.Message)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("%w: %s", ErrAPI, msg)
		}
		if len(env.Body) > 0 {
			data = env.Body
		}
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	for i, f := range meta.Frames {
		if f.Delay < 0 {
			return nil, fmt.Errorf("%w: frame %d (%s) has negative delay %d", ErrMetadata, i, f.File, f.Delay)
		}
	}
	return &meta, nil
}

// ReadMetadataFile loads and parses a metadata document from disk.
func ReadMetadataFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return ParseMetadata(data)
}

// MarshalAnimation renders frames as an animation.json document.
func MarshalAnimation(frames []FrameInfo) ([]byte, error) {
	doc := struct {
		Frames []FrameInfo `json:"frames"`
	}{Frames: frames}
	if doc.Frames == nil {
		doc.Frames = []FrameInfo{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Int64 returns the numeric form of id when it has one.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}
