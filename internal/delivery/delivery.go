package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"ugoira/internal/config"
	"ugoira/internal/fileutil"
	"ugoira/internal/logging"
	"ugoira/internal/textutil"
)

const (
	// DefaultAuthor names files whose author is unknown.
	DefaultAuthor = "unknown"
	// DefaultTitle names files whose title is unknown.
	DefaultTitle = "ugoira"

	lockFileName   = "delivery.lock"
	lockRetryDelay = 50 * time.Millisecond
	maxSuffix      = 9999
)

var (
	// ErrEmptyOutput is returned when there is nothing to save.
	ErrEmptyOutput = errors.New("nothing to deliver")
	// ErrNoFreeName is returned when every suffixed name is taken.
	ErrNoFreeName = errors.New("no free file name")
)

// Request describes one file to save.
type Request struct {
	Author   string
	Title    string
	MIMEType string
	Data     []byte
}

// Result reports where a file was saved.
type Result struct {
	Path    string
	Bytes   int64
	SHA256  string
	Renamed bool
}

// Deliverer writes files into one directory.
type Deliverer struct {
	dir       string
	lockPath  string
	overwrite bool
	logger    *slog.Logger
}

// New builds a Deliverer for cfg's delivery directory. The lock lives in the
// data directory so the output folder only ever holds finished files.
func New(cfg *config.Config, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		dir:       cfg.DeliveryDir(),
		lockPath:  filepath.Join(cfg.Paths.DataDir, lockFileName),
		overwrite: cfg.Delivery.Overwrite,
		logger:    logging.NewComponentLogger(logger, "delivery"),
	}
}

// Dir returns the directory files are saved into.
func (d *Deliverer) Dir() string { return d.dir }

// Save writes req.Data to a unique file and verifies it on disk.
func (d *Deliverer) Save(ctx context.Context, req Request) (*Result, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyOutput
	}
	ext, err := ExtensionFor(req.MIMEType)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	lock := flock.New(d.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire delivery lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire delivery lock: %s is held", d.lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("failed to release delivery lock",
				logging.String("lock", d.lockPath),
				logging.Error(err),
			)
		}
	}()

	name := FileName(req.Author, req.Title, ext)
	target, renamed, err := d.pickPath(name)
	if err != nil {
		return nil, err
	}

	if err := fileutil.WriteFileAtomic(target, req.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", target, err)
	}
	sum := fileutil.SHA256(req.Data)
	if err := fileutil.VerifyFile(target, int64(len(req.Data)), sum); err != nil {
		_ = os.Remove(target)
		return nil, fmt.Errorf("verify %s: %w", target, err)
	}

	res := &Result{Path: target, Bytes: int64(len(req.Data)), SHA256: sum, Renamed: renamed}
	d.logger.Info("file delivered",
		logging.String(logging.FieldEventType, "file_delivered"),
		logging.String("path", res.Path),
		logging.Int64("bytes", res.Bytes),
		logging.Bool("renamed", res.Renamed),
	)
	return res, nil
}

func (d *Deliverer) pickPath(name string) (string, bool, error) {
	candidate := filepath.Join(d.dir, name)
	if d.overwrite {
		return candidate, false, nil
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 0; n <= maxSuffix; n++ {
		if n > 0 {
			candidate = filepath.Join(d.dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		}
		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, n > 0, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", false, fmt.Errorf("%w for %s in %s", ErrNoFreeName, name, d.dir)
}

// FileName builds the sanitized {author}_{title}.{ext} name.
func FileName(author, title, ext string) string {
	author = textutil.DefaultString(textutil.SanitizeFileName(author), DefaultAuthor)
	title = textutil.DefaultString(textutil.SanitizeFileName(title), DefaultTitle)
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")

	stem := author + "_" + title
	limit := textutil.MaxFileNameBytes - len(ext) - 1
	stem = strings.TrimRight(textutil.Truncate(stem, limit), " .")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// ExtensionFor maps an output MIME type to a file extension.
func ExtensionFor(mimeType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/gif":
		return "gif", nil
	case "application/zip", "application/x-zip-compressed":
		return "zip", nil
	default:
		return "", fmt.Errorf("unsupported output type %q", mimeType)
	}
}
