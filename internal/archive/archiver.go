// Package archive persists finished artifacts under deterministic names and
// optionally mirrors them to object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/storage"
)

const (
	// TimestampLayout sorts lexically in time order.
	TimestampLayout = "20060102_150405"
	prefixRunes     = 15
	illegalChars    = `\/*?:"<>|`
)

// Artifact describes a saved file.
type Artifact struct {
	// Name is the file name inside the archive directory.
	Name string
	// Path is the full local path.
	Path string
	// Timestamp is the sortable timestamp used in Name.
	Timestamp string
	// URL is the object storage URL, empty when storage is disabled or the
	// upload failed.
	URL string
}

// Archiver writes HTML artifacts to a flat directory.
type Archiver struct {
	dir   string
	store storage.ObjectStorage
	now   func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithStorage mirrors artifacts to object storage.
func WithStorage(store storage.ObjectStorage) Option {
	return func(a *Archiver) { a.store = store }
}

// WithClock overrides the clock used for names.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// NewArchiver creates an archiver rooted at dir.
func NewArchiver(dir string, opts ...Option) *Archiver {
	a := &Archiver{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dir returns the archive directory.
func (a *Archiver) Dir() string {
	return a.dir
}

// SafePrefix strips path-illegal characters from the request and keeps the
// first 15 runes.
func SafePrefix(request string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) {
			return -1
		}
		return r
	}, request)
	runes := []rune(cleaned)
	if len(runes) > prefixRunes {
		runes = runes[:prefixRunes]
	}
	return string(runes)
}

// FileName returns the archive name for a request at time t. Two identical
// requests in the same second map to the same name.
func FileName(t time.Time, request string) string {
	return fmt.Sprintf("%s_%s.html", t.Format(TimestampLayout), SafePrefix(request))
}

// SaveHTML writes content and returns where it went. A failed mirror upload
// is logged and does not fail the save.
func (a *Archiver) SaveHTML(ctx context.Context, content, request string) (*Artifact, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}

	now := a.now()
	name := FileName(now, request)
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}

	artifact := &Artifact{
		Name:      name,
		Path:      path,
		Timestamp: now.Format(TimestampLayout),
	}

	if a.store != nil {
		key := "html/" + name
		data := []byte(content)
		if err := a.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "text/html; charset=utf-8"); err != nil {
			logger.CtxWarn(ctx, "Failed to mirror artifact %s: %v", name, err)
		} else {
			artifact.URL = a.store.GetURL(key)
		}
	}

	logger.With(logger.Fields{logger.FieldSize: len(content)}).
		Info(ctx, "Artifact archived: %s", path)
	return artifact, nil
}

// PublishVideo uploads a rendered video under key and returns its URL. An
// object already stored under key is not uploaded again. It returns ""
// without error when no storage is configured.
func (a *Archiver) PublishVideo(ctx context.Context, path, key string) (string, error) {
	if a.store == nil {
		return "", nil
	}
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to check video %s in storage: %v", key, err)
	}
	if exists {
		return a.store.GetURL(key), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video: %w", err)
	}
	if err := a.store.Upload(ctx, key, f, info.Size(), "video/mp4"); err != nil {
		return "", err
	}
	return a.store.GetURL(key), nil
}
