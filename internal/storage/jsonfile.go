package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/halvard/fehu/internal/apperr"
	"github.com/halvard/fehu/internal/models"
)

// JSONStore persists the catalog document as a single pretty-printed JSON
// file. Writes go through a sibling temp file and an atomic rename, and are
// serialized by an advisory flock on a sibling lock file when enabled.
// Reads are deliberately not lock-serialized: a reader sees either the pre-
// or post-write document, never a torn one, because rename is atomic.
type JSONStore struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex // serializes writers within this process
	lockFile *os.File
}

var _ Store = (*JSONStore)(nil)

// New creates a JSONStore for the given file path, creating the containing
// directory and bootstrapping an empty default document if the file does
// not exist yet.
func New(path string, opts Options, logger *slog.Logger) (*JSONStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	s := &JSONStore{path: abs, opts: opts, logger: logger}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute path of the document file.
func (s *JSONStore) Path() string {
	return s.path
}

// Exists reports whether the document file is present on disk.
func (s *JSONStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// FileSize returns the document size in bytes, or 0 if the file is absent.
func (s *JSONStore) FileSize() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Read loads and parses the on-disk document. A missing file maps to
// ErrNotFound, unreadable to ErrPermissionDenied, invalid JSON or a failed
// structural check to ErrCorrupt. An empty file is valid and returns the
// default empty document.
func (s *JSONStore) Read() (*models.Document, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("storage: read %s: %w", s.path, apperr.ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("storage: read %s: %w", s.path, apperr.ErrPermissionDenied)
	case err != nil:
		return nil, fmt.Errorf("storage: read %s: %w", s.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return models.DefaultDocument(time.Now()), nil
	}

	var doc models.Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("storage: %w: %v", apperr.ErrCorrupt, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("storage: %w: %v", apperr.ErrCorrupt, err)
	}
	if doc.Products == nil {
		doc.Products = []models.Product{}
	}
	return &doc, nil
}

// Write validates doc, stamps metadata.last_modified, and atomically
// replaces the document file. The advisory lock (when enabled) is held for
// the whole temp-write + rename sequence.
func (s *JSONStore) Write(ctx context.Context, doc *models.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("storage: %w: %v", apperr.ErrCorrupt, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Locking {
		if err := s.Lock(ctx); err != nil {
			return err
		}
		defer s.Unlock()
	}

	doc.Metadata.LastModified = models.Timestamp(time.Now())

	data, err := marshalDocument(doc)
	if err != nil {
		return fmt.Errorf("storage: %w: %v", apperr.ErrCorrupt, err)
	}

	if s.opts.Backup {
		if err := s.rotateBackups(); err != nil {
			s.logger.Warn("storage: backup rotation failed", slog.String("error", err.Error()))
		}
	}

	return s.writeAtomic(data)
}

// writeAtomic writes data to the sibling temp path, fsyncs, and renames it
// over the target. On any failure the temp file is removed and the
// original document stays untouched.
func (s *JSONStore) writeAtomic(data []byte) error {
	tmp := s.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("storage: %w: create temp: %v", apperr.ErrWriteFailed, err)
	}

	success := false
	defer func() {
		if !success {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("storage: %w: write temp: %v", apperr.ErrWriteFailed, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("storage: %w: fsync: %v", apperr.ErrWriteFailed, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: %w: close temp: %v", apperr.ErrWriteFailed, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: %w: rename: %v", apperr.ErrWriteFailed, err)
	}
	success = true
	return nil
}

// initialize creates the containing directory and an empty default
// document if the target file does not exist.
func (s *JSONStore) initialize() error {
	if s.Exists() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage: %w: create directory: %v", apperr.ErrPermissionDenied, err)
	}
	data, err := marshalDocument(models.DefaultDocument(time.Now()))
	if err != nil {
		return fmt.Errorf("storage: encode default document: %w", err)
	}
	if err := s.writeAtomic(data); err != nil {
		return fmt.Errorf("storage: %w: initialize %s", apperr.ErrPermissionDenied, s.path)
	}
	return nil
}

// marshalDocument serializes deterministically: two-space indent, UTF-8
// preserved (no HTML escaping of non-ASCII or angle brackets).
func marshalDocument(doc *models.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
