// Package storage implements the file-backed JSON document store.
package storage

import (
	"context"
	"time"

	"github.com/halvard/fehu/internal/models"
)

// Store is the interface for catalog document persistence.
type Store interface {
	// Read loads and structurally validates the on-disk document.
	// An empty file yields the default empty document.
	Read() (*models.Document, error)
	// Write validates doc, stamps last_modified, and atomically replaces
	// the on-disk document (temp file + rename). The previous document
	// stays intact if anything fails.
	Write(ctx context.Context, doc *models.Document) error
	// Path returns the absolute path of the document file.
	Path() string
}

// Options control locking and backup behavior of a store.
type Options struct {
	// Locking enables the advisory lock-file protocol around writes.
	Locking bool
	// LockTimeout bounds how long a writer polls for the advisory lock.
	LockTimeout time.Duration
	// Backup enables pre-write backup rotation.
	Backup bool
	// MaxBackups is the number of backup files kept when Backup is on.
	MaxBackups int
}

// DefaultOptions mirror the shipped configuration defaults.
func DefaultOptions() Options {
	return Options{
		Locking:     true,
		LockTimeout: 30 * time.Second,
		Backup:      false,
		MaxBackups:  10,
	}
}
