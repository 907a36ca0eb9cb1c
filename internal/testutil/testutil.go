// Package testutil provides shared test helpers for setting up stores and audit logs.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/halvard/fehu/internal/audit"
	"github.com/halvard/fehu/internal/catalog"
	"github.com/halvard/fehu/internal/storage"
)

// Logger returns a slog.Logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestStore creates a JSON store in a temporary directory that is
// automatically cleaned up. The catalog file starts out bootstrapped empty.
func TestStore(t *testing.T) *storage.JSONStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	store, err := storage.New(path, storage.DefaultOptions(), Logger())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestService wires a catalog service on top of a temporary store.
func TestService(t *testing.T) *catalog.Service {
	t.Helper()
	return catalog.NewService(TestStore(t), Logger())
}

// TestAudit creates a temporary SQLite audit log that is automatically cleaned up.
func TestAudit(t *testing.T) *audit.Log {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fehu-audit-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	log, err := audit.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}
