package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// rotateBackups copies the current document into the sibling backups/
// directory and prunes the oldest files beyond Options.MaxBackups.
// Rotation is best-effort: its failure never blocks the write itself.
func (s *JSONStore) rotateBackups() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read current document: %w", err)
	}

	dir := filepath.Join(filepath.Dir(s.path), "backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	name := fmt.Sprintf("%s-%d.json", stem, time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	return s.pruneBackups(dir, stem)
}

// pruneBackups removes the oldest backups until at most MaxBackups remain.
// Backup names embed a nanosecond timestamp, so lexicographic order of
// equal-length names is chronological; sorting by filename is enough.
func (s *JSONStore) pruneBackups(dir, stem string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), stem+"-") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}

	max := s.opts.MaxBackups
	if max < 1 {
		max = 1
	}
	if len(names) <= max {
		return nil
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-max] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("prune backup %s: %w", name, err)
		}
	}
	return nil
}
