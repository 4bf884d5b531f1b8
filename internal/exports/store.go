package exports

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store places export files under a root directory, one folder per tenant.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: filepath.Clean(dir)}
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns <root>/<tenant>/<task>.<ext>.
func (s *Store) Path(tenantID, taskID string, format Format) string {
	return filepath.Join(s.root, sanitize(tenantID), sanitize(taskID)+"."+format.Extension())
}

// Save renders table into its final path and returns the path and file size.
// The file is written to a temporary name first and renamed when complete.
func (s *Store) Save(tenantID, taskID string, format Format, table *Table, columns []string) (string, int64, error) {
	path := s.Path(tenantID, taskID, format)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("exports: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return "", 0, fmt.Errorf("exports: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := Write(tmp, format, table, columns); err != nil {
		_ = tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("exports: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", 0, fmt.Errorf("exports: move file into place: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("exports: stat file: %w", err)
	}
	return path, info.Size(), nil
}

// Remove deletes path. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("exports: remove %s: %w", path, err)
	}
	return nil
}

// sanitize turns segment into a single path element. Every run of path
// separators and ".." collapses into one underscore.
func sanitize(segment string) string {
	segment = strings.NewReplacer("..", "/", "\\", "/").Replace(strings.TrimSpace(segment))

	var b strings.Builder
	underscore := false
	for i, part := range strings.Split(segment, "/") {
		if part == "" {
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
			continue
		}
		if i > 0 && !underscore {
			b.WriteByte('_')
		}
		b.WriteString(part)
		underscore = false
	}

	out := b.String()
	if out == "" || out == "." {
		return "_"
	}
	return out
}
