// Package fs persists snapshots as one JSON file per key under a data
// directory, so state survives process restarts without any external
// service.
package fs

import (
	"os"
	"path/filepath"
	"strings"
)

type Storage struct{ dir string }

func NewStorage(dir string) *Storage { return &Storage{dir: dir} }

// pathFor maps a storage key to a file name. Key separators become
// underscores so keys like "quiz:session" stay portable.
func (s *Storage) pathFor(key string) string {
	name := strings.ReplaceAll(strings.TrimSpace(key), ":", "_")
	return filepath.Join(s.dir, name+".json")
}

// Get returns the stored bytes, or absence for any read failure. A
// half-written or unreadable file is recovery territory for the caller,
// never an error.
func (s *Storage) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Set writes atomically via a temp file rename so a crash mid-write leaves
// either the old value or the new one, never a torn file.
func (s *Storage) Set(key string, value []byte) error {
	target := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (s *Storage) Delete(key string) {
	_ = os.Remove(s.pathFor(key))
}
