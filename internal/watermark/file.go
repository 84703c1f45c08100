package watermark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per season under a directory
// (last_update_{season}.json). Writes go through a temp file and rename so a
// crash mid-write never leaves a torn watermark behind.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating watermark directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(season string) string {
	key := strings.ReplaceAll(season, "-", "_")
	return filepath.Join(s.dir, fmt.Sprintf("last_update_%s.json", key))
}

// Read returns the watermark for a season, or (nil, nil) if none exists.
func (s *FileStore) Read(ctx context.Context, season string) (*Watermark, error) {
	data, err := os.ReadFile(s.path(season))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading watermark for %s: %w", season, err)
	}

	var w Watermark
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing watermark for %s: %w", season, err)
	}
	return &w, nil
}

// Write atomically replaces the watermark for a season.
func (s *FileStore) Write(ctx context.Context, season string, w Watermark) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding watermark for %s: %w", season, err)
	}

	tmp, err := os.CreateTemp(s.dir, "watermark-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp watermark file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing watermark for %s: %w", season, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing watermark file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(season)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing watermark for %s: %w", season, err)
	}
	return nil
}
