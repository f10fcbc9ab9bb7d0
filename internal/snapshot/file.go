package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/sowilo/internal/catalog"
)

// File persists the catalog as a single JSON document mapping id to record.
type File struct {
	path string
}

// NewFile creates a file-backed provider. The file is created on first Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Close is a no-op; the file is opened per operation.
func (f *File) Close() error { return nil }

// Load reads the JSON snapshot. A missing file yields an empty catalog.
func (f *File) Load() ([]catalog.Wallpaper, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: read %s: %w", f.path, err)
	}

	byID := make(map[string]catalog.Wallpaper)
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", f.path, err)
	}

	out := make([]catalog.Wallpaper, 0, len(byID))
	for id, w := range byID {
		w.ID = id
		out = append(out, w)
	}
	return out, nil
}

// Save atomically rewrites the snapshot: tmp file, fsync, rename.
func (f *File) Save(ws []catalog.Wallpaper) error {
	byID := make(map[string]catalog.Wallpaper, len(ws))
	for _, w := range ws {
		byID[w.ID] = w
	}
	data, err := json.MarshalIndent(byID, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sowilo-snapshot-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	success = true
	return nil
}
