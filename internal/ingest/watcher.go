// Package ingest turns filesystem events into catalog records.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Op classifies a file event.
type Op int

// File event operations.
const (
	OpAdded Op = iota
	OpRemoved
)

// Event is one filesystem observation about a regular file.
type Event struct {
	Op   Op
	Path string
}

// Watcher observes a library root for file creation and removal, emitting
// events on a bounded channel. On Run it first enumerates every pre-existing
// file (backfill) so the catalog converges after a restart. Hidden entries
// (final segment starting with ".") are excluded; extension filtering
// happens downstream in the identity step.
//
// Ordering: events about the same path are emitted in observation order by
// the single watcher goroutine; no ordering holds across different paths
// once workers consume them concurrently.
type Watcher struct {
	root   string
	events chan Event
	logger *slog.Logger
}

// NewWatcher creates a watcher for root with the given event buffer size.
// The root must exist and be a directory; a missing root is a startup
// failure, not a recoverable event.
func NewWatcher(root string, buffer int, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("ingest: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("ingest: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest: root is not a directory: %s", abs)
	}
	if buffer < 1 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:   abs,
		events: make(chan Event, buffer),
		logger: logger,
	}, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string { return w.root }

// Events returns the event channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run watches the root until ctx is cancelled. New directories created at
// runtime are added to the watch list; files already inside them are
// emitted as synthetic add events. Per-event errors are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingest: start watcher: %w", err)
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return fmt.Errorf("ingest: watch root: %w", err)
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	// Backfill: synthetic add events for everything already on disk.
	if err := w.backfill(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.hidden(ev.Name) {
				continue
			}

			// New directories: add to the watch list and emit any
			// files already inside them.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					w.emitDir(ctx, ev.Name)
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if !w.emit(ctx, Event{Op: OpAdded, Path: ev.Name}) {
					return nil
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; the new
				// path arrives as a separate Create event.
				if !w.emit(ctx, Event{Op: OpRemoved, Path: ev.Name}) {
					return nil
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// backfill walks the root and emits an add event per regular file.
func (w *Watcher) backfill(ctx context.Context) error {
	count := 0
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("watcher: backfill walk failed",
				slog.String("path", path),
				slog.String("error", walkErr.Error()))
			return nil
		}
		if w.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !w.emit(ctx, Event{Op: OpAdded, Path: path}) {
			return ctx.Err()
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	w.logger.Info("watcher: backfill complete", slog.Int("files", count))
	return nil
}

// emitDir emits add events for the files of a newly created directory.
func (w *Watcher) emitDir(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || w.hidden(path) {
			return nil
		}
		if !w.emit(ctx, Event{Op: OpAdded, Path: path}) {
			return ctx.Err()
		}
		return nil
	})
}

// emit delivers ev, blocking when the buffer is full so delivery rate is
// bounded by processing rate. Returns false when ctx ended instead.
func (w *Watcher) emit(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// hidden reports whether any path segment below the root starts with ".".
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, string(os.PathSeparator)) {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return fw.Add(path)
		}
		return nil
	})
}
