package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/identity"
	"github.com/starford/sowilo/internal/preview"
)

// EventCallback is called after a pipeline-driven catalog change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

// Pipeline consumes watcher events with a bounded worker pool and turns
// them into catalog upserts and removals. It owns the path-to-identity side
// index needed to resolve removals, since a deleted file can no longer be
// hashed.
type Pipeline struct {
	store    *catalog.Store
	renderer *preview.Renderer
	root     string
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
	cb       EventCallback

	mu      sync.Mutex
	pathIDs map[string]string // absolute path -> content id
}

// NewPipeline creates a pipeline writing into store. root is the library
// root used to build download locators. workers bounds ingestion
// concurrency. timeout bounds the work for a single file; it is checked at
// the boundaries between pipeline steps, so a step already inside a decode
// runs to completion before the deadline takes effect.
func NewPipeline(store *catalog.Store, renderer *preview.Renderer, root string, workers int, timeout time.Duration, logger *slog.Logger, cb EventCallback) *Pipeline {
	if workers < 1 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		renderer: renderer,
		root:     root,
		workers:  workers,
		timeout:  timeout,
		logger:   logger,
		cb:       cb,
		pathIDs:  make(map[string]string),
	}
}

// Run processes events until the channel closes or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, events <-chan Event) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, events)
		}()
	}
	wg.Wait()
	return nil
}

func (p *Pipeline) worker(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Op {
			case OpAdded:
				p.handleAdd(ctx, ev.Path)
			case OpRemoved:
				p.handleRemove(ev.Path)
			}
		}
	}
}

// handleAdd runs one ingestion under the per-file timeout. A failure is
// isolated to this file: logged, never propagated to the worker loop.
func (p *Pipeline) handleAdd(ctx context.Context, filePath string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rec, created, err := p.Ingest(ctx, filePath)
	switch {
	case errors.Is(err, apperr.ErrUnsupportedFormat):
		p.logger.Debug("ingest: skipped", slog.String("path", filePath))
	case errors.Is(err, context.DeadlineExceeded):
		p.logger.Warn("ingest: timed out", slog.String("path", filePath))
	case err != nil:
		p.logger.Warn("ingest: failed",
			slog.String("path", filePath),
			slog.String("error", err.Error()))
	default:
		kind := "updated"
		if created {
			kind = "created"
		}
		p.logger.Debug("ingest: stored",
			slog.String("id", rec.ID),
			slog.String("path", filePath),
			slog.String("op", kind))
		if p.cb != nil {
			p.cb(kind, rec.ID)
		}
	}
}

// Ingest identifies the file, ensures its preview, assembles a record, and
// upserts it. Preview and color failures degrade the record rather than
// abort it; identity failures abort. created reports whether the record was
// new to the catalog.
//
// When the path previously carried different content, the old record is
// retired once no other indexed path still references it, so an in-place
// rewrite does not leave a ghost record behind.
func (p *Pipeline) Ingest(ctx context.Context, filePath string) (catalog.Wallpaper, bool, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return catalog.Wallpaper{}, false, fmt.Errorf("ingest: resolve %s: %w", filePath, err)
	}

	info, err := identity.Identify(abs)
	if err != nil {
		return catalog.Wallpaper{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return catalog.Wallpaper{}, false, err
	}

	colors := []string{}
	if dominant, colErr := preview.Dominant(abs); colErr == nil {
		colors = append(colors, dominant)
	} else {
		p.logger.Debug("ingest: dominant color failed",
			slog.String("path", abs),
			slog.String("error", colErr.Error()))
	}
	if err := ctx.Err(); err != nil {
		return catalog.Wallpaper{}, false, err
	}

	previewURL := ""
	if name, _, renderErr := p.renderer.Ensure(abs, info.ID, info.Format); renderErr != nil {
		// Degraded record: stored without a preview, retried on the
		// next ingestion of this path.
		p.logger.Warn("ingest: preview failed",
			slog.String("path", abs),
			slog.String("error", renderErr.Error()))
	} else {
		previewURL = "/previews/" + name
	}
	if err := ctx.Err(); err != nil {
		return catalog.Wallpaper{}, false, err
	}

	createdAt := time.Now()
	if fi, statErr := os.Stat(abs); statErr == nil {
		createdAt = fi.ModTime()
	}

	rel, err := filepath.Rel(p.root, abs)
	if err != nil {
		rel = filepath.Base(abs)
	}

	w := catalog.Wallpaper{
		ID:          info.ID,
		Name:        identity.Name(abs),
		Width:       info.Width,
		Height:      info.Height,
		Format:      info.Format,
		CreatedAt:   createdAt,
		Tags:        []string{},
		Colors:      colors,
		PreviewURL:  previewURL,
		DownloadURL: path.Join("/wallpapers", filepath.ToSlash(rel)),
	}

	created := p.store.Upsert(w)

	p.mu.Lock()
	oldID, had := p.pathIDs[abs]
	p.pathIDs[abs] = info.ID
	stale := had && oldID != info.ID && !p.idReferencedLocked(oldID)
	p.mu.Unlock()

	if stale {
		p.retire(oldID, abs)
	}

	return w, created, nil
}

// handleRemove resolves a removed path through the side index and deletes
// the record when no other known path still carries the same content.
// Unknown paths are a no-op.
func (p *Pipeline) handleRemove(filePath string) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return
	}

	p.mu.Lock()
	id, ok := p.pathIDs[abs]
	if ok {
		delete(p.pathIDs, abs)
	}
	referenced := ok && p.idReferencedLocked(id)
	p.mu.Unlock()

	if !ok || referenced {
		return
	}
	p.retire(id, abs)
}

// idReferencedLocked reports whether any indexed path still maps to id.
// Caller holds mu.
func (p *Pipeline) idReferencedLocked(id string) bool {
	for _, other := range p.pathIDs {
		if other == id {
			return true
		}
	}
	return false
}

// retire deletes a record whose content no longer exists under any indexed
// path.
func (p *Pipeline) retire(id, path string) {
	if p.store.Remove(id) {
		p.logger.Debug("ingest: removed",
			slog.String("id", id),
			slog.String("path", path))
		if p.cb != nil {
			p.cb("deleted", id)
		}
	}
}
