// Package api implements the wallpaper catalog REST API using chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/preview"
)

// Handler holds API route handlers.
type Handler struct {
	store      *catalog.Store
	libraryDir string
	previewDir string
}

// NewHandler creates a Handler serving records from store. libraryDir and
// previewDir are the absolute roots used to serve original assets and
// rendered previews.
func NewHandler(store *catalog.Store, libraryDir, previewDir string) *Handler {
	return &Handler{store: store, libraryDir: libraryDir, previewDir: previewDir}
}

func pageParams(r *http.Request) (page, pageSize int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	pageSize, _ = strconv.Atoi(q.Get("page_size"))
	return page, pageSize
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:     "ok",
		Wallpapers: h.store.Len(),
	})
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// List handles GET /api/wallpapers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	data, pg := h.store.List(page, pageSize)
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Pagination: pg})
}

// Search handles GET /api/wallpapers/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	page, pageSize := pageParams(r)
	data, pg := h.store.Search(q, page, pageSize)
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Pagination: pg})
}

// Filter handles GET /api/wallpapers/filter.
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	params, err := parseFilterParams(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := params.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	page, pageSize := pageParams(r)
	data, pg := h.store.Filter(params.Filters(), page, pageSize)
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Pagination: pg})
}

// Random handles GET /api/wallpapers/random.
func (h *Handler) Random(w http.ResponseWriter, r *http.Request) {
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	if count < 1 {
		count = 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": h.store.Random(count),
	})
}

// Popular handles GET /api/wallpapers/popular.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	data, pg := h.store.Popular(page, pageSize)
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Pagination: pg})
}

// Get handles GET /api/wallpapers/{id}. Fetching a record counts as a view.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.Get(id)
	if err != nil {
		writeNotFoundOrError(w, id, err, "get wallpaper failed")
		return
	}
	if _, err := h.store.Increment(id, catalog.CounterViews); err == nil {
		rec.Views++
	}
	writeJSON(w, http.StatusOK, rec)
}

// Preview handles GET /api/wallpapers/{id}/preview, serving the rendered
// preview file.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.Get(id)
	if err != nil {
		writeNotFoundOrError(w, id, err, "get preview failed")
		return
	}
	if rec.PreviewURL == "" {
		writeJSON(w, http.StatusNotFound, errorBody("preview not available"))
		return
	}
	http.ServeFile(w, r, filepath.Join(h.previewDir, preview.FileName(rec.ID, rec.Format)))
}

// Download handles GET /api/wallpapers/{id}/download: counts the download
// and serves the original asset.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.Get(id)
	if err != nil {
		writeNotFoundOrError(w, id, err, "download failed")
		return
	}

	rel := strings.TrimPrefix(rec.DownloadURL, "/wallpapers/")
	abs := filepath.Join(h.libraryDir, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, h.libraryDir) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	if _, err := h.store.Increment(id, catalog.CounterDownloads); err != nil {
		writeNotFoundOrError(w, id, err, "download count failed")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(abs)+"\"")
	http.ServeFile(w, r, abs)
}

// Favorite handles POST /api/wallpapers/{id}/favorite.
func (h *Handler) Favorite(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, catalog.CounterFavorites)
}

func (h *Handler) increment(w http.ResponseWriter, r *http.Request, c catalog.Counter) {
	id := chi.URLParam(r, "id")
	n, err := h.store.Increment(id, c)
	if err != nil {
		writeNotFoundOrError(w, id, err, "increment failed")
		return
	}
	writeJSON(w, http.StatusOK, CounterResponse{ID: id, Field: string(c), Value: n})
}

func writeNotFoundOrError(w http.ResponseWriter, id string, err error, msg string) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
