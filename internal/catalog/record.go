// Package catalog implements the authoritative in-memory wallpaper index
// with durable snapshot persistence.
package catalog

import "time"

// Wallpaper is the catalog's unit of data. ID is derived from file content
// and never reassigned; identical bytes always map to the same record.
type Wallpaper struct {
	ID          string    `json:"public_id"`
	Name        string    `json:"name"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Format      string    `json:"format"`
	CreatedAt   time.Time `json:"created_at"`
	Tags        []string  `json:"tags"`
	Colors      []string  `json:"colors"`
	PreviewURL  string    `json:"preview_url"`
	DownloadURL string    `json:"download_url"`
	Views       int64     `json:"views"`
	Downloads   int64     `json:"downloads"`
	Favorites   int64     `json:"favorites"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

// Filters narrows a listing. Zero values impose no constraint. Criteria
// combine with AND; entries within Tags or Colors combine with OR.
type Filters struct {
	Tags      []string
	Colors    []string
	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int
	Format    string
}

// Counter names an incrementable record field.
type Counter string

// Incrementable counters.
const (
	CounterViews     Counter = "views"
	CounterDownloads Counter = "downloads"
	CounterFavorites Counter = "favorites"
)

const (
	// DefaultPageSize is used when a caller passes a non-positive page size.
	DefaultPageSize = 20
	// MaxPageSize caps a caller-supplied page size.
	MaxPageSize = 100
	// MaxRandomCount caps how many records a random sample may return.
	MaxRandomCount = 10
)
