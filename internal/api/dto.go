package api

import (
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/catalog"
)

// ListResponse wraps a paginated wallpaper listing.
type ListResponse struct {
	Data       []catalog.Wallpaper `json:"data"`
	Pagination catalog.Pagination  `json:"pagination"`
}

// StatusResponse reports catalog size for GET /status.
type StatusResponse struct {
	Status     string `json:"status"`
	Wallpapers int    `json:"wallpapers"`
}

// CounterResponse reports a counter value after an increment.
type CounterResponse struct {
	ID    string `json:"public_id"`
	Field string `json:"field"`
	Value int64  `json:"value"`
}

// FilterParams carries the parsed query parameters of GET /wallpapers/filter.
type FilterParams struct {
	Tags      []string
	Colors    []string
	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int
	Format    string
}

// Validate rejects malformed criteria before they reach the catalog.
func (p FilterParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MinWidth, validation.Min(0)),
		validation.Field(&p.MaxWidth, validation.Min(0)),
		validation.Field(&p.MinHeight, validation.Min(0)),
		validation.Field(&p.MaxHeight, validation.Min(0)),
		validation.Field(&p.MaxWidth, validation.By(atLeast(p.MinWidth))),
		validation.Field(&p.MaxHeight, validation.By(atLeast(p.MinHeight))),
	)
}

// atLeast validates that a non-zero max bound is not below the min bound.
func atLeast(min int) validation.RuleFunc {
	return func(value any) error {
		max, _ := value.(int)
		if max > 0 && max < min {
			return validation.NewError("validation_bound", "must not be below the matching min bound")
		}
		return nil
	}
}

// Filters converts the parameters into catalog filter criteria.
func (p FilterParams) Filters() catalog.Filters {
	return catalog.Filters{
		Tags:      p.Tags,
		Colors:    p.Colors,
		MinWidth:  p.MinWidth,
		MaxWidth:  p.MaxWidth,
		MinHeight: p.MinHeight,
		MaxHeight: p.MaxHeight,
		Format:    p.Format,
	}
}

// parseFilterParams reads filter criteria from a query string. Integer
// parse failures surface as errors so malformed input is rejected at the
// boundary, not silently zeroed.
func parseFilterParams(q url.Values) (FilterParams, error) {
	p := FilterParams{
		Tags:   splitList(q.Get("tags")),
		Colors: splitList(q.Get("colors")),
		Format: strings.ToLower(strings.TrimSpace(q.Get("format"))),
	}

	var err error
	if p.MinWidth, err = parseIntParam(q, "min_width"); err != nil {
		return p, err
	}
	if p.MaxWidth, err = parseIntParam(q, "max_width"); err != nil {
		return p, err
	}
	if p.MinHeight, err = parseIntParam(q, "min_height"); err != nil {
		return p, err
	}
	if p.MaxHeight, err = parseIntParam(q, "max_height"); err != nil {
		return p, err
	}
	return p, nil
}

func parseIntParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewError("validation_int", key+" must be an integer")
	}
	return n, nil
}

// splitList parses a comma-separated query value into trimmed lower-case
// entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
