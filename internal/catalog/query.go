package catalog

import (
	"math/rand"
	"sort"
	"strings"
)

// List returns one page of the catalog in the canonical order.
func (s *Store) List(page, pageSize int) ([]Wallpaper, Pagination) {
	return paginate(s.All(), page, pageSize)
}

// Search returns records whose name or any tag contains query,
// case-insensitive.
func (s *Store) Search(query string, page, pageSize int) ([]Wallpaper, Pagination) {
	q := strings.ToLower(query)
	var matched []Wallpaper
	for _, w := range s.All() {
		if matchesQuery(w, q) {
			matched = append(matched, w)
		}
	}
	return paginate(matched, page, pageSize)
}

func matchesQuery(w Wallpaper, q string) bool {
	if strings.Contains(strings.ToLower(w.Name), q) {
		return true
	}
	for _, tag := range w.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Filter returns records satisfying every specified criterion in f.
func (s *Store) Filter(f Filters, page, pageSize int) ([]Wallpaper, Pagination) {
	var matched []Wallpaper
	for _, w := range s.All() {
		if f.matches(w) {
			matched = append(matched, w)
		}
	}
	return paginate(matched, page, pageSize)
}

func (f Filters) matches(w Wallpaper) bool {
	if len(f.Tags) > 0 && !containsAny(w.Tags, f.Tags) {
		return false
	}
	if len(f.Colors) > 0 && !containsAny(w.Colors, f.Colors) {
		return false
	}
	if f.MinWidth > 0 && w.Width < f.MinWidth {
		return false
	}
	if f.MaxWidth > 0 && w.Width > f.MaxWidth {
		return false
	}
	if f.MinHeight > 0 && w.Height < f.MinHeight {
		return false
	}
	if f.MaxHeight > 0 && w.Height > f.MaxHeight {
		return false
	}
	if f.Format != "" && w.Format != f.Format {
		return false
	}
	return true
}

// containsAny reports whether have and want share at least one entry,
// case-insensitive.
func containsAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// Random returns up to count records sampled uniformly without replacement.
// count is clamped to [1, MaxRandomCount].
func (s *Store) Random(count int) []Wallpaper {
	if count < 1 {
		count = 1
	}
	if count > MaxRandomCount {
		count = MaxRandomCount
	}

	all := s.All()
	rand.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	if count > len(all) {
		count = len(all)
	}
	return all[:count]
}

// Popular returns one page ordered by downloads descending, ties broken
// by id so output is reproducible.
func (s *Store) Popular(page, pageSize int) ([]Wallpaper, Pagination) {
	all := s.All()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Downloads != all[j].Downloads {
			return all[i].Downloads > all[j].Downloads
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, page, pageSize)
}

// paginate slices ws by page/pageSize and builds the pagination block.
// Invariant: total pages == ceil(total items / page size).
func paginate(ws []Wallpaper, page, pageSize int) ([]Wallpaper, Pagination) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(ws)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := ws[start:end]
	if out == nil {
		out = []Wallpaper{}
	}
	return out, Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: pageSize,
	}
}
