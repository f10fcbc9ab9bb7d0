package catalog

import (
	"testing"
	"time"
)

// seedStore inserts n records with ascending creation times so the
// canonical order (newest first) is id n-1, n-2, ..., 0.
func seedStore(t *testing.T, n int) *Store {
	t.Helper()
	s := New(nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		w := testWallpaper(idFor(i), base.Add(time.Duration(i)*time.Minute))
		s.Upsert(w)
	}
	return s
}

func idFor(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func TestList_PaginationInvariant(t *testing.T) {
	const total = 47
	const pageSize = 10
	s := seedStore(t, total)

	_, pg := s.List(1, pageSize)
	if pg.TotalItems != total {
		t.Fatalf("total items = %d, want %d", pg.TotalItems, total)
	}
	wantPages := (total + pageSize - 1) / pageSize
	if pg.TotalPages != wantPages {
		t.Fatalf("total pages = %d, want %d", pg.TotalPages, wantPages)
	}

	// Concatenating all pages reconstructs the full ordered listing with
	// no duplicates or omissions.
	seen := make(map[string]struct{})
	var all []Wallpaper
	for page := 1; page <= pg.TotalPages; page++ {
		data, info := s.List(page, pageSize)
		if info.CurrentPage != page {
			t.Errorf("current page = %d, want %d", info.CurrentPage, page)
		}
		for _, w := range data {
			if _, dup := seen[w.ID]; dup {
				t.Errorf("duplicate id %s across pages", w.ID)
			}
			seen[w.ID] = struct{}{}
			all = append(all, w)
		}
	}
	if len(all) != total {
		t.Fatalf("concatenated pages hold %d records, want %d", len(all), total)
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("listing not in newest-first order at index %d", i)
		}
	}
}

func TestList_DefaultsAndClamps(t *testing.T) {
	s := seedStore(t, 5)

	_, pg := s.List(0, 0)
	if pg.CurrentPage != 1 {
		t.Errorf("page clamped to %d, want 1", pg.CurrentPage)
	}
	if pg.ItemsPerPage != DefaultPageSize {
		t.Errorf("page size defaulted to %d, want %d", pg.ItemsPerPage, DefaultPageSize)
	}

	_, pg = s.List(1, 10_000)
	if pg.ItemsPerPage != MaxPageSize {
		t.Errorf("page size capped at %d, want %d", pg.ItemsPerPage, MaxPageSize)
	}

	data, _ := s.List(99, 10)
	if len(data) != 0 {
		t.Errorf("out-of-range page returned %d records, want 0", len(data))
	}
}

func TestSearch_NameAndTags(t *testing.T) {
	s := New(nil)
	w := testWallpaper("m1", time.Now())
	w.Name = "Mountain"
	s.Upsert(w)

	tagged := testWallpaper("t1", time.Now())
	tagged.Name = "untitled"
	tagged.Tags = []string{"nature", "forest"}
	s.Upsert(tagged)

	data, pg := s.Search("mountain", 1, 20)
	if pg.TotalItems != 1 || len(data) != 1 || data[0].ID != "m1" {
		t.Errorf("search(mountain) = %d items, want the Mountain record", pg.TotalItems)
	}

	data, pg = s.Search("FOREST", 1, 20)
	if pg.TotalItems != 1 || len(data) != 1 || data[0].ID != "t1" {
		t.Errorf("search by tag should be case-insensitive, got %d items", pg.TotalItems)
	}

	data, pg = s.Search("desert", 1, 20)
	if pg.TotalItems != 0 || len(data) != 0 {
		t.Errorf("search(desert) = %d items, want empty page with zero total", pg.TotalItems)
	}
}

func TestFilter_DimensionBounds(t *testing.T) {
	s := New(nil)
	w := testWallpaper("uhd", time.Now())
	w.Width, w.Height = 3840, 2160
	s.Upsert(w)

	data, _ := s.Filter(Filters{MinWidth: 4000}, 1, 20)
	if len(data) != 0 {
		t.Errorf("min_width 4000 matched %d records, want 0 (3840 < 4000)", len(data))
	}

	data, _ = s.Filter(Filters{MinWidth: 3000}, 1, 20)
	if len(data) != 1 {
		t.Errorf("min_width 3000 matched %d records, want 1", len(data))
	}

	// Bounds are inclusive.
	data, _ = s.Filter(Filters{MinWidth: 3840, MaxWidth: 3840}, 1, 20)
	if len(data) != 1 {
		t.Errorf("inclusive bound matched %d records, want 1", len(data))
	}
}

func TestFilter_CombinesANDAcrossCategoriesORWithin(t *testing.T) {
	s := New(nil)

	a := testWallpaper("aa", time.Now())
	a.Tags = []string{"nature"}
	a.Colors = []string{"#112233"}
	a.Format = "jpg"
	s.Upsert(a)

	b := testWallpaper("bb", time.Now())
	b.Tags = []string{"city"}
	b.Colors = []string{"#445566"}
	b.Format = "png"
	s.Upsert(b)

	// OR within the tag set.
	data, _ := s.Filter(Filters{Tags: []string{"nature", "city"}}, 1, 20)
	if len(data) != 2 {
		t.Errorf("tag OR matched %d, want 2", len(data))
	}

	// AND across categories.
	data, _ = s.Filter(Filters{Tags: []string{"nature", "city"}, Format: "png"}, 1, 20)
	if len(data) != 1 || data[0].ID != "bb" {
		t.Errorf("tags AND format matched %d, want only bb", len(data))
	}

	// Unspecified criteria impose no constraint.
	data, _ = s.Filter(Filters{}, 1, 20)
	if len(data) != 2 {
		t.Errorf("empty filter matched %d, want all", len(data))
	}

	data, _ = s.Filter(Filters{Colors: []string{"#445566"}}, 1, 20)
	if len(data) != 1 || data[0].ID != "bb" {
		t.Errorf("color filter matched %d, want only bb", len(data))
	}
}

func TestRandom_ClampAndNoReplacement(t *testing.T) {
	s := seedStore(t, 30)

	got := s.Random(100)
	if len(got) != MaxRandomCount {
		t.Errorf("random(100) returned %d, want clamp to %d", len(got), MaxRandomCount)
	}
	seen := make(map[string]struct{})
	for _, w := range got {
		if _, dup := seen[w.ID]; dup {
			t.Errorf("random sample repeated id %s", w.ID)
		}
		seen[w.ID] = struct{}{}
	}

	small := New(nil)
	small.Upsert(testWallpaper("only", time.Now()))
	if got := small.Random(5); len(got) != 1 {
		t.Errorf("random on 1-record catalog returned %d, want 1", len(got))
	}

	if got := s.Random(0); len(got) != 1 {
		t.Errorf("random(0) returned %d, want 1", len(got))
	}
}

func TestPopular_OrderAndTiebreak(t *testing.T) {
	s := New(nil)
	now := time.Now()
	for _, id := range []string{"cc", "aa", "bb"} {
		s.Upsert(testWallpaper(id, now))
	}
	for i := 0; i < 5; i++ {
		s.Increment("bb", CounterDownloads)
	}
	for i := 0; i < 2; i++ {
		s.Increment("cc", CounterDownloads)
	}

	data, _ := s.Popular(1, 20)
	wantOrder := []string{"bb", "cc", "aa"}
	for i, want := range wantOrder {
		if data[i].ID != want {
			t.Fatalf("popular[%d] = %s, want %s", i, data[i].ID, want)
		}
	}

	// Ties broken by id for reproducible output.
	s2 := New(nil)
	s2.Upsert(testWallpaper("zz", now))
	s2.Upsert(testWallpaper("mm", now))
	data, _ = s2.Popular(1, 20)
	if data[0].ID != "mm" || data[1].ID != "zz" {
		t.Errorf("tie order = %s,%s, want mm,zz", data[0].ID, data[1].ID)
	}
}
