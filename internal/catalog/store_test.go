package catalog

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
)

func testWallpaper(id string, createdAt time.Time) Wallpaper {
	return Wallpaper{
		ID:          id,
		Name:        "wp-" + id,
		Width:       1920,
		Height:      1080,
		Format:      "jpg",
		CreatedAt:   createdAt,
		Tags:        []string{},
		Colors:      []string{"#336699"},
		PreviewURL:  "/previews/" + id + "_preview.jpg",
		DownloadURL: "/wallpapers/wp-" + id + ".jpg",
	}
}

func TestStore_UpsertInsertsNew(t *testing.T) {
	s := New(nil)

	created := s.Upsert(testWallpaper("a", time.Now()))
	if !created {
		t.Error("first upsert should report created")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Views != 0 || got.Downloads != 0 || got.Favorites != 0 {
		t.Errorf("new record counters = %d/%d/%d, want zeros", got.Views, got.Downloads, got.Favorites)
	}
}

func TestStore_UpsertMergePreservesCreatedAtAndCounters(t *testing.T) {
	s := New(nil)
	origTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Upsert(testWallpaper("a", origTime))
	for i := 0; i < 3; i++ {
		if _, err := s.Increment("a", CounterDownloads); err != nil {
			t.Fatal(err)
		}
	}

	update := testWallpaper("a", time.Now())
	update.Name = "renamed"
	update.Width = 3840
	update.Height = 2160
	created := s.Upsert(update)
	if created {
		t.Error("second upsert of same id should not report created")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1 (upsert must not duplicate)", s.Len())
	}

	got, _ := s.Get("a")
	if !got.CreatedAt.Equal(origTime) {
		t.Errorf("createdAt = %v, want preserved %v", got.CreatedAt, origTime)
	}
	if got.Downloads != 3 {
		t.Errorf("downloads = %d, want preserved 3", got.Downloads)
	}
	if got.Name != "renamed" || got.Width != 3840 {
		t.Error("mutable metadata should be updated on merge")
	}
}

func TestStore_Remove(t *testing.T) {
	s := New(nil)
	s.Upsert(testWallpaper("a", time.Now()))

	if !s.Remove("a") {
		t.Error("remove of present id should report true")
	}
	if s.Remove("a") {
		t.Error("remove of absent id should report false")
	}
	if _, err := s.Get("a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after remove = %v, want ErrNotFound", err)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := New(nil)
	if _, err := s.Get("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_IncrementNotFound(t *testing.T) {
	s := New(nil)
	if _, err := s.Increment("missing", CounterViews); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ConcurrentIncrementsExact(t *testing.T) {
	s := New(nil)
	s.Upsert(testWallpaper("a", time.Now()))

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Increment("a", CounterDownloads); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get("a")
	if got.Downloads != n {
		t.Errorf("downloads = %d, want exactly %d", got.Downloads, n)
	}
}

func TestStore_TwoConcurrentDownloadsFromZero(t *testing.T) {
	s := New(nil)
	s.Upsert(testWallpaper("fresh", time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Increment("fresh", CounterDownloads)
		}()
	}
	wg.Wait()

	got, _ := s.Get("fresh")
	if got.Downloads != 2 {
		t.Errorf("downloads = %d, want 2", got.Downloads)
	}
}

func TestStore_IncrementNotLostAcrossUpsert(t *testing.T) {
	s := New(nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Upsert(testWallpaper("a", base))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.Upsert(testWallpaper("a", base))
			}
		}
	}()

	const n = 500
	for i := 0; i < n; i++ {
		if _, err := s.Increment("a", CounterDownloads); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()

	got, _ := s.Get("a")
	if got.Downloads != n {
		t.Errorf("downloads = %d, want exactly %d despite concurrent upserts", got.Downloads, n)
	}
}

func TestStore_LoadRestoresCounters(t *testing.T) {
	s := New(nil)
	w := testWallpaper("a", time.Now())
	w.Views, w.Downloads, w.Favorites = 5, 7, 2
	s.Load([]Wallpaper{w})

	got, err := s.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Views != 5 || got.Downloads != 7 || got.Favorites != 2 {
		t.Errorf("counters = %d/%d/%d, want 5/7/2", got.Views, got.Downloads, got.Favorites)
	}
}

func TestStore_ConcurrentUpsertSameID(t *testing.T) {
	s := New(nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := testWallpaper("same", base)
			w.Name = fmt.Sprintf("name-%d", i)
			s.Upsert(w)
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1 after concurrent upserts of one id", s.Len())
	}
	got, _ := s.Get("same")
	// Reads must observe one submitted record wholesale, never a blend.
	if got.Width != 1920 || got.Height != 1080 {
		t.Errorf("record fields corrupted: %+v", got)
	}
}
