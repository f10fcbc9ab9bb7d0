package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/testutil"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testRunConfig(t *testing.T, libraryDir string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = freePort(t)
	cfg.Library.Path = libraryDir
	cfg.Previews.Path = filepath.Join(t.TempDir(), "previews")
	cfg.Snapshot.Driver = "file"
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "catalog.json")
	return cfg
}

func TestRun_ServesCatalogAndStopsOnCancel(t *testing.T) {
	libraryDir := t.TempDir()
	testutil.WriteJPEG(t, libraryDir, "wall.jpg", 64, 36, color.NRGBA{R: 180, G: 60, B: 20, A: 255})

	cfg := testRunConfig(t, libraryDir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, WithConfig(cfg)) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.App.HTTP.Port)

	// Wait for backfill ingestion to surface the file in the catalog.
	var previewURL string
	testutil.Eventually(t, 15*time.Second, 50*time.Millisecond, func() bool {
		resp, err := http.Get(base + "/api/wallpapers")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var lr struct {
			Data []struct {
				PreviewURL string `json:"preview_url"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil || len(lr.Data) != 1 {
			return false
		}
		previewURL = lr.Data[0].PreviewURL
		return previewURL != ""
	}, "catalog never served the ingested file")
	if previewURL == "" {
		t.Fatal("no preview locator to fetch")
	}

	// The preview locator resolves against the running server.
	resp, err := http.Get(base + previewURL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status = %d, want 200", previewURL, resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run did not stop after context cancel")
	}

	// The catalog made it to disk before exit.
	if _, err := os.Stat(cfg.Snapshot.Path); err != nil {
		t.Errorf("snapshot missing after shutdown: %v", err)
	}
}
