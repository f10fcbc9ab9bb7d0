// Package testutil provides shared test helpers for building image
// libraries and catalogs.
package testutil

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/catalog"
)

// SolidImage returns a width x height image filled with c.
func SolidImage(width, height int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// WriteJPEG writes a solid-color JPEG into dir and returns its path.
func WriteJPEG(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, SolidImage(width, height, c), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return path
}

// WritePNG writes a solid-color PNG into dir and returns its path.
func WritePNG(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, SolidImage(width, height, c)); err != nil {
		t.Fatal(err)
	}
	return path
}

// Record builds a minimal wallpaper record for store tests.
func Record(id, name string, width, height int, createdAt time.Time) catalog.Wallpaper {
	return catalog.Wallpaper{
		ID:          id,
		Name:        name,
		Width:       width,
		Height:      height,
		Format:      "jpg",
		CreatedAt:   createdAt,
		Tags:        []string{},
		Colors:      []string{},
		PreviewURL:  "/previews/" + id + "_preview.jpg",
		DownloadURL: "/wallpapers/" + name + ".jpg",
	}
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
