// Package preview renders fixed-size wallpaper previews and estimates
// dominant colors.
package preview

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"github.com/starford/sowilo/internal/apperr"

	_ "golang.org/x/image/webp"
)

// Preview target size: cover-fit, center crop.
const (
	TargetWidth  = 400
	TargetHeight = 225
)

// FileName returns the canonical preview file name for an identity.
// Formats the encoder cannot write (webp) fall back to jpg previews.
func FileName(id, format string) string {
	return id + "_preview." + encodeFormat(format)
}

func encodeFormat(format string) string {
	if _, err := imaging.FormatFromExtension(format); err != nil {
		return "jpg"
	}
	return format
}

// Renderer writes previews under a single directory. Rendering is
// idempotent: a preview that already exists on disk is never regenerated,
// and concurrent renders for the same identity are collapsed.
type Renderer struct {
	dir   string
	group singleflight.Group
}

// NewRenderer creates a Renderer rooted at dir, creating it if needed.
func NewRenderer(dir string) (*Renderer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("preview: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("preview: create dir: %w", err)
	}
	return &Renderer{dir: abs}, nil
}

// Dir returns the absolute preview directory.
func (r *Renderer) Dir() string { return r.dir }

// Path returns the absolute path of the preview for an identity.
func (r *Renderer) Path(id, format string) string {
	return filepath.Join(r.dir, FileName(id, format))
}

// Ensure makes sure a preview exists for id and returns its file name.
// rendered is false when the preview was already present. Decode or encode
// failures wrap apperr.ErrRender.
func (r *Renderer) Ensure(srcPath, id, format string) (name string, rendered bool, err error) {
	name = FileName(id, format)
	dst := filepath.Join(r.dir, name)

	if _, statErr := os.Stat(dst); statErr == nil {
		return name, false, nil
	}

	_, err, _ = r.group.Do(id, func() (any, error) {
		// Another caller may have finished while we queued.
		if _, statErr := os.Stat(dst); statErr == nil {
			return nil, nil
		}
		return nil, r.render(srcPath, dst, format)
	})
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// render decodes src, cover-fits it to the target box, and writes dst
// atomically. Racing writers are safe: output is deterministic for
// identical input and the rename replaces whole files.
func (r *Renderer) render(src, dst, format string) error {
	imgFormat, err := imaging.FormatFromExtension(encodeFormat(format))
	if err != nil {
		return fmt.Errorf("preview: format %q: %w", format, apperr.ErrRender)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("preview: decode %s: %w: %v", src, apperr.ErrRender, err)
	}

	thumb := imaging.Fill(img, TargetWidth, TargetHeight, imaging.Center, imaging.Lanczos)

	tmp, err := os.CreateTemp(r.dir, ".sowilo-preview-*")
	if err != nil {
		return fmt.Errorf("preview: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := imaging.Encode(tmp, thumb, imgFormat); err != nil {
		return fmt.Errorf("preview: encode: %w: %v", apperr.ErrRender, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("preview: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("preview: rename: %w", err)
	}
	success = true
	return nil
}

// Dominant estimates the dominant color of the image at path by box-resizing
// it to a single pixel. Returned as a lowercase #rrggbb token.
func Dominant(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("preview: dominant color decode %s: %w", path, err)
	}
	px := imaging.Resize(img, 1, 1, imaging.Box)
	c := color.NRGBAModel.Convert(px.At(0, 0)).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
}
