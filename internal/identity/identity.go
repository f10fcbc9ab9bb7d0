// Package identity derives a stable content identity and structural
// metadata for image files.
package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/sowilo/internal/apperr"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// supported maps a lower-case file extension to its format token.
var supported = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpeg",
	".png":  "png",
	".webp": "webp",
}

// Info is the result of identifying a file.
type Info struct {
	// ID is the lowercase hex SHA-256 digest of the full file bytes.
	// Identical bytes always yield the same ID regardless of path.
	ID     string
	Width  int
	Height int
	Format string
}

// Supported reports whether path has a supported image extension.
func Supported(path string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Name returns the human-readable title for a file: the base name with the
// extension stripped.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Identify reads the file at path and returns its content identity plus
// structural metadata. Returns apperr.ErrUnsupportedFormat when the
// extension is not in the supported set. A file whose header cannot be
// decoded still identifies successfully with zero dimensions.
func Identify(path string) (Info, error) {
	format, ok := supported[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Info{}, fmt.Errorf("identity: %s: %w", filepath.Base(path), apperr.ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("identity: read %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	info := Info{
		ID:     hex.EncodeToString(sum[:]),
		Format: format,
	}

	// Header-only decode; failure degrades to 0x0 rather than losing
	// the record.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width = cfg.Width
		info.Height = cfg.Height
	}

	return info, nil
}
