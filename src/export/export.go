// Package export writes finished images to disk and builds their file names
// from strftime-style templates.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

const (
	DefaultFilenameFormat = "snip_%Y%m%d_%H%M%S.png"
	DefaultSaveDirectory  = "~/Pictures/Snip"
)

var ErrNotWritable = errors.New("path is not writable")

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ResolvePath expands template with now and places the result in dir.
// Templates that expand to an absolute path ignore dir. A missing extension
// becomes .png.
func ResolvePath(template, dir string, now time.Time) (string, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultFilenameFormat
	}
	name := strings.TrimSpace(strftime.Format(template, now))
	if name == "" || name == "." || strings.HasSuffix(name, string(filepath.Separator)) {
		return "", fmt.Errorf("filename template %q expands to an empty name", template)
	}
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	name = ExpandHome(name)
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	if dir == "" {
		dir = DefaultSaveDirectory
	}
	return filepath.Join(ExpandHome(dir), name), nil
}

// FileSink saves images as PNG or JPEG chosen by extension.
type FileSink struct {
	// JPEGQuality applies to .jpg/.jpeg paths; zero means 90.
	JPEGQuality int
}

// Save writes img to path atomically, creating the parent directory.
func (s FileSink) Save(ctx context.Context, img image.Image, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = ExpandHome(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := checkWritable(dir); err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snip-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := s.encode(tmp, img, path); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	log.Printf("export: saved %dx%d image to %s", img.Bounds().Dx(), img.Bounds().Dy(), path)
	return nil
}

func (s FileSink) encode(w io.Writer, img image.Image, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		q := s.JPEGQuality
		if q <= 0 || q > 100 {
			q = 90
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: q}); err != nil {
			return fmt.Errorf("failed to encode image as JPEG: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode image as PNG: %w", err)
		}
	}
	return nil
}
