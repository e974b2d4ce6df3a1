package eventloop

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"snip/src/export"
	"snip/src/pin"
)

// Spawner starts a detached child process.
type Spawner interface {
	Spawn(name string, args ...string) (int, error)
}

// ProcessPresenter opens each capture in a separate `snip open` process.
// The tray owns the main thread for systray, so windows cannot live here.
type ProcessPresenter struct {
	Spawner    Spawner
	Executable string
	// Dir holds the hand-off images; empty means the system temp dir.
	Dir   string
	Files pin.FileSink
}

func (p ProcessPresenter) Annotate(img *image.RGBA) error { return p.open(img, "--annotate") }

func (p ProcessPresenter) Pin(img *image.RGBA) error { return p.open(img, "--pin") }

func (p ProcessPresenter) open(img *image.RGBA, flag string) error {
	dir := p.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "snip-handoff-*.png")
	if err != nil {
		return fmt.Errorf("failed to create hand-off file: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	files := p.Files
	if files == nil {
		files = export.FileSink{}
	}
	if err := files.Save(context.Background(), img, path); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write hand-off image: %w", err)
	}
	exe := p.Executable
	if exe == "" {
		if exe, err = os.Executable(); err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("cannot locate snip binary: %w", err)
		}
	}
	// the child deletes the hand-off file once loaded
	if _, err := p.Spawner.Spawn(exe, "open", flag, "--remove", filepath.Clean(path)); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
