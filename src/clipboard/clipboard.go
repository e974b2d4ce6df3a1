package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"sync"

	"golang.design/x/clipboard"

	"snip/src/process"
)

// ErrUnavailable means neither wl-copy nor the native clipboard could be used.
var ErrUnavailable = errors.New("clipboard unavailable")

var (
	writeMu sync.Mutex

	nativeOnce sync.Once
	nativeErr  error
)

// Init prepares the native clipboard used when wl-copy is missing. A failure
// is not fatal on Wayland, where wl-copy does the work.
func Init() error {
	nativeOnce.Do(func() {
		nativeErr = clipboard.Init()
		if nativeErr != nil {
			log.Printf("clipboard: native clipboard unavailable: %v", nativeErr)
		}
	})
	return nativeErr
}

// Sink copies images to the system clipboard.
type Sink struct {
	Runner process.Runner
	// Native overrides the golang.design fallback; tests use it.
	Native func(pngData []byte) error
}

// New returns a sink that prefers wl-copy and falls back to the native clipboard.
func New(runner process.Runner) *Sink {
	return &Sink{Runner: runner}
}

// WriteImage performs a mutex-guarded clipboard write of img as image/png.
func (s *Sink) WriteImage(ctx context.Context, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	data := buf.Bytes()

	writeMu.Lock()
	defer writeMu.Unlock()

	if os.Getenv("WAYLAND_DISPLAY") != "" && s.Runner != nil && s.Runner.Available("wl-copy") {
		_, err := s.Runner.Run(ctx, "wl-copy", []string{"--type", "image/png"}, data)
		if err == nil {
			log.Printf("clipboard: copied %d bytes via wl-copy", len(data))
			return nil
		}
		log.Printf("clipboard: wl-copy failed, trying native clipboard: %v", err)
	}
	return s.writeNative(data)
}

func (s *Sink) writeNative(data []byte) error {
	if s.Native != nil {
		return s.Native(data)
	}
	if err := Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	clipboard.Write(clipboard.FmtImage, data)
	log.Printf("clipboard: copied %d bytes via native clipboard", len(data))
	return nil
}

// WriteText copies plain text, e.g. the path of a saved file.
func WriteText(text string) error {
	if err := Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
