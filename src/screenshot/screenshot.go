package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"strconv"
	"strings"

	"snip/src/process"
)

// Region represents a screen region to capture, in global compositor
// coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Valid reports whether the region has a positive area.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Geometry formats the region the way grim -g and slurp expect: "X,Y WxH".
func (r Region) Geometry() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// ParseGeometry parses "X,Y WxH" as printed by slurp.
func ParseGeometry(s string) (Region, error) {
	s = strings.TrimSpace(s)
	pos, size, ok := strings.Cut(s, " ")
	if !ok {
		return Region{}, fmt.Errorf("invalid geometry %q", s)
	}
	xs, ys, ok1 := strings.Cut(pos, ",")
	ws, hs, ok2 := strings.Cut(strings.TrimSpace(size), "x")
	if !ok1 || !ok2 {
		return Region{}, fmt.Errorf("invalid geometry %q", s)
	}
	var vals [4]int
	for i, part := range []string{xs, ys, ws, hs} {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Region{}, fmt.Errorf("invalid geometry %q: %w", s, err)
		}
		vals[i] = n
	}
	return Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

type Mode int

const (
	ModeRegion Mode = iota
	ModeFullscreen
	ModeWindow
)

func (m Mode) String() string {
	switch m {
	case ModeRegion:
		return "region"
	case ModeFullscreen:
		return "fullscreen"
	case ModeWindow:
		return "window"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region", "area", "rect":
		return ModeRegion, nil
	case "fullscreen", "full", "screen":
		return ModeFullscreen, nil
	case "window", "active":
		return ModeWindow, nil
	}
	return ModeRegion, fmt.Errorf("unknown capture mode %q", s)
}

// Request describes one capture. Region is required for ModeRegion and
// ModeWindow; Output optionally restricts fullscreen capture to one monitor.
type Request struct {
	Mode   Mode
	Region Region
	Output string
}

// Backend captures pixels from the screen.
type Backend interface {
	Name() string
	Capture(ctx context.Context, req Request) (*image.RGBA, error)
}

// Auto picks grim on Wayland sessions where it is installed and falls back to
// the X11 backend otherwise.
func Auto(runner process.Runner) Backend {
	x11 := X11{}
	if os.Getenv("WAYLAND_DISPLAY") != "" && runner.Available("grim") {
		return Chain{&Grim{Runner: runner}, x11}
	}
	return x11
}

// Chain tries each backend in order while they report ErrBackendUnavailable.
type Chain []Backend

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, b := range c {
		names[i] = b.Name()
	}
	return strings.Join(names, "+")
}

func (c Chain) Capture(ctx context.Context, req Request) (*image.RGBA, error) {
	if len(c) == 0 {
		return nil, &CaptureError{Kind: KindBackendUnavailable, Err: errors.New("no capture backend configured")}
	}
	var lastErr error
	for _, b := range c {
		img, err := b.Capture(ctx, req)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !errors.Is(err, ErrBackendUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}

func decodePNG(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
