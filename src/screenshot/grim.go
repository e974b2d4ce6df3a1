package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"

	"snip/src/process"
)

// Grim captures through the wlroots screencopy tool, writing PNG to stdout.
type Grim struct {
	Runner process.Runner
}

func (g *Grim) Name() string { return "grim" }

func (g *Grim) Capture(ctx context.Context, req Request) (*image.RGBA, error) {
	args, err := grimArgs(req)
	if err != nil {
		return nil, err
	}
	out, err := g.Runner.Run(ctx, "grim", args, nil)
	if err != nil {
		return nil, classify("grim", err)
	}
	img, err := decodePNG(out)
	if err != nil {
		return nil, &CaptureError{Kind: KindFailed, Err: err}
	}
	log.Printf("grim: captured %s %dx%d", req.Mode, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func grimArgs(req Request) ([]string, error) {
	switch req.Mode {
	case ModeFullscreen:
		if req.Output != "" {
			return []string{"-o", req.Output, "-"}, nil
		}
		return []string{"-"}, nil
	case ModeRegion, ModeWindow:
		if !req.Region.Valid() {
			return nil, &CaptureError{Kind: KindFailed, Err: fmt.Errorf("invalid region dimensions: width=%d, height=%d", req.Region.Width, req.Region.Height)}
		}
		return []string{"-g", req.Region.Geometry(), "-"}, nil
	}
	return nil, &CaptureError{Kind: KindFailed, Err: fmt.Errorf("unsupported mode %v", req.Mode)}
}

type hyprWindow struct {
	At    [2]int `json:"at"`
	Size  [2]int `json:"size"`
	Title string `json:"title"`
}

// ActiveWindow asks Hyprland for the focused window's geometry. Other
// compositors report ErrBackendUnavailable so callers can fall back to an
// interactive selection.
func ActiveWindow(ctx context.Context, runner process.Runner) (Region, error) {
	if !runner.Available("hyprctl") {
		return Region{}, &CaptureError{Kind: KindBackendUnavailable, Err: errors.New("hyprctl not found")}
	}
	out, err := runner.Run(ctx, "hyprctl", []string{"activewindow", "-j"}, nil)
	if err != nil {
		var ee *process.ExitError
		if errors.As(err, &ee) {
			return Region{}, &CaptureError{Kind: KindBackendUnavailable, Err: err}
		}
		return Region{}, classify("hyprctl", err)
	}
	var w hyprWindow
	if err := json.Unmarshal(out, &w); err != nil {
		return Region{}, &CaptureError{Kind: KindBackendUnavailable, Err: fmt.Errorf("unexpected hyprctl output: %w", err)}
	}
	r := Region{X: w.At[0], Y: w.At[1], Width: w.Size[0], Height: w.Size[1]}
	if !r.Valid() {
		return Region{}, &CaptureError{Kind: KindBackendUnavailable, Err: errors.New("no active window")}
	}
	return r, nil
}

type hyprMonitor struct {
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
}

// Outputs lists monitor names known to Hyprland, focused monitor first.
func Outputs(ctx context.Context, runner process.Runner) ([]string, error) {
	out, err := runner.Run(ctx, "hyprctl", []string{"monitors", "-j"}, nil)
	if err != nil {
		return nil, classify("hyprctl", err)
	}
	var monitors []hyprMonitor
	if err := json.Unmarshal(out, &monitors); err != nil {
		return nil, fmt.Errorf("unexpected hyprctl output: %w", err)
	}
	names := make([]string, 0, len(monitors))
	for _, m := range monitors {
		if m.Focused {
			names = append([]string{m.Name}, names...)
		} else {
			names = append(names, m.Name)
		}
	}
	return names, nil
}
