package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// X11 captures through kbinani/screenshot. It is the fallback for sessions
// without grim, including XWayland-only setups.
type X11 struct{}

func (X11) Name() string { return "x11" }

func (X11) Capture(ctx context.Context, req Request) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CaptureError{Kind: KindFailed, Err: err}
	}
	switch req.Mode {
	case ModeFullscreen:
		bounds, err := virtualScreen()
		if err != nil {
			return nil, err
		}
		return captureRect(bounds)
	case ModeRegion, ModeWindow:
		if !req.Region.Valid() {
			return nil, &CaptureError{Kind: KindFailed, Err: fmt.Errorf("invalid region dimensions: width=%d, height=%d", req.Region.Width, req.Region.Height)}
		}
		return captureRect(req.Region.Rect())
	}
	return nil, &CaptureError{Kind: KindFailed, Err: fmt.Errorf("unsupported mode %v", req.Mode)}
}

// virtualScreen is the union of all active display bounds.
func virtualScreen() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, &CaptureError{Kind: KindBackendUnavailable, Err: errors.New("no active displays found")}
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

func captureRect(bounds image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, &CaptureError{Kind: KindBackendUnavailable, Err: fmt.Errorf("failed to capture region: %w", err)}
	}
	return ToRGBA(img), nil
}

// DisplayBounds returns the bounds of the primary display.
func DisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, &CaptureError{Kind: KindBackendUnavailable, Err: errors.New("no active displays found")}
	}
	return screenshot.GetDisplayBounds(0), nil
}
