// Package session runs one capture from start to finish: region
// selection, capture, the configured auto-copy and auto-save, then handing
// the image to an annotation or pin window.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"time"

	"snip/src/export"
	"snip/src/overlay"
	"snip/src/pin"
	"snip/src/process"
	"snip/src/screenshot"
)

// Presenter opens windows for a captured image. Implementations post to the
// UI goroutine and return without waiting for the window to close.
type Presenter interface {
	Annotate(img *image.RGBA) error
	Pin(img *image.RGBA) error
}

// WindowLocatorFunc returns the geometry of the focused window.
type WindowLocatorFunc func(ctx context.Context) (screenshot.Region, error)

type Presentation int

const (
	PresentNone Presentation = iota
	PresentAnnotate
	PresentPin
)

func (p Presentation) String() string {
	switch p {
	case PresentAnnotate:
		return "annotate"
	case PresentPin:
		return "pin"
	default:
		return "none"
	}
}

type Options struct {
	Mode screenshot.Mode
	// Region skips interactive selection for ModeRegion when valid.
	Region screenshot.Region
	// Output restricts ModeFullscreen to one monitor.
	Output string

	Backend        screenshot.Backend
	Selector       overlay.Selector
	LocateWindow   WindowLocatorFunc
	CaptureTimeout time.Duration

	// Post-capture action flags.
	Annotate   bool
	Pin        bool
	Save       bool
	Clipboard  bool
	OutputPath string

	// Configured behaviour.
	AutoCopy       bool
	AutoSave       bool
	SaveDirectory  string
	FilenameFormat string

	ClipboardSink pin.ClipboardSink
	Files         pin.FileSink
	Present       Presenter
	Now           func() time.Time
}

type Result struct {
	Image     *image.RGBA
	Copied    bool
	SavedPath string
	Presented Presentation
	// Warnings are failures that did not stop the flow, such as a failed
	// auto-copy.
	Warnings []error
}

// Execute captures one image and applies the post-capture actions.
// Capture failures, including a cancelled selection, end the flow with a
// *screenshot.CaptureError. An explicit --save that fails returns a
// *pin.ExportError after the remaining actions ran.
func Execute(ctx context.Context, opts Options) (Result, error) {
	img, err := Capture(ctx, opts)
	if err != nil {
		return Result{}, err
	}
	return Deliver(ctx, opts, img)
}

// Deliver applies the post-capture actions to an already captured image.
func Deliver(ctx context.Context, opts Options, img *image.RGBA) (Result, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	res := Result{Image: img}

	if opts.AutoCopy || opts.Clipboard {
		if err := copyImage(ctx, opts, img); err != nil {
			if opts.Clipboard {
				return res, err
			}
			log.Printf("session: auto-copy failed: %v", err)
			res.Warnings = append(res.Warnings, err)
		} else {
			res.Copied = true
		}
	}

	var saveErr error
	if opts.AutoSave || opts.Save {
		path, err := saveImage(ctx, opts, img)
		if err != nil {
			log.Printf("session: save failed: %v", err)
			if opts.Save {
				saveErr = err
			} else {
				res.Warnings = append(res.Warnings, err)
			}
		} else {
			res.SavedPath = path
		}
	}

	res.Presented = presentationFor(opts)
	var err error
	switch res.Presented {
	case PresentAnnotate:
		err = opts.Present.Annotate(img)
	case PresentPin:
		err = opts.Present.Pin(img)
	}
	if err != nil {
		return res, fmt.Errorf("failed to open %s window: %w", res.Presented, err)
	}

	return res, saveErr
}

func presentationFor(opts Options) Presentation {
	if opts.Present == nil {
		return PresentNone
	}
	switch {
	case opts.Annotate:
		return PresentAnnotate
	case opts.Pin:
		return PresentPin
	case !opts.Save && !opts.Clipboard:
		return PresentAnnotate
	}
	return PresentNone
}

// Capture resolves the request for opts.Mode and runs the backend.
func Capture(ctx context.Context, opts Options) (*image.RGBA, error) {
	if opts.Backend == nil {
		return nil, &screenshot.CaptureError{Kind: screenshot.KindBackendUnavailable, Err: errors.New("no capture backend")}
	}
	req, err := Resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	return CaptureRequest(ctx, opts.Backend, req, opts.CaptureTimeout)
}

// Resolve turns opts into a concrete request, running the interactive
// selection or window lookup the mode needs.
func Resolve(ctx context.Context, opts Options) (screenshot.Request, error) {
	req := screenshot.Request{Mode: opts.Mode, Region: opts.Region, Output: opts.Output}
	switch opts.Mode {
	case screenshot.ModeRegion:
		if !req.Region.Valid() {
			region, err := selectRegion(ctx, opts)
			if err != nil {
				return req, err
			}
			req.Region = region
		}
	case screenshot.ModeWindow:
		region, err := locateWindow(ctx, opts)
		if err != nil {
			return req, err
		}
		req.Region = region
	case screenshot.ModeFullscreen:
	default:
		return req, &screenshot.CaptureError{Kind: screenshot.KindFailed, Err: fmt.Errorf("unsupported mode %v", opts.Mode)}
	}
	return req, nil
}

// CaptureRequest runs backend under timeout; zero means process.DefaultTimeout.
func CaptureRequest(ctx context.Context, backend screenshot.Backend, req screenshot.Request, timeout time.Duration) (*image.RGBA, error) {
	if timeout <= 0 {
		timeout = process.DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("session: capturing %s via %s", req.Mode, backend.Name())
	img, err := backend.Capture(cctx, req)
	if err != nil {
		if errors.Is(err, process.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &screenshot.CaptureError{Kind: screenshot.KindFailed, Err: fmt.Errorf("capture timed out after %s: %w", timeout, err)}
		}
		return nil, err
	}
	return img, nil
}

func selectRegion(ctx context.Context, opts Options) (screenshot.Region, error) {
	if opts.Selector == nil {
		return screenshot.Region{}, &screenshot.CaptureError{Kind: screenshot.KindBackendUnavailable, Err: errors.New("no region selector")}
	}
	sctx, cancel := context.WithTimeout(ctx, overlay.SelectionTimeout)
	defer cancel()
	region, cancelled, err := opts.Selector.Select(sctx)
	if err != nil {
		return screenshot.Region{}, err
	}
	if cancelled {
		return screenshot.Region{}, &screenshot.CaptureError{Kind: screenshot.KindCancelled, Err: screenshot.ErrSelectionCancelled}
	}
	return region, nil
}

// locateWindow falls back to an interactive selection when the compositor
// cannot report the focused window.
func locateWindow(ctx context.Context, opts Options) (screenshot.Region, error) {
	if opts.LocateWindow != nil {
		lctx, cancel := context.WithTimeout(ctx, process.DefaultTimeout)
		region, err := opts.LocateWindow(lctx)
		cancel()
		if err == nil {
			return region, nil
		}
		if !errors.Is(err, screenshot.ErrBackendUnavailable) {
			return screenshot.Region{}, err
		}
		log.Printf("session: active window unavailable (%v), falling back to selection", err)
	}
	return selectRegion(ctx, opts)
}

func copyImage(ctx context.Context, opts Options, img image.Image) error {
	if opts.ClipboardSink == nil {
		return &pin.ExportError{Action: pin.ActionCopy, Err: pin.ErrNoSink}
	}
	if err := opts.ClipboardSink.WriteImage(ctx, img); err != nil {
		return &pin.ExportError{Action: pin.ActionCopy, Err: err}
	}
	return nil
}

func saveImage(ctx context.Context, opts Options, img image.Image) (string, error) {
	path, err := SavePath(opts.OutputPath, opts.SaveDirectory, opts.FilenameFormat, opts.Now())
	if err != nil {
		return "", &pin.ExportError{Action: pin.ActionSave, Err: err}
	}
	if opts.Files == nil {
		return "", &pin.ExportError{Action: pin.ActionSave, Path: path, Err: pin.ErrNoSink}
	}
	if err := opts.Files.Save(ctx, img, path); err != nil {
		return "", &pin.ExportError{Action: pin.ActionSave, Path: path, Err: err}
	}
	return path, nil
}

// SavePath resolves an explicit output path against the save directory, or
// expands the filename template when no path was given.
func SavePath(output, dir, template string, now time.Time) (string, error) {
	if output == "" {
		return export.ResolvePath(template, dir, now)
	}
	output = export.ExpandHome(output)
	if filepath.IsAbs(output) {
		return output, nil
	}
	if dir == "" {
		dir = export.DefaultSaveDirectory
	}
	return filepath.Join(export.ExpandHome(dir), output), nil
}
