package screenshot

import (
	"errors"
	"fmt"
	"strings"

	"snip/src/process"
)

type ErrorKind int

const (
	KindFailed ErrorKind = iota
	KindBackendUnavailable
	KindCancelled
	KindPermissionDenied
)

func (k ErrorKind) String() string {
	switch k {
	case KindBackendUnavailable:
		return "backend unavailable"
	case KindCancelled:
		return "cancelled"
	case KindPermissionDenied:
		return "permission denied"
	default:
		return "capture failed"
	}
}

var (
	ErrBackendUnavailable = errors.New("capture backend unavailable")
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrPermissionDenied   = errors.New("screen capture permission denied")
)

// CaptureError is fatal to one capture attempt.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel for the error's kind.
func (e *CaptureError) Is(target error) bool {
	switch target {
	case ErrBackendUnavailable:
		return e.Kind == KindBackendUnavailable
	case ErrSelectionCancelled:
		return e.Kind == KindCancelled
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	}
	return false
}

// classify maps a runner failure onto a CaptureError.
func classify(tool string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, process.ErrNotFound) {
		return &CaptureError{Kind: KindBackendUnavailable, Err: err}
	}
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.ToLower(exitErr.Stderr)
		switch {
		case strings.Contains(msg, "permission"), strings.Contains(msg, "denied"), strings.Contains(msg, "not authorized"):
			return &CaptureError{Kind: KindPermissionDenied, Err: err}
		case strings.Contains(msg, "doesn't support"), strings.Contains(msg, "failed to connect"), strings.Contains(msg, "no wayland"):
			return &CaptureError{Kind: KindBackendUnavailable, Err: err}
		}
	}
	return &CaptureError{Kind: KindFailed, Err: fmt.Errorf("%s: %w", tool, err)}
}
