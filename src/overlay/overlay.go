package overlay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"snip/src/process"
	"snip/src/screenshot"
)

// Selector defines a synchronous region-selection API owned by the caller's goroutine.
// Returns (region, cancelled, error). If cancelled is true, region is undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (screenshot.Region, bool, error)
}

// SelectionTimeout bounds an interactive drag. It is much longer than the
// timeout for non-interactive tools since a human is in the loop.
const SelectionTimeout = 2 * time.Minute

// NewSelector returns the slurp-backed selector.
func NewSelector(runner process.Runner) Selector {
	return &slurpSelector{runner: runner}
}

type slurpSelector struct {
	runner process.Runner
	// extra flags, e.g. border colour
	args []string
}

func (s *slurpSelector) Select(ctx context.Context) (screenshot.Region, bool, error) {
	if !s.runner.Available("slurp") {
		return screenshot.Region{}, false, &screenshot.CaptureError{Kind: screenshot.KindBackendUnavailable, Err: errors.New("slurp not found")}
	}
	out, err := s.runner.Run(ctx, "slurp", s.args, nil)
	if err != nil {
		var exitErr *process.ExitError
		if errors.As(err, &exitErr) {
			// slurp exits non-zero when the user presses Escape.
			log.Printf("overlay: selection cancelled (%v)", err)
			return screenshot.Region{}, true, nil
		}
		if errors.Is(err, process.ErrNotFound) {
			return screenshot.Region{}, false, &screenshot.CaptureError{Kind: screenshot.KindBackendUnavailable, Err: err}
		}
		return screenshot.Region{}, false, fmt.Errorf("region selection failed: %w", err)
	}

	region, err := screenshot.ParseGeometry(string(out))
	if err != nil {
		return screenshot.Region{}, false, err
	}
	if !region.Valid() {
		log.Printf("overlay: empty selection %q treated as cancel", out)
		return screenshot.Region{}, true, nil
	}
	log.Printf("overlay: region selected: %+v", region)
	return region, false, nil
}
