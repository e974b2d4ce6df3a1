package pin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"snip/src/process"
)

// DefaultReconcileInterval is how often a pinned window's stacking is checked.
const DefaultReconcileInterval = 2 * time.Second

var ErrWindowNotFound = errors.New("window not found")

// Stacker reads and re-applies the always-on-top state of one window.
type Stacker interface {
	IsOnTop(ctx context.Context) (bool, error)
	SetOnTop(ctx context.Context) error
}

// SetStacker replaces the stacker. Call it before RunReconciler starts.
func (s *Session) SetStacker(st Stacker) { s.opts.Stacker = st }

// Reconcile re-asserts always-on-top if the window manager demoted the
// window. It reports whether it had to act. A window that is not mapped yet
// is not an error.
func (s *Session) Reconcile(ctx context.Context) (bool, error) {
	if !s.opts.AlwaysOnTop || s.opts.Stacker == nil || s.State() != StateActive {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	onTop, err := s.opts.Stacker.IsOnTop(ctx)
	if errors.Is(err, ErrWindowNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read stacking state: %w", err)
	}
	if onTop {
		return false, nil
	}
	if err := s.opts.Stacker.SetOnTop(ctx); err != nil {
		return false, fmt.Errorf("failed to restore always-on-top: %w", err)
	}
	log.Printf("pin %s: always-on-top re-asserted", s.title)
	return true, nil
}

// RunReconciler calls Reconcile every interval until ctx ends or the
// session closes. Failures are logged and retried on the next tick.
func (s *Session) RunReconciler(ctx context.Context, interval time.Duration) {
	if !s.opts.AlwaysOnTop || s.opts.Stacker == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil {
				log.Printf("pin %s: %v", s.title, err)
			}
		}
	}
}

// HyprStacker pins a window by title through hyprctl.
type HyprStacker struct {
	Runner process.Runner
	Title  string
}

func NewHyprStacker(runner process.Runner, title string) *HyprStacker {
	return &HyprStacker{Runner: runner, Title: title}
}

type hyprClient struct {
	Title    string `json:"title"`
	Floating bool   `json:"floating"`
	Pinned   bool   `json:"pinned"`
}

func (h *HyprStacker) IsOnTop(ctx context.Context) (bool, error) {
	out, err := h.Runner.Run(ctx, "hyprctl", []string{"clients", "-j"}, nil)
	if err != nil {
		return false, err
	}
	var clients []hyprClient
	if err := json.Unmarshal(out, &clients); err != nil {
		return false, fmt.Errorf("failed to parse hyprctl clients: %w", err)
	}
	for _, c := range clients {
		if c.Title == h.Title {
			return c.Floating && c.Pinned, nil
		}
	}
	return false, ErrWindowNotFound
}

// SetOnTop floats and pins the window. hyprctl's pin toggles, so callers
// only invoke this after IsOnTop reported false.
func (h *HyprStacker) SetOnTop(ctx context.Context) error {
	sel := fmt.Sprintf("title:^(%s)$", h.Title)
	batch := fmt.Sprintf("dispatch setfloating %s ; dispatch pin %s", sel, sel)
	_, err := h.Runner.Run(ctx, "hyprctl", []string{"--batch", batch}, nil)
	return err
}
