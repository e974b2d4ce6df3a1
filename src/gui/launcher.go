package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"snip/src/screenshot"
)

var captureDelays = []string{"No delay", "1 second", "3 seconds", "5 seconds"}

// compositor animations need a moment after the launcher hides
const hideSettle = 250 * time.Millisecond

func parseDelay(choice string) time.Duration {
	var n int
	if _, err := fmt.Sscanf(choice, "%d", &n); err != nil || n < 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

const helpText = `Region: drag a rectangle with slurp.
Fullscreen: capture the focused monitor.
Window: capture the active window.

In the editor:
  0-7        choose a tool (0 pans)
  wheel      zoom at the cursor
  Ctrl+Z/Y   undo / redo
  Ctrl+C     copy to clipboard
  Ctrl+S     save, Ctrl+Shift+S to choose the file
  Esc, q     close`

// ShowLauncher opens the capture window that keeps the app running until it
// is closed.
func (a *App) ShowLauncher() {
	a.mu.Lock()
	a.launcher = true
	a.mu.Unlock()
	a.post(a.buildLauncher)
}

func (a *App) buildLauncher() {
	w := a.fyne.NewWindow("Snip")
	delay := widget.NewSelect(captureDelays, nil)
	delay.SetSelectedIndex(0)
	pinned := widget.NewCheck("Pin result", nil)

	busy := false
	capture := func(mode screenshot.Mode) func() {
		return func() {
			if busy {
				return
			}
			busy = true
			w.Hide()
			wait := parseDelay(delay.Selected) + hideSettle
			pin := pinned.Checked
			go func() {
				img, err := a.captureAfter(mode, wait)
				fyne.Do(func() {
					busy = false
					w.Show()
					if err != nil {
						if !errors.Is(err, screenshot.ErrSelectionCancelled) {
							dialog.ShowError(err, w)
						}
						return
					}
					if pin {
						err = a.Pin(img)
					} else {
						err = a.Annotate(img)
					}
					if err != nil {
						dialog.ShowError(err, w)
					}
				})
			}()
		}
	}

	buttons := container.NewGridWithColumns(3,
		widget.NewButtonWithIcon("Region", theme.ContentCutIcon(), capture(screenshot.ModeRegion)),
		widget.NewButtonWithIcon("Fullscreen", theme.ViewFullScreenIcon(), capture(screenshot.ModeFullscreen)),
		widget.NewButtonWithIcon("Window", theme.ComputerIcon(), capture(screenshot.ModeWindow)),
	)
	help := widget.NewButtonWithIcon("", theme.HelpIcon(), func() {
		dialog.ShowInformation("Snip", helpText, w)
	})
	w.SetContent(container.NewVBox(
		buttons,
		container.NewHBox(widget.NewLabel("Delay"), delay, pinned, help),
	))
	w.SetOnClosed(func() {
		a.mu.Lock()
		a.launcher = false
		a.mu.Unlock()
		a.windowClosed()
	})
	w.Show()
}

func (a *App) captureAfter(mode screenshot.Mode, wait time.Duration) (*image.RGBA, error) {
	if a.deps.Capture == nil {
		return nil, &screenshot.CaptureError{Kind: screenshot.KindBackendUnavailable, Err: screenshot.ErrBackendUnavailable}
	}
	select {
	case <-time.After(wait):
	case <-a.ctx.Done():
		return nil, a.ctx.Err()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()
	log.Printf("gui: launcher capture %s", mode)
	return a.deps.Capture(ctx, mode)
}
