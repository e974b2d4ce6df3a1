// Package tray shows the resident status icon and its capture menu.
package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"snip/src/screenshot"
)

const DefaultTooltip = "Snip"

// Handlers receive menu clicks on the systray goroutine.
type Handlers struct {
	OnCapture func(mode screenshot.Mode, pin bool)
	OnQuit    func()
}

type menuEntry struct {
	title   string
	tooltip string
	mode    screenshot.Mode
	pin     bool
}

var captureEntries = []menuEntry{
	{"Capture Region", "Select a region and annotate it", screenshot.ModeRegion, false},
	{"Capture Fullscreen", "Capture the focused monitor", screenshot.ModeFullscreen, false},
	{"Capture Window", "Capture the active window", screenshot.ModeWindow, false},
	{"Pin Region", "Select a region and pin it on top", screenshot.ModeRegion, true},
}

var (
	mu         sync.Mutex
	ready      bool
	aboutItem  *systray.MenuItem
	aboutExtra string
)

// Run shows the icon and blocks until Quit. onReady runs once the menu
// exists.
func Run(h Handlers, onReady func()) {
	systray.Run(func() {
		setup(h)
		if onReady != nil {
			onReady()
		}
	}, func() {
		mu.Lock()
		ready = false
		mu.Unlock()
		log.Printf("tray: exited")
	})
}

func setup(h Handlers) {
	if icon := Icon(); icon != nil {
		systray.SetIcon(icon)
	}
	systray.SetTitle("Snip")
	systray.SetTooltip(DefaultTooltip)

	for _, e := range captureEntries {
		item := systray.AddMenuItem(e.title, e.tooltip)
		go func(e menuEntry) {
			for range item.ClickedCh {
				log.Printf("tray: %s clicked", e.title)
				if h.OnCapture != nil {
					h.OnCapture(e.mode, e.pin)
				}
			}
		}(e)
	}
	systray.AddSeparator()
	about := systray.AddMenuItem("About Snip", "")
	about.Disable()
	quit := systray.AddMenuItem("Quit", "Quit snip")
	go func() {
		<-quit.ClickedCh
		log.Printf("tray: quit clicked")
		if h.OnQuit != nil {
			h.OnQuit()
		}
		systray.Quit()
	}()

	mu.Lock()
	ready = true
	aboutItem = about
	if aboutExtra != "" {
		about.SetTitle(aboutTitle(aboutExtra))
	}
	mu.Unlock()
}

func Quit() {
	mu.Lock()
	r := ready
	mu.Unlock()
	if r {
		systray.Quit()
	}
}

// UpdateTooltip is a no-op until the tray is ready.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return
	}
	systray.SetTooltip(text)
}

// SetAboutExtra appends text to the About entry, e.g. the resident port.
func SetAboutExtra(text string) {
	mu.Lock()
	defer mu.Unlock()
	aboutExtra = text
	if ready && aboutItem != nil {
		aboutItem.SetTitle(aboutTitle(text))
	}
}

func aboutTitle(extra string) string {
	if extra == "" {
		return "About Snip"
	}
	return "Snip (" + extra + ")"
}
