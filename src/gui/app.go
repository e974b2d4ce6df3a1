// Package gui is the fyne front-end: annotation and pin windows around a
// pin.Session, plus the capture launcher window.
package gui

import (
	"context"
	"image"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"snip/src/config"
	"snip/src/notification"
	"snip/src/pin"
	"snip/src/process"
	"snip/src/screenshot"
)

const appID = "dev.snip.app"

// CaptureFunc runs one capture for the launcher window.
type CaptureFunc func(ctx context.Context, mode screenshot.Mode) (*image.RGBA, error)

type Deps struct {
	Config    *config.Config
	Runner    process.Runner
	Clipboard pin.ClipboardSink
	Files     pin.FileSink
	Capture   CaptureFunc
}

// App owns the fyne application and every open pin session.
type App struct {
	fyne     fyne.App
	deps     Deps
	registry *pin.Registry
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	started  bool
	pending  []func()
	launcher bool
}

func New(deps Deps) *App {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Runner == nil {
		deps.Runner = process.ExecRunner{Timeout: deps.Config.ExternalTimeout()}
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		fyne:     app.NewWithID(appID),
		deps:     deps,
		registry: pin.NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
	notification.Attach(a.fyne)
	return a
}

// Annotate opens an editable window for img.
func (a *App) Annotate(img *image.RGBA) error { return a.open(img, false) }

// Pin opens a floating always-on-top window for img.
func (a *App) Pin(img *image.RGBA) error { return a.open(img, true) }

func (a *App) open(img *image.RGBA, pinned bool) error {
	s, err := a.newSession(img, pinned)
	if err != nil {
		return err
	}
	a.registry.Add(s)
	a.post(func() {
		newPinWindow(a, s, pinned).show()
	})
	return nil
}

func (a *App) newSession(img *image.RGBA, pinned bool) (*pin.Session, error) {
	cfg := a.deps.Config
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	t := cfg.Transform().WithScale(fitScale(w, h, maxWindowW, maxWindowH))

	opts := pin.Options{
		Image:          img,
		Style:          cfg.AnnotationStyle(),
		Transform:      t,
		Clipboard:      a.deps.Clipboard,
		Files:          a.deps.Files,
		SaveDirectory:  cfg.Screenshot.SaveDirectory,
		FilenameFormat: cfg.Screenshot.FilenameFormat,
		Timeout:        cfg.ExternalTimeout(),
		AlwaysOnTop:    pinned && cfg.Pin.AlwaysOnTop,
	}
	if pinned {
		opts.Render = cfg.RenderOptions()
	}
	s, err := pin.NewSession(opts)
	if err != nil {
		return nil, err
	}
	if opts.AlwaysOnTop && a.deps.Runner.Available("hyprctl") {
		// the stacker needs the title, which exists only once the session does
		s.SetStacker(pin.NewHyprStacker(a.deps.Runner, s.Title()))
	}
	return s, nil
}

// post runs fn on the UI goroutine, deferring it until Run started the app.
func (a *App) post(fn func()) {
	a.mu.Lock()
	if !a.started {
		a.pending = append(a.pending, fn)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	fyne.Do(fn)
}

// Run blocks in the fyne main loop until the last window closes.
func (a *App) Run() {
	a.fyne.Lifecycle().SetOnStarted(func() {
		a.mu.Lock()
		a.started = true
		pending := a.pending
		a.pending = nil
		a.mu.Unlock()
		for _, fn := range pending {
			fn()
		}
	})
	a.fyne.Run()
	a.cancel()
	a.registry.CloseAll()
	notification.Attach(nil)
}

func (a *App) Quit() {
	a.post(func() { a.fyne.Quit() })
}

// Sessions is the number of open pin windows.
func (a *App) Sessions() int { return a.registry.Len() }

// windowClosed quits once nothing keeps the app alive.
func (a *App) windowClosed() {
	a.mu.Lock()
	keep := a.launcher
	a.mu.Unlock()
	if !keep && a.registry.Len() == 0 {
		log.Printf("gui: last window closed")
		a.fyne.Quit()
	}
}
