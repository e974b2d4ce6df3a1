// Package pin owns the lifecycle of one pinned screenshot window: its
// annotation state, view transform, export actions and always-on-top
// reconciliation. The windowing toolkit lives in src/gui; nothing here
// depends on it.
package pin

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"snip/src/annotation"
	"snip/src/export"
	"snip/src/geometry"
	"snip/src/interaction"
	"snip/src/process"
	"snip/src/render"
)

type State int

const (
	StateCreated State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Action int

const (
	ActionCopy Action = iota
	ActionSave
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "copy"
	case ActionSave:
		return "save"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

var (
	ErrNotActive = errors.New("pin session is not active")
	ErrNoSink    = errors.New("no export sink configured")
	ErrNoImage   = errors.New("pin session needs a non-empty image")
)

// ExportError is a recoverable export failure; the session stays Active.
type ExportError struct {
	Action Action
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s to %s failed: %v", e.Action, e.Path, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

type ClipboardSink interface {
	WriteImage(ctx context.Context, img image.Image) error
}

type FileSink interface {
	Save(ctx context.Context, img image.Image, path string) error
}

type Options struct {
	Image     image.Image
	Style     annotation.Style
	Transform geometry.Transform
	Render    render.Options

	Clipboard      ClipboardSink
	Files          FileSink
	SaveDirectory  string
	FilenameFormat string

	// Stacker is consulted only when AlwaysOnTop is set.
	Stacker     Stacker
	AlwaysOnTop bool

	// Timeout bounds each export; zero means process.DefaultTimeout.
	Timeout time.Duration
	Now     func() time.Time
}

// Session is one pinned window. Controller, Compositor and the export
// methods must be driven from the UI goroutine; State, Close and the
// reconciler are safe from any goroutine.
type Session struct {
	id         string
	title      string
	opts       Options
	engine     *annotation.Engine
	controller *interaction.Controller
	compositor *render.Compositor

	mu      sync.Mutex
	state   State
	onClose []func()
	done    chan struct{}
}

func NewSession(opts Options) (*Session, error) {
	if opts.Image == nil || opts.Image.Bounds().Empty() {
		return nil, ErrNoImage
	}
	if opts.Transform.Scale <= 0 {
		opts.Transform = geometry.Identity()
	}
	opts.Transform = opts.Transform.WithScale(opts.Transform.Scale)
	if opts.Timeout <= 0 {
		opts.Timeout = process.DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	id := uuid.NewString()
	engine := annotation.NewEngine(opts.Style)
	s := &Session{
		id:         id,
		title:      "snip-pin-" + id[:8],
		opts:       opts,
		engine:     engine,
		controller: interaction.New(engine, opts.Transform),
		compositor: render.New(opts.Image, engine, opts.Render),
		state:      StateCreated,
		done:       make(chan struct{}),
	}
	w, h := s.compositor.Size()
	s.controller.SetViewport(float64(w), float64(h))
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Title is the window title; stackers match windows by it.
func (s *Session) Title() string { return s.title }

func (s *Session) Engine() *annotation.Engine { return s.engine }

func (s *Session) Controller() *interaction.Controller { return s.controller }

func (s *Session) Compositor() *render.Compositor { return s.compositor }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Activate moves Created to Active. Activating an Active session is a no-op.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCreated:
		s.state = StateActive
		log.Printf("pin %s: active", s.title)
		return nil
	case StateActive:
		return nil
	default:
		return ErrNotActive
	}
}

// OnClose registers fn to run once when the session closes.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close reports whether this call closed the session.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	s.state = StateClosed
	callbacks := s.onClose
	s.onClose = nil
	close(s.done)
	s.mu.Unlock()

	log.Printf("pin %s: closed", s.title)
	for _, fn := range callbacks {
		fn()
	}
	return true
}

// Render draws the current view into a width×height buffer.
func (s *Session) Render(width, height int) *image.RGBA {
	s.controller.SetViewport(float64(width), float64(height))
	return s.compositor.Render(width, height, s.controller.Transform())
}

// Flatten is the exported image: 1:1, committed shapes only.
func (s *Session) Flatten() *image.RGBA {
	return s.compositor.Flatten()
}

func (s *Session) CopyToClipboard(ctx context.Context) error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if s.opts.Clipboard == nil {
		return &ExportError{Action: ActionCopy, Err: ErrNoSink}
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if err := s.opts.Clipboard.WriteImage(ctx, s.Flatten()); err != nil {
		log.Printf("pin %s: copy failed: %v", s.title, err)
		return &ExportError{Action: ActionCopy, Err: err}
	}
	return nil
}

func (s *Session) SaveToFile(ctx context.Context, path string) error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if s.opts.Files == nil {
		return &ExportError{Action: ActionSave, Path: path, Err: ErrNoSink}
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if err := s.opts.Files.Save(ctx, s.Flatten(), path); err != nil {
		log.Printf("pin %s: save to %s failed: %v", s.title, path, err)
		return &ExportError{Action: ActionSave, Path: path, Err: err}
	}
	return nil
}

// SaveDefault saves under the configured directory and filename template.
func (s *Session) SaveDefault(ctx context.Context) (string, error) {
	path, err := s.DefaultPath()
	if err != nil {
		return "", &ExportError{Action: ActionSave, Err: err}
	}
	if err := s.SaveToFile(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// DefaultPath is where SaveDefault would write right now.
func (s *Session) DefaultPath() (string, error) {
	return export.ResolvePath(s.opts.FilenameFormat, s.opts.SaveDirectory, s.opts.Now())
}

// ExportAndClose runs action and closes the session only if it succeeded.
// An empty path for ActionSave uses the default path.
func (s *Session) ExportAndClose(ctx context.Context, action Action, path string) error {
	var err error
	switch action {
	case ActionCopy:
		err = s.CopyToClipboard(ctx)
	case ActionSave:
		if path == "" {
			_, err = s.SaveDefault(ctx)
		} else {
			err = s.SaveToFile(ctx, path)
		}
	default:
		return fmt.Errorf("unknown export action %v", action)
	}
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

func (s *Session) requireActive() error {
	if st := s.State(); st != StateActive {
		return fmt.Errorf("%w (state %s)", ErrNotActive, st)
	}
	return nil
}
