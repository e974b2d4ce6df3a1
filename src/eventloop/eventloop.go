// Package eventloop is the resident coordinator for tray mode. Hotkeys, tray
// clicks and delegated command-line requests all become capture jobs that
// run one at a time.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"snip/src/config"
	"snip/src/hotkey"
	"snip/src/notification"
	"snip/src/overlay"
	"snip/src/pin"
	"snip/src/screenshot"
	"snip/src/session"
	"snip/src/singleinstance"
	"snip/src/tray"
	"snip/src/worker"
)

var ErrBusy = errors.New("busy, please retry")

// Request is one capture asked of the loop.
type Request struct {
	Mode screenshot.Mode
	Pin  bool
}

type Options struct {
	Config       *config.Config
	Backend      screenshot.Backend
	Selector     overlay.Selector
	LocateWindow session.WindowLocatorFunc
	Presenter    session.Presenter
	Clipboard    pin.ClipboardSink
	Files        pin.FileSink
	// Server defaults to singleinstance.NewServer.
	Server singleinstance.Server
}

// Loop is single-threaded: everything except region selection and the
// capture itself runs on the goroutine that called Run.
type Loop struct {
	opts           Options
	pool           *worker.Pool
	srv            singleinstance.Server
	busy           bool
	resolved       chan resolution
	results        chan result
	requests       chan Request
	defaultTooltip string
	timeout        time.Duration
}

type resolution struct {
	capReq screenshot.Request
	err    error
	req    Request
	target resultTarget
}

type result struct {
	img    *image.RGBA
	err    error
	req    Request
	target resultTarget
	cancel context.CancelFunc
}

type resultTarget interface {
	OnSuccess(res session.Result)
	OnError(err error)
	Close()
}

// notifyTarget reports through desktop notifications; used for hotkeys and
// tray clicks.
type notifyTarget struct{}

func (notifyTarget) OnSuccess(res session.Result) {
	for _, w := range res.Warnings {
		notification.Notify("Snip", w.Error())
	}
}

func (notifyTarget) OnError(err error) {
	if errors.Is(err, screenshot.ErrSelectionCancelled) {
		return
	}
	notification.Notify("Capture failed", err.Error())
}

func (notifyTarget) Close() {}

// connTarget answers a delegated command-line request.
type connTarget struct {
	conn singleinstance.Conn
}

func (t connTarget) OnSuccess(res session.Result) {
	msg := res.Presented.String()
	if res.SavedPath != "" {
		msg = res.SavedPath
	}
	if err := t.conn.RespondSuccess(msg); err != nil {
		log.Printf("eventloop: respond: %v", err)
	}
}

func (t connTarget) OnError(err error) {
	if rerr := t.conn.RespondError(err.Error()); rerr != nil {
		log.Printf("eventloop: respond: %v", rerr)
	}
}

func (t connTarget) Close() { _ = t.conn.Close() }

func New(opts Options) *Loop {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	srv := opts.Server
	if srv == nil {
		srv = singleinstance.NewServer()
	}
	l := &Loop{
		opts:           opts,
		srv:            srv,
		resolved:       make(chan resolution, 1),
		results:        make(chan result, 1),
		requests:       make(chan Request, 4),
		defaultTooltip: tray.DefaultTooltip,
		timeout:        opts.Config.ExternalTimeout(),
	}
	l.pool = worker.New(1, l.capture)
	return l
}

func (l *Loop) capture(ctx context.Context, req screenshot.Request) (*image.RGBA, error) {
	if l.opts.Backend == nil {
		return nil, &screenshot.CaptureError{Kind: screenshot.KindBackendUnavailable, Err: screenshot.ErrBackendUnavailable}
	}
	return session.CaptureRequest(ctx, l.opts.Backend, req, l.timeout)
}

// SetDefaultTooltip optionally sets the idle tray tooltip.
func (l *Loop) SetDefaultTooltip(tt string) { l.defaultTooltip = tt }

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if b {
		tray.UpdateTooltip("Snip: capturing...")
	} else {
		tray.UpdateTooltip(l.defaultTooltip)
	}
}

// Trigger queues req without blocking; it is dropped when the queue is full.
// Safe from any goroutine.
func (l *Loop) Trigger(req Request) bool {
	select {
	case l.requests <- req:
		return true
	default:
		log.Printf("eventloop: request queue full, dropping %s", req.Mode)
		return false
	}
}

// StartHotkeys binds the configured shortcuts to Trigger.
func (l *Loop) StartHotkeys(sc config.ShortcutsConfig) error {
	bind := func(combo string, mode screenshot.Mode) hotkey.Binding {
		return hotkey.Binding{Combo: combo, Callback: func() { l.Trigger(Request{Mode: mode}) }}
	}
	return hotkey.Listen([]hotkey.Binding{
		bind(sc.CaptureRegion, screenshot.ModeRegion),
		bind(sc.CaptureFullscreen, screenshot.ModeFullscreen),
		bind(sc.CaptureWindow, screenshot.ModeWindow),
	})
}

// Run starts the single-instance server and processes requests until ctx
// is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.srv.Start(ctx); err != nil {
		l.pool.Close()
		return fmt.Errorf("failed to open the resident endpoint: %w", err)
	}
	defer l.srv.Close()
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
		tray.SetAboutExtra(fmt.Sprintf("port %d", p))
	}
	defer l.pool.Close()

	connCh := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(connCh)
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				return
			}
			connCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-l.requests:
			l.startRequest(ctx, req, notifyTarget{})
		case conn, ok := <-connCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case r := <-l.resolved:
			l.handleResolved(ctx, r)
		case res := <-l.results:
			l.handleResult(ctx, res)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := connTarget{conn: conn}
	mode, err := screenshot.ParseMode(conn.Request().Mode)
	if err != nil {
		target.OnError(err)
		target.Close()
		return
	}
	l.startRequest(ctx, Request{Mode: mode, Pin: conn.Request().Pin}, target)
}

func (l *Loop) sessionOptions(req Request) session.Options {
	cfg := l.opts.Config
	return session.Options{
		Mode:           req.Mode,
		Backend:        l.opts.Backend,
		Selector:       l.opts.Selector,
		LocateWindow:   l.opts.LocateWindow,
		CaptureTimeout: l.timeout,
		Annotate:       !req.Pin,
		Pin:            req.Pin,
		AutoCopy:       cfg.Screenshot.CopyToClipboard,
		AutoSave:       cfg.Screenshot.AutoSave,
		SaveDirectory:  cfg.Screenshot.SaveDirectory,
		FilenameFormat: cfg.Screenshot.FilenameFormat,
		ClipboardSink:  l.opts.Clipboard,
		Files:          l.opts.Files,
		Present:        l.opts.Presenter,
	}
}

func (l *Loop) startRequest(ctx context.Context, req Request, target resultTarget) {
	log.Printf("eventloop: %s request (pin=%v)", req.Mode, req.Pin)
	if l.busy {
		log.Printf("eventloop: busy, rejecting request")
		target.OnError(ErrBusy)
		target.Close()
		return
	}

	// Selection waits on the user, so it runs off the loop goroutine and
	// the loop keeps answering with ErrBusy meanwhile.
	l.setBusy(true)
	opts := l.sessionOptions(req)
	go func() {
		capReq, err := session.Resolve(ctx, opts)
		select {
		case l.resolved <- resolution{capReq: capReq, err: err, req: req, target: target}:
		case <-ctx.Done():
			target.OnError(ctx.Err())
			target.Close()
		}
	}()
}

func (l *Loop) handleResolved(ctx context.Context, r resolution) {
	if r.err != nil {
		log.Printf("eventloop: resolve failed: %v", r.err)
		l.setBusy(false)
		r.target.OnError(r.err)
		r.target.Close()
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.timeout)
	target, req := r.target, r.req
	submitted := l.pool.Submit(jobCtx, r.capReq, func(img *image.RGBA, err error) {
		l.results <- result{img: img, err: err, req: req, target: target, cancel: cancel}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		target.OnError(ErrBusy)
		target.Close()
	}
}

func (l *Loop) handleResult(ctx context.Context, res result) {
	defer func() {
		l.setBusy(false)
		if res.cancel != nil {
			res.cancel()
		}
		res.target.Close()
	}()

	if res.err != nil {
		log.Printf("eventloop: capture error: %v", res.err)
		res.target.OnError(res.err)
		return
	}
	out, err := session.Deliver(ctx, l.sessionOptions(res.req), res.img)
	if err != nil {
		log.Printf("eventloop: delivery error: %v", err)
		res.target.OnError(err)
		return
	}
	res.target.OnSuccess(out)
}
