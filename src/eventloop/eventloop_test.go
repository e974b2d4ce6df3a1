package eventloop

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"snip/src/config"
	"snip/src/screenshot"
	"snip/src/singleinstance"
)

type fakeBackend struct {
	block chan struct{}
	calls chan screenshot.Request
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Capture(ctx context.Context, req screenshot.Request) (*image.RGBA, error) {
	if b.calls != nil {
		b.calls <- req
	}
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 3)), nil
}

type fakeSelector struct {
	region    screenshot.Region
	cancelled bool
	// entered and block hold the selection open while set.
	entered chan struct{}
	block   chan struct{}
}

func (s fakeSelector) Select(ctx context.Context) (screenshot.Region, bool, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return screenshot.Region{}, false, ctx.Err()
		}
	}
	return s.region, s.cancelled, nil
}

type presented struct {
	pin bool
	img *image.RGBA
}

type fakePresenter struct {
	ch chan presented
}

func (p fakePresenter) Annotate(img *image.RGBA) error {
	p.ch <- presented{img: img}
	return nil
}

func (p fakePresenter) Pin(img *image.RGBA) error {
	p.ch <- presented{pin: true, img: img}
	return nil
}

type fakeConn struct {
	req  singleinstance.Request
	mu   sync.Mutex
	ok   []string
	errs []string
	done chan struct{}
}

func newFakeConn(mode string, pin bool) *fakeConn {
	return &fakeConn{req: singleinstance.Request{Mode: mode, Pin: pin}, done: make(chan struct{})}
}

func (c *fakeConn) Request() singleinstance.Request { return c.req }

func (c *fakeConn) RespondSuccess(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok = append(c.ok, text)
	return nil
}

func (c *fakeConn) RespondError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, msg)
	return nil
}

func (c *fakeConn) Close() error {
	close(c.done)
	return nil
}

func (c *fakeConn) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was never answered")
	}
}

type fakeServer struct {
	startErr error
	conns    chan singleinstance.Conn
}

func newFakeServer() *fakeServer {
	return &fakeServer{conns: make(chan singleinstance.Conn, 4)}
}

func (s *fakeServer) Start(ctx context.Context) error { return s.startErr }
func (s *fakeServer) Port() int                       { return 0 }
func (s *fakeServer) Close() error                    { return nil }

func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	select {
	case c := <-s.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Screenshot.CopyToClipboard = false
	cfg.Screenshot.AutoSave = false
	return cfg
}

func startLoop(t *testing.T, opts Options) (*Loop, *fakeServer) {
	t.Helper()
	srv := newFakeServer()
	opts.Server = srv
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	l := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, srv
}

func TestTriggerCapturesAndAnnotates(t *testing.T) {
	p := fakePresenter{ch: make(chan presented, 1)}
	region := screenshot.Region{X: 1, Y: 2, Width: 30, Height: 40}
	backend := &fakeBackend{calls: make(chan screenshot.Request, 1)}
	l, _ := startLoop(t, Options{Backend: backend, Selector: fakeSelector{region: region}, Presenter: p})

	if !l.Trigger(Request{Mode: screenshot.ModeRegion}) {
		t.Fatal("Trigger was dropped")
	}
	select {
	case req := <-backend.calls:
		if req.Region != region {
			t.Fatalf("Capture got region %+v, want %+v", req.Region, region)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("backend never called")
	}
	select {
	case got := <-p.ch:
		if got.pin || got.img == nil {
			t.Fatalf("Expected an annotate window, got %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nothing presented")
	}
}

func TestDelegatedPinRequest(t *testing.T) {
	p := fakePresenter{ch: make(chan presented, 1)}
	_, srv := startLoop(t, Options{Backend: &fakeBackend{}, Presenter: p})

	conn := newFakeConn("fullscreen", true)
	srv.conns <- conn
	conn.wait(t)

	got := <-p.ch
	if !got.pin {
		t.Fatal("Expected a pin window")
	}
	if len(conn.ok) != 1 || conn.ok[0] != "pin" {
		t.Fatalf("Unexpected responses ok=%v errs=%v", conn.ok, conn.errs)
	}
}

func TestDelegatedSelectionCancelled(t *testing.T) {
	p := fakePresenter{ch: make(chan presented, 1)}
	_, srv := startLoop(t, Options{Backend: &fakeBackend{}, Selector: fakeSelector{cancelled: true}, Presenter: p})

	conn := newFakeConn("region", false)
	srv.conns <- conn
	conn.wait(t)

	if len(conn.errs) != 1 || !strings.Contains(conn.errs[0], "cancelled") {
		t.Fatalf("Expected a cancellation error, got ok=%v errs=%v", conn.ok, conn.errs)
	}
	select {
	case <-p.ch:
		t.Fatal("Nothing should be presented for a cancelled selection")
	default:
	}
}

func TestDelegatedBadMode(t *testing.T) {
	_, srv := startLoop(t, Options{Backend: &fakeBackend{}})
	conn := newFakeConn("everything", false)
	srv.conns <- conn
	conn.wait(t)
	if len(conn.errs) != 1 {
		t.Fatalf("Expected one error response, got %v", conn.errs)
	}
}

func TestBusyRejectsSecondRequest(t *testing.T) {
	p := fakePresenter{ch: make(chan presented, 2)}
	backend := &fakeBackend{block: make(chan struct{}), calls: make(chan screenshot.Request, 2)}
	_, srv := startLoop(t, Options{Backend: backend, Presenter: p})

	first := newFakeConn("fullscreen", false)
	srv.conns <- first
	<-backend.calls

	second := newFakeConn("fullscreen", false)
	srv.conns <- second
	second.wait(t)
	if len(second.errs) != 1 || second.errs[0] != ErrBusy.Error() {
		t.Fatalf("Expected busy error, got ok=%v errs=%v", second.ok, second.errs)
	}

	close(backend.block)
	first.wait(t)
	if len(first.ok) != 1 {
		t.Fatalf("First request should succeed, got errs=%v", first.errs)
	}
}

func TestBusyWhileSelecting(t *testing.T) {
	p := fakePresenter{ch: make(chan presented, 2)}
	sel := fakeSelector{
		region:  screenshot.Region{Width: 10, Height: 10},
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	_, srv := startLoop(t, Options{Backend: &fakeBackend{}, Selector: sel, Presenter: p})

	first := newFakeConn("region", false)
	srv.conns <- first
	select {
	case <-sel.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("selection never started")
	}

	second := newFakeConn("fullscreen", false)
	srv.conns <- second
	second.wait(t)
	if len(second.errs) != 1 || second.errs[0] != ErrBusy.Error() {
		t.Fatalf("Expected busy error during selection, got ok=%v errs=%v", second.ok, second.errs)
	}

	close(sel.block)
	first.wait(t)
	if len(first.ok) != 1 {
		t.Fatalf("First request should succeed, got errs=%v", first.errs)
	}
}

func TestRunFailsWhenAnotherResidentOwnsThePort(t *testing.T) {
	srv := newFakeServer()
	srv.startErr = errors.New("address in use")
	l := New(Options{Server: srv, Config: testConfig()})
	if err := l.Run(context.Background()); err == nil || !errors.Is(err, srv.startErr) {
		t.Fatalf("Expected start error, got %v", err)
	}
}

type fakeSpawner struct {
	name string
	args []string
	err  error
}

func (s *fakeSpawner) Spawn(name string, args ...string) (int, error) {
	s.name, s.args = name, args
	return 42, s.err
}

func TestProcessPresenterHandsOffImage(t *testing.T) {
	dir := t.TempDir()
	sp := &fakeSpawner{}
	p := ProcessPresenter{Spawner: sp, Executable: "/usr/bin/snip", Dir: dir}

	if err := p.Pin(image.NewRGBA(image.Rect(0, 0, 5, 6))); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}
	if sp.name != "/usr/bin/snip" || len(sp.args) != 4 || sp.args[0] != "open" || sp.args[1] != "--pin" || sp.args[2] != "--remove" {
		t.Fatalf("Unexpected spawn %s %v", sp.name, sp.args)
	}
	f, err := os.Open(sp.args[3])
	if err != nil {
		t.Fatalf("hand-off file missing: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil || img.Bounds().Dx() != 5 {
		t.Fatalf("hand-off file is not the image: %v", err)
	}
	if filepath.Dir(sp.args[3]) != dir {
		t.Fatalf("hand-off file outside %s: %s", dir, sp.args[3])
	}
}

func TestProcessPresenterCleansUpOnSpawnFailure(t *testing.T) {
	dir := t.TempDir()
	sp := &fakeSpawner{err: errors.New("exec format error")}
	p := ProcessPresenter{Spawner: sp, Executable: "/usr/bin/snip", Dir: dir}
	if err := p.Annotate(image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Fatal("Expected spawn error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("Expected hand-off file removed, found %d entries", len(entries))
	}
}
