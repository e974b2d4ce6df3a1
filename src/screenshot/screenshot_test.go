package screenshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"

	"snip/src/process"
	"snip/src/process/processtest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.SetRGBA(1, 1, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestGrimArgs(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    []string
		wantErr bool
	}{
		{"fullscreen", Request{Mode: ModeFullscreen}, []string{"-"}, false},
		{"fullscreen output", Request{Mode: ModeFullscreen, Output: "DP-1"}, []string{"-o", "DP-1", "-"}, false},
		{"region", Request{Mode: ModeRegion, Region: Region{X: 10, Y: 20, Width: 300, Height: 200}}, []string{"-g", "10,20 300x200", "-"}, false},
		{"window", Request{Mode: ModeWindow, Region: Region{X: 0, Y: 0, Width: 5, Height: 5}}, []string{"-g", "0,0 5x5", "-"}, false},
		{"empty region", Request{Mode: ModeRegion}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grimArgs(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("grimArgs error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("grimArgs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrimCaptureDecodesPNG(t *testing.T) {
	runner := processtest.New().On("grim", pngBytes(t, 4, 3), nil)
	g := &Grim{Runner: runner}

	img, err := g.Capture(context.Background(), Request{Mode: ModeFullscreen})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("Unexpected size %v", img.Bounds())
	}
	if px := img.RGBAAt(1, 1); px.R != 0xff {
		t.Fatalf("Pixel data lost: %+v", px)
	}
}

func TestGrimErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"missing binary", process.ErrNotFound, ErrBackendUnavailable},
		{"no screencopy", &process.ExitError{Name: "grim", Code: 1, Stderr: "compositor doesn't support wlr-screencopy-unstable-v1"}, ErrBackendUnavailable},
		{"denied", &process.ExitError{Name: "grim", Code: 1, Stderr: "Permission denied"}, ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := processtest.New().On("grim", nil, tt.err)
			_, err := (&Grim{Runner: runner}).Capture(context.Background(), Request{Mode: ModeFullscreen})
			if !errors.Is(err, tt.target) {
				t.Fatalf("Expected %v, got %v", tt.target, err)
			}
			var ce *CaptureError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *CaptureError, got %T", err)
			}
		})
	}
}

func TestGrimGarbageOutputFails(t *testing.T) {
	runner := processtest.New().On("grim", []byte("not a png"), nil)
	_, err := (&Grim{Runner: runner}).Capture(context.Background(), Request{Mode: ModeFullscreen})
	var ce *CaptureError
	if !errors.As(err, &ce) || ce.Kind != KindFailed {
		t.Fatalf("Expected KindFailed capture error, got %v", err)
	}
}

type stubBackend struct {
	name  string
	img   *image.RGBA
	err   error
	calls int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Capture(ctx context.Context, req Request) (*image.RGBA, error) {
	s.calls++
	return s.img, s.err
}

func TestChainFallsBackOnlyWhenUnavailable(t *testing.T) {
	want := image.NewRGBA(image.Rect(0, 0, 1, 1))

	unavailable := &stubBackend{name: "a", err: &CaptureError{Kind: KindBackendUnavailable}}
	second := &stubBackend{name: "b", img: want}
	img, err := Chain{unavailable, second}.Capture(context.Background(), Request{})
	if err != nil || img != want {
		t.Fatalf("Expected fallback image, got %v, %v", img, err)
	}

	denied := &stubBackend{name: "a", err: &CaptureError{Kind: KindPermissionDenied}}
	untouched := &stubBackend{name: "b", img: want}
	_, err = Chain{denied, untouched}.Capture(context.Background(), Request{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Expected permission error, got %v", err)
	}
	if untouched.calls != 0 {
		t.Fatal("Chain must not fall through on a real capture failure")
	}

	if _, err := (Chain{}).Capture(context.Background(), Request{}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Empty chain should be unavailable, got %v", err)
	}
	if got := (Chain{unavailable, second}).Name(); got != "a+b" {
		t.Fatalf("Unexpected chain name %q", got)
	}
}

func TestParseGeometry(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"10,20 300x200\n", Region{X: 10, Y: 20, Width: 300, Height: 200}, false},
		{"-1920,0 1920x1080", Region{X: -1920, Y: 0, Width: 1920, Height: 1080}, false},
		{"10,20", Region{}, true},
		{"a,b cxd", Region{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGeometry(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGeometry(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseGeometry(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
	r := Region{X: 3, Y: 4, Width: 5, Height: 6}
	if back, _ := ParseGeometry(r.Geometry()); back != r {
		t.Fatalf("Geometry round trip lost data: %+v", back)
	}
}

func TestActiveWindow(t *testing.T) {
	runner := processtest.New().On("hyprctl", []byte(`{"address":"0x1","at":[100,50],"size":[640,480],"title":"term"}`), nil)
	r, err := ActiveWindow(context.Background(), runner)
	if err != nil {
		t.Fatalf("ActiveWindow failed: %v", err)
	}
	if r != (Region{X: 100, Y: 50, Width: 640, Height: 480}) {
		t.Fatalf("Unexpected region %+v", r)
	}
	if calls := runner.CallsTo("hyprctl"); len(calls) != 1 || calls[0].String() != "hyprctl activewindow -j" {
		t.Fatalf("Unexpected calls %v", calls)
	}
}

func TestActiveWindowUnavailable(t *testing.T) {
	missing := processtest.New()
	missing.Missing["hyprctl"] = true
	if _, err := ActiveWindow(context.Background(), missing); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Expected unavailable without hyprctl, got %v", err)
	}

	empty := processtest.New().On("hyprctl", []byte(`{}`), nil)
	if _, err := ActiveWindow(context.Background(), empty); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("Expected unavailable with no focused window, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"region": ModeRegion, "Fullscreen": ModeFullscreen, "window": ModeWindow} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("lasso"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestX11Capture(t *testing.T) {
	// Requires a display; only checks the call does not panic.
	_, err := X11{}.Capture(context.Background(), Request{Mode: ModeFullscreen})
	if err != nil {
		t.Logf("Failed to capture screenshot (expected in headless environment): %v", err)
	}

	_, err = X11{}.Capture(context.Background(), Request{Mode: ModeRegion})
	if err == nil {
		t.Error("Expected error for invalid region dimensions")
	}
}

func TestOutputsFocusedFirst(t *testing.T) {
	runner := processtest.New().On("hyprctl", []byte(`[{"name":"DP-1","focused":false},{"name":"eDP-1","focused":true}]`), nil)
	got, err := Outputs(context.Background(), runner)
	if err != nil {
		t.Fatalf("Outputs failed: %v", err)
	}
	if len(got) != 2 || got[0] != "eDP-1" || got[1] != "DP-1" {
		t.Fatalf("Unexpected outputs %v", got)
	}
}
