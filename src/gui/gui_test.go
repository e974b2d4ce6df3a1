package gui

import (
	"image"
	"math"
	"os"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"snip/src/annotation"
	"snip/src/config"
	"snip/src/interaction"
	"snip/src/pin"
)

func TestFitScale(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want float64
	}{
		{"small image stays 1:1", 640, 480, 1},
		{"too wide", 2560, 900, 0.5},
		{"too tall", 1280, 1800, 0.5},
		{"both, tighter wins", 3840, 1800, 1.0 / 3},
		{"empty", 0, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitScale(tt.w, tt.h, maxWindowW, maxWindowH)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("fitScale(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestWindowSize(t *testing.T) {
	got := windowSize(101, 50, 0.5)
	if got.Width != 51 || got.Height != 25 {
		t.Fatalf("windowSize = %v, want 51x25", got)
	}
}

func TestMapButton(t *testing.T) {
	tests := []struct {
		in   desktop.MouseButton
		want interaction.Button
		ok   bool
	}{
		{desktop.MouseButtonPrimary, interaction.ButtonPrimary, true},
		{desktop.MouseButtonSecondary, interaction.ButtonSecondary, true},
		{desktop.MouseButtonTertiary, interaction.ButtonMiddle, true},
		{0, 0, false},
	}
	for _, tt := range tests {
		got, ok := mapButton(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("mapButton(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScrollNotches(t *testing.T) {
	if got := scrollNotches(20); got != 2 {
		t.Fatalf("scrollNotches(20) = %v, want 2", got)
	}
	if got := scrollNotches(-5); got != -0.5 {
		t.Fatalf("scrollNotches(-5) = %v, want -0.5", got)
	}
}

func TestRuneAction(t *testing.T) {
	tests := []struct {
		r     rune
		tool  int
		close bool
	}{
		{'0', 0, false},
		{'4', 4, false},
		{'7', 7, false},
		{'8', -1, false},
		{'q', -1, true},
		{'Q', -1, true},
		{'x', -1, false},
	}
	for _, tt := range tests {
		got := runeAction(tt.r)
		if got.tool != tt.tool || got.close != tt.close {
			t.Errorf("runeAction(%q) = %+v, want tool %d close %v", tt.r, got, tt.tool, tt.close)
		}
	}
	if toolOrder[4] != annotation.ToolRectangle {
		t.Fatalf("key 4 should select the rectangle tool, got %s", toolOrder[4])
	}
}

func TestParseDelay(t *testing.T) {
	for choice, want := range map[string]time.Duration{
		"No delay":  0,
		"1 second":  time.Second,
		"5 seconds": 5 * time.Second,
	} {
		if got := parseDelay(choice); got != want {
			t.Errorf("parseDelay(%q) = %v, want %v", choice, got, want)
		}
	}
}

func newTestSession(t *testing.T) *pin.Session {
	t.Helper()
	s, err := pin.NewSession(pin.Options{
		Image: image.NewRGBA(image.Rect(0, 0, 200, 100)),
		Style: config.Default().AnnotationStyle(),
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	return s
}

func TestCanvasViewDrawsRectangle(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	s := newTestSession(t)
	v := newCanvasView(s)
	w := test.NewWindow(v)
	defer w.Close()
	w.Resize(fyne.NewSize(200, 100))

	changes := 0
	v.onChange = func() { changes++ }
	s.Controller().SelectTool(annotation.ToolRectangle)

	v.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonPrimary})
	v.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 40)}})
	v.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 40)}, Button: desktop.MouseButtonPrimary})

	if s.Engine().Len() != 1 {
		t.Fatalf("Expected one committed shape, got %d", s.Engine().Len())
	}
	if changes == 0 {
		t.Fatal("Expected the view to report changes")
	}
	shape := s.Engine().Shapes()[0]
	if shape.Kind != annotation.ToolRectangle {
		t.Fatalf("Expected a rectangle, got %s", shape.Kind)
	}
}

func TestCanvasViewIgnoresUnpairedMouseUp(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	s := newTestSession(t)
	v := newCanvasView(s)
	s.Controller().SelectTool(annotation.ToolLine)

	v.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(1, 1)}, Button: desktop.MouseButtonPrimary})
	v.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 30)}})
	v.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 30)}, Button: desktop.MouseButtonSecondary})

	if !s.Engine().Drafting() {
		t.Fatal("A release of a different button must not end the stroke")
	}
}

func TestInteractiveAnnotateWindow(t *testing.T) {
	if os.Getenv("SNIP_INTERACTIVE_TESTS") != "1" {
		t.Skip("set SNIP_INTERACTIVE_TESTS=1 to open an annotation window")
	}
	a := New(Deps{Config: config.Default()})
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	if err := a.Annotate(img); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	a.Run()
	if a.Sessions() != 0 {
		t.Fatalf("Expected every session closed after Run, got %d", a.Sessions())
	}
}
