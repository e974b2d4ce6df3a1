package geometry

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestRoundTrip(t *testing.T) {
	transforms := []Transform{
		Identity(),
		{Scale: 2.5, Offset: Pt(-40, 13), MinScale: 0.1, MaxScale: 5},
		{Scale: 0.1, Offset: Pt(1000, -1000), MinScale: 0.1, MaxScale: 5},
		{Scale: 4.3, Offset: Pt(0.25, 0.75), MinScale: 0.1, MaxScale: 5},
	}
	points := []Point{Pt(0, 0), Pt(1, 1), Pt(-17.5, 300), Pt(1920, 1080), Pt(0.001, -0.001)}

	for _, tr := range transforms {
		for _, p := range points {
			got := tr.ToScreen(tr.ToCanvas(p))
			if !near(got, p) {
				t.Errorf("scale=%v offset=%v: ToScreen(ToCanvas(%v)) = %v", tr.Scale, tr.Offset, p, got)
			}
		}
	}
}

func TestZoomKeepsFocalPoint(t *testing.T) {
	tr := Identity().Pan(Pt(30, -12))
	focals := []Point{Pt(0, 0), Pt(250, 125), Pt(-40, 900)}
	deltas := []float64{1, -1, 3, -2.5, 0.5}

	for _, focal := range focals {
		for _, delta := range deltas {
			before := tr.ToCanvas(focal)
			zoomed := tr.Zoom(focal, delta)
			after := zoomed.ToCanvas(focal)
			if !near(before, after) {
				t.Errorf("focal=%v delta=%v: canvas point moved from %v to %v", focal, delta, before, after)
			}
		}
	}
}

func TestZoomUsesStep(t *testing.T) {
	tr := Identity()
	zoomed := tr.Zoom(Pt(0, 0), 1)
	if math.Abs(zoomed.Scale-DefaultZoomStep) > eps {
		t.Fatalf("Expected scale %v after one notch, got %v", DefaultZoomStep, zoomed.Scale)
	}
	back := zoomed.Zoom(Pt(0, 0), -1)
	if math.Abs(back.Scale-1) > eps {
		t.Fatalf("Expected scale 1 after zooming back, got %v", back.Scale)
	}
}

func TestZoomClampsAtMax(t *testing.T) {
	tr := NewTransform(0.5, 2)
	focal := Pt(100, 100)
	for i := 0; i < 100; i++ {
		tr = tr.Zoom(focal, 1)
		if tr.Scale > tr.MaxScale {
			t.Fatalf("Scale %v exceeded max %v", tr.Scale, tr.MaxScale)
		}
	}
	if tr.Scale != 2 {
		t.Fatalf("Expected scale pinned at 2, got %v", tr.Scale)
	}

	pinned := tr
	again := tr.Zoom(focal, 1)
	if again != pinned {
		t.Fatalf("Zooming past the bound should be a no-op, got %+v", again)
	}
	if !again.AtMax() {
		t.Fatal("Expected AtMax to report true")
	}
}

func TestZoomClampsAtMin(t *testing.T) {
	tr := NewTransform(0.5, 2)
	for i := 0; i < 100; i++ {
		tr = tr.Zoom(Pt(10, 10), -1)
	}
	if tr.Scale != 0.5 {
		t.Fatalf("Expected scale pinned at 0.5, got %v", tr.Scale)
	}
	if !tr.AtMin() {
		t.Fatal("Expected AtMin to report true")
	}
}

func TestPanAddsDelta(t *testing.T) {
	tr := Identity().Zoom(Pt(0, 0), 2)
	panned := tr.Pan(Pt(5, -7))
	if panned.Offset != (Point{X: tr.Offset.X + 5, Y: tr.Offset.Y - 7}) {
		t.Fatalf("Unexpected offset after pan: %v", panned.Offset)
	}
	if panned.Scale != tr.Scale {
		t.Fatalf("Pan changed scale from %v to %v", tr.Scale, panned.Scale)
	}
}

func TestNewTransformFallsBackOnBadBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
	}{
		{"zero", 0, 0},
		{"negative", -1, -3},
		{"inverted", 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransform(tt.min, tt.max)
			if tr.MinScale != DefaultMinScale || tr.MaxScale != DefaultMaxScale {
				t.Fatalf("Expected default bounds, got [%v, %v]", tr.MinScale, tr.MaxScale)
			}
			if tr.Scale != 1 {
				t.Fatalf("Expected scale 1, got %v", tr.Scale)
			}
		})
	}
}

func TestWithScaleClamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.05, 0.1},
		{2, 2},
		{9, 5},
		{0, 1},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		tr := NewTransform(0.1, 5)
		tr.Offset = Point{X: 3, Y: 4}
		got := tr.WithScale(tt.in)
		if got.Scale != tt.want {
			t.Errorf("WithScale(%v).Scale = %v, want %v", tt.in, got.Scale, tt.want)
		}
		if got.Offset != tr.Offset {
			t.Errorf("WithScale(%v) moved the offset to %v", tt.in, got.Offset)
		}
	}
}

func TestResetKeepsBounds(t *testing.T) {
	tr := NewTransform(0.2, 3).Zoom(Pt(50, 50), 4).Pan(Pt(9, 9))
	reset := tr.Reset()
	if reset.Scale != 1 || reset.Offset != (Point{}) {
		t.Fatalf("Expected identity view, got scale=%v offset=%v", reset.Scale, reset.Offset)
	}
	if reset.MinScale != 0.2 || reset.MaxScale != 3 {
		t.Fatalf("Reset lost bounds: [%v, %v]", reset.MinScale, reset.MaxScale)
	}
}
