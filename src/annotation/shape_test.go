package annotation

import (
	"math"
	"testing"

	"snip/src/geometry"
)

func line(x0, y0, x1, y1 float64) Shape {
	return Shape{Kind: ToolLine, P0: geometry.Pt(x0, y0), P1: geometry.Pt(x1, y1), Style: Style{LineWidth: 2}}
}

func TestHitTestPicksMostRecent(t *testing.T) {
	shapes := []Shape{
		line(0, 50, 100, 50),
		line(0, 52, 100, 52),
		line(0, 200, 100, 200),
	}
	got := HitTest(shapes, geometry.Pt(50, 51), 3, geometry.Identity())
	if got != 1 {
		t.Fatalf("Expected most recent overlapping shape (1), got %d", got)
	}
}

func TestHitTestMissReturnsMinusOne(t *testing.T) {
	shapes := []Shape{line(0, 0, 10, 0)}
	if got := HitTest(shapes, geometry.Pt(5, 30), 3, geometry.Identity()); got != -1 {
		t.Fatalf("Expected -1, got %d", got)
	}
	if got := HitTest(nil, geometry.Pt(0, 0), 3, geometry.Identity()); got != -1 {
		t.Fatalf("Expected -1 for empty history, got %d", got)
	}
}

func TestHitTestToleranceScalesWithZoom(t *testing.T) {
	shapes := []Shape{{Kind: ToolLine, P0: geometry.Pt(0, 0), P1: geometry.Pt(100, 0)}}

	// A 3 canvas pixel gap is 3 screen pixels at 1x, inside a 5px tolerance.
	if got := HitTest(shapes, geometry.Pt(50, 3), 5, geometry.Identity()); got != 0 {
		t.Fatalf("Expected hit at 1x, got %d", got)
	}

	// At 4x the same canvas gap is 12 screen pixels.
	zoomed := geometry.Identity().ZoomTo(geometry.Pt(0, 0), 4)
	if got := HitTest(shapes, geometry.Pt(200, 12), 5, zoomed); got != -1 {
		t.Fatalf("Expected miss at 4x, got %d", got)
	}
}

func TestHitTestUsesOutlineNotFill(t *testing.T) {
	rect := Shape{Kind: ToolRectangle, P0: geometry.Pt(0, 0), P1: geometry.Pt(100, 100), Style: Style{LineWidth: 2}}
	ellipse := Shape{Kind: ToolEllipse, P0: geometry.Pt(200, 0), P1: geometry.Pt(300, 100), Style: Style{LineWidth: 2}}
	shapes := []Shape{rect, ellipse}

	tests := []struct {
		name string
		pt   geometry.Point
		want int
	}{
		{"rect interior", geometry.Pt(50, 50), -1},
		{"rect edge", geometry.Pt(50, 1), 0},
		{"ellipse interior", geometry.Pt(250, 50), -1},
		{"ellipse edge", geometry.Pt(300, 50), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitTest(shapes, tt.pt, 3, geometry.Identity()); got != tt.want {
				t.Fatalf("HitTest(%v) = %d, want %d", tt.pt, got, tt.want)
			}
		})
	}
}

func TestHitTestTextUsesBox(t *testing.T) {
	txt := Shape{Kind: ToolText, P0: geometry.Pt(10, 10), Text: "hello", Style: Style{FontSize: 20}}
	w, h := MeasureText("hello", 20)
	if w <= 0 || h <= 0 {
		t.Fatalf("Expected positive text extent, got %vx%v", w, h)
	}
	inside := geometry.Pt(10+w/2, 10+h/2)
	if got := HitTest([]Shape{txt}, inside, 1, geometry.Identity()); got != 0 {
		t.Fatalf("Expected hit inside text box, got %d", got)
	}
	if got := HitTest([]Shape{txt}, geometry.Pt(10+w+20, 10), 1, geometry.Identity()); got != -1 {
		t.Fatalf("Expected miss right of text box, got %d", got)
	}
}

func TestArrowHeadGeometry(t *testing.T) {
	left, right := ArrowHead(geometry.Pt(0, 0), geometry.Pt(100, 0), 2)
	for _, barb := range []geometry.Point{left, right} {
		if d := geometry.Distance(barb, geometry.Pt(100, 0)); math.Abs(d-arrowHeadMinLength) > 1e-9 {
			t.Fatalf("Expected barb length %v, got %v", arrowHeadMinLength, d)
		}
		if barb.X >= 100 {
			t.Fatalf("Barb should trail the tip, got %v", barb)
		}
	}
	if left.Y == right.Y {
		t.Fatal("Barbs should be mirrored across the shaft")
	}

	l2, _ := ArrowHead(geometry.Pt(0, 0), geometry.Pt(100, 0), 10)
	if d := geometry.Distance(l2, geometry.Pt(100, 0)); math.Abs(d-30) > 1e-9 {
		t.Fatalf("Expected thick arrow barb length 30, got %v", d)
	}
}

func TestParseTool(t *testing.T) {
	tests := []struct {
		in      string
		want    Tool
		wantErr bool
	}{
		{"pen", ToolPen, false},
		{"Rect", ToolRectangle, false},
		{" ellipse ", ToolEllipse, false},
		{"highlight", ToolHighlighter, false},
		{"", ToolNone, false},
		{"lasso", ToolNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTool(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTool(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseTool(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEllipseCenterAndRadii(t *testing.T) {
	s := Shape{Kind: ToolEllipse, P0: geometry.Pt(40, 30), P1: geometry.Pt(10, 10)}
	if c := s.Center(); c != geometry.Pt(25, 20) {
		t.Fatalf("Unexpected center %v", c)
	}
	if r := s.Radii(); r != geometry.Pt(15, 10) {
		t.Fatalf("Unexpected radii %v", r)
	}
}
