// Package annotation holds the vector overlay model: shapes, tools, styles and
// the Engine that owns committed history and the in-progress draft.
//
// All coordinates are canvas coordinates. Nothing in this package knows about
// zoom or pan except HitTest, which converts a screen query into canvas space.
package annotation

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"snip/src/geometry"
)

// Tool is the active drawing tool. It doubles as the kind tag of a Shape.
type Tool int

const (
	ToolNone Tool = iota
	ToolPen
	ToolLine
	ToolArrow
	ToolRectangle
	ToolEllipse
	ToolHighlighter
	ToolText
)

var toolNames = map[Tool]string{
	ToolNone:        "none",
	ToolPen:         "pen",
	ToolLine:        "line",
	ToolArrow:       "arrow",
	ToolRectangle:   "rectangle",
	ToolEllipse:     "ellipse",
	ToolHighlighter: "highlighter",
	ToolText:        "text",
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// ParseTool accepts the lowercase tool names plus a few short aliases.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "pan":
		return ToolNone, nil
	case "pen", "draw":
		return ToolPen, nil
	case "line":
		return ToolLine, nil
	case "arrow":
		return ToolArrow, nil
	case "rect", "rectangle":
		return ToolRectangle, nil
	case "ellipse", "circle":
		return ToolEllipse, nil
	case "highlighter", "highlight", "marker":
		return ToolHighlighter, nil
	case "text":
		return ToolText, nil
	default:
		return ToolNone, fmt.Errorf("unknown tool %q", s)
	}
}

// Freehand reports whether the tool records a polyline rather than two endpoints.
func (t Tool) Freehand() bool {
	return t == ToolPen || t == ToolHighlighter
}

// Style is captured into a shape when its draft begins.
type Style struct {
	Color     color.RGBA
	LineWidth float64
	FontSize  float64
}

// DefaultStyle mirrors the built-in configuration defaults.
func DefaultStyle() Style {
	return Style{
		Color:     color.RGBA{R: 0xFF, A: 0xFF},
		LineWidth: 3,
		FontSize:  14,
	}
}

// Shape is a tagged variant over the tool set. Which fields are meaningful
// depends on Kind:
//
//	Pen, Highlighter         Points
//	Line, Arrow, Rectangle   P0, P1
//	Ellipse                  P0, P1 as the drag box; see Center and Radii
//	Text                     P0 as the top-left anchor, Text
type Shape struct {
	Kind   Tool
	Points []geometry.Point
	P0, P1 geometry.Point
	Text   string
	Style  Style
}

// Clone returns a deep copy so callers can never alias engine history.
func (s Shape) Clone() Shape {
	if s.Points != nil {
		pts := make([]geometry.Point, len(s.Points))
		copy(pts, s.Points)
		s.Points = pts
	}
	return s
}

// Center of an ellipse shape.
func (s Shape) Center() geometry.Point {
	return geometry.Pt((s.P0.X+s.P1.X)/2, (s.P0.Y+s.P1.Y)/2)
}

// Radii of an ellipse shape, always non-negative.
func (s Shape) Radii() geometry.Point {
	return geometry.Pt(math.Abs(s.P1.X-s.P0.X)/2, math.Abs(s.P1.Y-s.P0.Y)/2)
}

// Degenerate reports whether the shape would be invisible and must not be
// committed.
func (s Shape) Degenerate() bool {
	switch s.Kind {
	case ToolPen, ToolHighlighter:
		return len(s.Points) < 2
	case ToolLine, ToolArrow, ToolRectangle, ToolEllipse:
		return s.P0 == s.P1
	case ToolText:
		return strings.TrimSpace(s.Text) == ""
	default:
		return true
	}
}

// Bounds is the canvas-space bounding box of the shape's geometry, not
// including stroke width.
func (s Shape) Bounds() geometry.Rect {
	switch s.Kind {
	case ToolPen, ToolHighlighter:
		return geometry.BoundingBox(s.Points)
	case ToolText:
		w, h := MeasureText(s.Text, s.Style.FontSize)
		return geometry.Rect{Min: s.P0, Max: geometry.Pt(s.P0.X+w, s.P0.Y+h)}
	default:
		return geometry.RectFromPoints(s.P0, s.P1)
	}
}

// Distance returns the canvas-space distance from p to the drawn outline.
// Closed shapes measure to the outline, never the interior; text is treated
// as a solid box.
func (s Shape) Distance(p geometry.Point) float64 {
	switch s.Kind {
	case ToolPen, ToolHighlighter:
		return geometry.DistanceToPolyline(p, s.Points)
	case ToolLine:
		return geometry.DistanceToSegment(p, s.P0, s.P1)
	case ToolArrow:
		d := geometry.DistanceToSegment(p, s.P0, s.P1)
		left, right := ArrowHead(s.P0, s.P1, s.Style.LineWidth)
		d = math.Min(d, geometry.DistanceToSegment(p, s.P1, left))
		return math.Min(d, geometry.DistanceToSegment(p, s.P1, right))
	case ToolRectangle:
		return geometry.DistanceToRectOutline(p, geometry.RectFromPoints(s.P0, s.P1))
	case ToolEllipse:
		return geometry.DistanceToEllipseOutline(p, s.Center(), s.Radii())
	case ToolText:
		b := s.Bounds()
		dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
		dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
		return math.Hypot(dx, dy)
	default:
		return math.Inf(1)
	}
}

const (
	arrowHeadMinLength = 15.0
	arrowHeadAngle     = math.Pi / 6
)

// ArrowHead returns the two barb endpoints for an arrow pointing from tail to
// tip. The barb length grows with the stroke width so thick arrows keep a
// visible head.
func ArrowHead(tail, tip geometry.Point, lineWidth float64) (left, right geometry.Point) {
	length := math.Max(arrowHeadMinLength, 3*lineWidth)
	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	left = geometry.Pt(
		tip.X-length*math.Cos(angle-arrowHeadAngle),
		tip.Y-length*math.Sin(angle-arrowHeadAngle),
	)
	right = geometry.Pt(
		tip.X-length*math.Cos(angle+arrowHeadAngle),
		tip.Y-length*math.Sin(angle+arrowHeadAngle),
	)
	return left, right
}

// HitTest returns the index of the most recently committed shape whose
// outline lies within tolerancePx screen pixels of screenPt, or -1.
func HitTest(shapes []Shape, screenPt geometry.Point, tolerancePx float64, t geometry.Transform) int {
	if t.Scale <= 0 {
		return -1
	}
	p := t.ToCanvas(screenPt)
	tol := tolerancePx / t.Scale
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		slack := tol
		if s.Kind != ToolText {
			slack += s.Style.LineWidth / 2
		}
		if s.Distance(p) <= slack {
			return i
		}
	}
	return -1
}
