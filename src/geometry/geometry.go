// Package geometry provides the canvas/screen coordinate math used by the
// annotation editor.
//
// Canvas space is the fixed pixel grid of the captured image. Screen space is
// the pin window after zoom and pan. Stored shapes always live in canvas space;
// a Transform is only applied when painting or when converting pointer input.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D point or vector with floating-point coordinates.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Rect is an axis-aligned rectangle in any coordinate space.
type Rect = r2.Box

// RectFromPoints returns the normalized rectangle spanned by two corners.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	box := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min.X = math.Min(box.Min.X, p.X)
		box.Min.Y = math.Min(box.Min.Y, p.Y)
		box.Max.X = math.Max(box.Max.X, p.X)
		box.Max.Y = math.Max(box.Max.Y, p.Y)
	}
	return box
}

// DistanceToSegment returns the distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point) float64 {
	ab := r2.Sub(b, a)
	lenSq := r2.Norm2(ab)
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := r2.Dot(r2.Sub(p, a), ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(a, r2.Scale(t, ab))
	return Distance(p, proj)
}

// DistanceToPolyline returns the distance from p to the nearest segment of
// the open polyline. A single point degenerates to point distance; an empty
// polyline is infinitely far away.
func DistanceToPolyline(p Point, points []Point) float64 {
	switch len(points) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, points[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(points); i++ {
		if d := DistanceToSegment(p, points[i-1], points[i]); d < best {
			best = d
		}
	}
	return best
}

// DistanceToRectOutline returns the distance from p to the outline (not the
// interior) of the rectangle.
func DistanceToRectOutline(p Point, r Rect) float64 {
	tl := r.Min
	tr := Point{X: r.Max.X, Y: r.Min.Y}
	br := r.Max
	bl := Point{X: r.Min.X, Y: r.Max.Y}
	return DistanceToPolyline(p, []Point{tl, tr, br, bl, tl})
}

// ellipseSegments is the number of chords used to approximate an ellipse
// outline for distance queries.
const ellipseSegments = 96

// EllipsePoints samples n+1 points along the ellipse outline, closing the loop.
func EllipsePoints(center, radii Point, n int) []Point {
	points := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		angle := float64(i) * 2 * math.Pi / float64(n)
		points[i] = Point{
			X: center.X + radii.X*math.Cos(angle),
			Y: center.Y + radii.Y*math.Sin(angle),
		}
	}
	return points
}

// DistanceToEllipseOutline returns the approximate distance from p to the
// outline of the axis-aligned ellipse. Circles are handled exactly.
func DistanceToEllipseOutline(p, center, radii Point) float64 {
	rx, ry := math.Abs(radii.X), math.Abs(radii.Y)
	if rx == ry {
		return math.Abs(Distance(p, center) - rx)
	}
	return DistanceToPolyline(p, EllipsePoints(center, Point{X: rx, Y: ry}, ellipseSegments))
}
