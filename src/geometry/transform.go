package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 5.0
	// DefaultZoomStep is the scale factor applied per scroll notch.
	DefaultZoomStep = 1.1
)

// Transform maps canvas coordinates to screen coordinates:
//
//	screen = canvas*Scale + Offset
//
// Scale is always kept inside [MinScale, MaxScale]. Transform is a value type;
// Zoom and Pan return the updated transform.
type Transform struct {
	Scale    float64
	Offset   Point
	MinScale float64
	MaxScale float64
	ZoomStep float64
}

// NewTransform returns an identity transform clamped to [minScale, maxScale].
// Non-positive or inverted bounds fall back to the defaults.
func NewTransform(minScale, maxScale float64) Transform {
	if minScale <= 0 {
		minScale = DefaultMinScale
	}
	if maxScale <= 0 {
		maxScale = DefaultMaxScale
	}
	if minScale > maxScale {
		minScale, maxScale = DefaultMinScale, DefaultMaxScale
	}
	t := Transform{
		Scale:    1,
		MinScale: minScale,
		MaxScale: maxScale,
		ZoomStep: DefaultZoomStep,
	}
	t.Scale = t.clamp(1)
	return t
}

// Identity returns a transform with default bounds and no zoom or pan.
func Identity() Transform {
	return NewTransform(DefaultMinScale, DefaultMaxScale)
}

// ToCanvas converts a screen point to canvas space.
func (t Transform) ToCanvas(screen Point) Point {
	return r2.Scale(1/t.Scale, r2.Sub(screen, t.Offset))
}

// ToScreen converts a canvas point to screen space.
func (t Transform) ToScreen(canvas Point) Point {
	return r2.Add(r2.Scale(t.Scale, canvas), t.Offset)
}

// ScaleLength converts a canvas-space length to screen space.
func (t Transform) ScaleLength(l float64) float64 {
	return l * t.Scale
}

// Zoom rescales by ZoomStep^delta around focal (a screen point) so the
// canvas point under focal stays under it. Positive delta zooms in. Once the
// scale sits on a clamp bound, further zooming in that direction is a no-op.
func (t Transform) Zoom(focal Point, delta float64) Transform {
	step := t.ZoomStep
	if step <= 1 {
		step = DefaultZoomStep
	}
	return t.ZoomTo(focal, t.Scale*math.Pow(step, delta))
}

// ZoomTo sets an absolute scale around focal, clamped to the bounds.
func (t Transform) ZoomTo(focal Point, scale float64) Transform {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return t
	}
	scale = t.clamp(scale)
	if scale == t.Scale {
		return t
	}
	anchor := t.ToCanvas(focal)
	t.Scale = scale
	t.Offset = r2.Sub(focal, r2.Scale(scale, anchor))
	return t
}

// WithScale sets the scale without moving the offset, clamped to the bounds.
func (t Transform) WithScale(scale float64) Transform {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		scale = 1
	}
	t.Scale = t.clamp(scale)
	return t
}

// Pan moves the view by a screen-space delta.
func (t Transform) Pan(delta Point) Transform {
	t.Offset = r2.Add(t.Offset, delta)
	t.Scale = t.clamp(t.Scale)
	return t
}

// Reset drops zoom and pan while keeping the configured bounds.
func (t Transform) Reset() Transform {
	t.Scale = t.clamp(1)
	t.Offset = Point{}
	return t
}

// AtMax reports whether the scale sits on the upper bound.
func (t Transform) AtMax() bool { return t.Scale >= t.MaxScale }

// AtMin reports whether the scale sits on the lower bound.
func (t Transform) AtMin() bool { return t.Scale <= t.MinScale }

func (t Transform) clamp(scale float64) float64 {
	lo, hi := t.MinScale, t.MaxScale
	if lo <= 0 {
		lo = DefaultMinScale
	}
	if hi <= 0 {
		hi = DefaultMaxScale
	}
	return math.Max(lo, math.Min(hi, scale))
}
