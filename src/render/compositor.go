// Package render composites the base screenshot and the annotation history
// into pixel buffers, either for the on-screen view or for export.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/f64"

	"snip/src/annotation"
	"snip/src/geometry"
)

const (
	highlighterAlpha      = 0.4
	highlighterWidthScale = 4.0
	checkerSize           = 8
)

var (
	checkerLight = color.RGBA{R: 0x3a, G: 0x3a, B: 0x3a, A: 0xff}
	checkerDark  = color.RGBA{R: 0x2e, G: 0x2e, B: 0x2e, A: 0xff}
)

// Options controls view-only decoration. None of it reaches Flatten.
type Options struct {
	BorderWidth float64
	BorderColor color.RGBA
}

// ShapeSource is the read side of the annotation engine.
type ShapeSource interface {
	Shapes() []annotation.Shape
	Draft() (annotation.Shape, bool)
}

// Compositor paints a fixed base image plus the shapes of a ShapeSource.
type Compositor struct {
	base   *image.RGBA
	shapes ShapeSource
	opts   Options
}

// New copies base so later changes by the caller never leak into exports.
func New(base image.Image, shapes ShapeSource, opts Options) *Compositor {
	return &Compositor{base: copyRGBA(base), shapes: shapes, opts: opts}
}

// Size is the canvas size in pixels.
func (c *Compositor) Size() (int, int) {
	b := c.base.Bounds()
	return b.Dx(), b.Dy()
}

// Render paints a width x height view of the canvas under transform t,
// including the draft and the pin border.
func (c *Compositor) Render(width, height int, t geometry.Transform) *image.RGBA {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	fillChecker(dst)
	c.drawBase(dst, t)

	dc := gg.NewContextForImage(dst)
	defer dc.Close()
	for _, s := range c.shapes.Shapes() {
		drawShape(dc, s, t, false)
	}
	if d, ok := c.shapes.Draft(); ok {
		drawShape(dc, d, t, true)
	}
	c.drawBorder(dc, t)
	return toRGBA(dc.Image())
}

// Flatten paints the committed shapes onto a copy of the base at 1:1. The
// draft and all view decoration are excluded.
func (c *Compositor) Flatten() *image.RGBA {
	dst := cloneRGBA(c.base)
	shapes := c.shapes.Shapes()
	if len(shapes) == 0 {
		return dst
	}
	dc := gg.NewContextForImage(dst)
	defer dc.Close()
	id := geometry.Identity()
	for _, s := range shapes {
		drawShape(dc, s, id, false)
	}
	return toRGBA(dc.Image())
}

func (c *Compositor) drawBase(dst *image.RGBA, t geometry.Transform) {
	// Smooth when shrinking, crisp pixels when magnifying.
	var interp xdraw.Interpolator = xdraw.NearestNeighbor
	if t.Scale < 1 {
		interp = xdraw.BiLinear
	}
	s2d := f64.Aff3{
		t.Scale, 0, t.Offset.X,
		0, t.Scale, t.Offset.Y,
	}
	interp.Transform(dst, s2d, c.base, c.base.Bounds(), xdraw.Src, nil)
}

func (c *Compositor) drawBorder(dc *gg.Context, t geometry.Transform) {
	if c.opts.BorderWidth <= 0 {
		return
	}
	w, h := c.Size()
	tl := t.ToScreen(geometry.Pt(0, 0))
	br := t.ToScreen(geometry.Pt(float64(w), float64(h)))
	half := c.opts.BorderWidth / 2
	dc.SetColor(c.opts.BorderColor)
	dc.SetLineWidth(c.opts.BorderWidth)
	dc.SetLineJoin(gg.LineJoinMiter)
	dc.DrawRectangle(tl.X+half, tl.Y+half, br.X-tl.X-c.opts.BorderWidth, br.Y-tl.Y-c.opts.BorderWidth)
	if err := dc.Stroke(); err != nil {
		log.Printf("render: border stroke failed: %v", err)
	}
}

func drawShape(dc *gg.Context, s annotation.Shape, t geometry.Transform, draft bool) {
	width := t.ScaleLength(s.Style.LineWidth)
	col := color.Color(s.Style.Color)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	switch s.Kind {
	case annotation.ToolPen, annotation.ToolHighlighter:
		if len(s.Points) == 0 {
			return
		}
		if s.Kind == annotation.ToolHighlighter {
			col = withAlpha(s.Style.Color, highlighterAlpha)
			width *= highlighterWidthScale
			dc.SetLineCap(gg.LineCapSquare)
		}
		p := t.ToScreen(s.Points[0])
		dc.MoveTo(p.X, p.Y)
		if len(s.Points) == 1 {
			// Single-point drafts still show a dot.
			dc.LineTo(p.X+0.01, p.Y)
		}
		for _, pt := range s.Points[1:] {
			p = t.ToScreen(pt)
			dc.LineTo(p.X, p.Y)
		}
	case annotation.ToolLine:
		a, b := t.ToScreen(s.P0), t.ToScreen(s.P1)
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
	case annotation.ToolArrow:
		a, b := t.ToScreen(s.P0), t.ToScreen(s.P1)
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
		if s.P0 != s.P1 {
			left, right := annotation.ArrowHead(s.P0, s.P1, s.Style.LineWidth)
			l, r := t.ToScreen(left), t.ToScreen(right)
			dc.MoveTo(l.X, l.Y)
			dc.LineTo(b.X, b.Y)
			dc.LineTo(r.X, r.Y)
		}
	case annotation.ToolRectangle:
		rect := geometry.RectFromPoints(t.ToScreen(s.P0), t.ToScreen(s.P1))
		dc.DrawRectangle(rect.Min.X, rect.Min.Y, rect.Max.X-rect.Min.X, rect.Max.Y-rect.Min.Y)
	case annotation.ToolEllipse:
		c := t.ToScreen(s.Center())
		r := s.Radii()
		dc.DrawEllipse(c.X, c.Y, t.ScaleLength(r.X), t.ScaleLength(r.Y))
	case annotation.ToolText:
		drawText(dc, s, t, draft)
		return
	default:
		return
	}

	dc.SetColor(col)
	dc.SetLineWidth(math.Max(width, 0.5))
	if err := dc.Stroke(); err != nil {
		log.Printf("render: %v stroke failed: %v", s.Kind, err)
	}
}

func drawText(dc *gg.Context, s annotation.Shape, t geometry.Transform, draft bool) {
	size := t.ScaleLength(s.Style.FontSize)
	face := fontFace(size)
	if face == nil {
		return
	}
	top := t.ToScreen(s.P0)
	baseline := top.Y + face.Metrics().Ascent

	dc.SetFont(face)
	dc.SetColor(s.Style.Color)
	if s.Text != "" {
		dc.DrawString(s.Text, top.X, baseline)
	}
	if !draft {
		return
	}
	// Caret after the last glyph while typing.
	caretX := top.X + face.Advance(s.Text) + 1
	dc.SetLineWidth(1)
	dc.SetLineCap(gg.LineCapButt)
	dc.DrawLine(caretX, top.Y, caretX, baseline+face.Metrics().Descent)
	if err := dc.Stroke(); err != nil {
		log.Printf("render: caret stroke failed: %v", err)
	}
}

var (
	fontSourceOnce sync.Once
	fontSource     *text.FontSource
)

func fontFace(size float64) text.Face {
	fontSourceOnce.Do(func() {
		src, err := text.NewFontSource(goregular.TTF)
		if err != nil {
			log.Printf("render: failed to load Go Regular: %v", err)
			return
		}
		fontSource = src
	})
	if fontSource == nil || size <= 0 {
		return nil
	}
	return fontSource.Face(size)
}

// withAlpha scales the opacity of a premultiplied colour by a.
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * a))
	return n
}

func fillChecker(dst *image.RGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := checkerLight
			if ((x/checkerSize)+(y/checkerSize))%2 == 1 {
				c = checkerDark
			}
			dst.SetRGBA(x, y, c)
		}
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	return copyRGBA(img)
}

func copyRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}
