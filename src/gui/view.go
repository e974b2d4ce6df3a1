package gui

import (
	"image"
	"math"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"snip/src/geometry"
	"snip/src/interaction"
	"snip/src/pin"
)

const (
	maxWindowW = 1280
	maxWindowH = 900
	// fyne reports this much scroll per wheel notch
	scrollPerNotch = 10
)

// canvasView shows a session and feeds pointer input to its controller.
type canvasView struct {
	widget.BaseWidget

	session *pin.Session
	raster  *fynecanvas.Raster

	onChange      func()
	onMenu        func(pos fyne.Position)
	flushQueued   bool
	pressedButton desktop.MouseButton
}

var (
	_ fyne.Draggable         = (*canvasView)(nil)
	_ fyne.Scrollable        = (*canvasView)(nil)
	_ fyne.SecondaryTappable = (*canvasView)(nil)
	_ desktop.Mouseable      = (*canvasView)(nil)
	_ fyne.Widget            = (*canvasView)(nil)
)

func newCanvasView(s *pin.Session) *canvasView {
	v := &canvasView{session: s}
	v.raster = fynecanvas.NewRaster(v.draw)
	v.raster.ScaleMode = fynecanvas.ImageScalePixels
	v.ExtendBaseWidget(v)
	return v
}

func (v *canvasView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

func (v *canvasView) MinSize() fyne.Size {
	return fyne.NewSize(64, 64)
}

func (v *canvasView) draw(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	return v.session.Render(w, h)
}

// toPixels converts a widget position to raster pixels.
func (v *canvasView) toPixels(pos fyne.Position) geometry.Point {
	scale := float32(1)
	if app := fyne.CurrentApp(); app != nil {
		if c := app.Driver().CanvasForObject(v); c != nil {
			scale = c.Scale()
		}
	}
	return geometry.Pt(float64(pos.X*scale), float64(pos.Y*scale))
}

func (v *canvasView) changed(ok bool) {
	if !ok {
		return
	}
	v.raster.Refresh()
	if v.onChange != nil {
		v.onChange()
	}
}

func (v *canvasView) MouseDown(ev *desktop.MouseEvent) {
	btn, ok := mapButton(ev.Button)
	if !ok {
		return
	}
	v.pressedButton = ev.Button
	v.changed(v.session.Controller().PointerDown(v.toPixels(ev.Position), btn))
}

func (v *canvasView) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != v.pressedButton {
		return
	}
	v.pressedButton = 0
	v.changed(v.session.Controller().PointerUp(v.toPixels(ev.Position)))
}

func (v *canvasView) Dragged(ev *fyne.DragEvent) {
	v.changed(v.session.Controller().PointerMove(v.toPixels(ev.Position)))
}

func (v *canvasView) DragEnd() {}

func (v *canvasView) Scrolled(ev *fyne.ScrollEvent) {
	notches := scrollNotches(ev.Scrolled.DY)
	if notches == 0 {
		return
	}
	v.changed(v.session.Controller().Scroll(v.toPixels(ev.Position), notches))
	if v.flushQueued {
		return
	}
	// events already queued in this frame join the batch before the flush
	v.flushQueued = true
	fyne.Do(func() {
		v.flushQueued = false
		v.changed(v.session.Controller().Flush())
	})
}

func (v *canvasView) TappedSecondary(ev *fyne.PointEvent) {
	if v.onMenu != nil {
		v.onMenu(ev.AbsolutePosition)
	}
}

func mapButton(b desktop.MouseButton) (interaction.Button, bool) {
	switch b {
	case desktop.MouseButtonPrimary:
		return interaction.ButtonPrimary, true
	case desktop.MouseButtonSecondary:
		return interaction.ButtonSecondary, true
	case desktop.MouseButtonTertiary:
		return interaction.ButtonMiddle, true
	}
	return 0, false
}

func scrollNotches(dy float32) float64 {
	return float64(dy) / scrollPerNotch
}

// fitScale is the largest zoom, at most 1, that fits a w×h image in maxW×maxH.
func fitScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	s := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return math.Min(1, s)
}

// windowSize is the initial window size for an image shown at scale.
func windowSize(w, h int, scale float64) fyne.Size {
	return fyne.NewSize(float32(math.Ceil(float64(w)*scale)), float32(math.Ceil(float64(h)*scale)))
}
