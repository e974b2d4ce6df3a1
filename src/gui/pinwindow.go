package gui

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"snip/src/annotation"
	"snip/src/interaction"
	"snip/src/notification"
	"snip/src/pin"
)

// toolOrder backs both the tool selector and the 0-7 keys.
var toolOrder = []annotation.Tool{
	annotation.ToolNone,
	annotation.ToolPen,
	annotation.ToolLine,
	annotation.ToolArrow,
	annotation.ToolRectangle,
	annotation.ToolEllipse,
	annotation.ToolHighlighter,
	annotation.ToolText,
}

type pinWindow struct {
	app     *App
	session *pin.Session
	pinned  bool

	win    fyne.Window
	view   *canvasView
	tools  *widget.Select
	width  *widget.Slider
	status *widget.Label

	// set once the fyne window is closing, touched on the UI goroutine only
	closed bool
}

func newPinWindow(a *App, s *pin.Session, pinned bool) *pinWindow {
	p := &pinWindow{app: a, session: s, pinned: pinned}
	p.win = a.fyne.NewWindow(s.Title())
	p.view = newCanvasView(s)
	p.view.onChange = p.updateStatus
	p.view.onMenu = p.showMenu
	p.status = widget.NewLabel("")

	var content fyne.CanvasObject = p.view
	if !pinned {
		content = container.NewBorder(p.toolbar(), p.status, nil, nil, p.view)
	}
	p.win.SetContent(content)
	p.win.SetPadded(false)

	img := s.Compositor()
	w, h := img.Size()
	p.win.Resize(windowSize(w, h, s.Controller().Transform().Scale))

	p.bindKeys()
	p.win.SetOnClosed(func() {
		p.closed = true
		s.Close()
		a.windowClosed()
	})
	s.OnClose(func() {
		if a.ctx.Err() != nil {
			return
		}
		fyne.Do(func() {
			if !p.closed {
				p.win.Close()
			}
		})
	})
	p.updateStatus()
	return p
}

func (p *pinWindow) show() {
	if err := p.session.Activate(); err != nil {
		log.Printf("gui: cannot show %s: %v", p.session.Title(), err)
		return
	}
	p.win.Show()
	go p.session.RunReconciler(p.app.ctx, pin.DefaultReconcileInterval)
}

func (p *pinWindow) toolbar() fyne.CanvasObject {
	names := make([]string, len(toolOrder))
	for i, t := range toolOrder {
		names[i] = fmt.Sprintf("%d %s", i, t)
	}
	p.tools = widget.NewSelect(names, func(choice string) {
		for i, n := range names {
			if n == choice {
				p.selectTool(toolOrder[i])
				return
			}
		}
	})
	p.tools.SetSelectedIndex(0)

	p.width = widget.NewSlider(1, 20)
	p.width.Step = 1
	p.width.SetValue(p.session.Engine().Style().LineWidth)
	p.width.OnChanged = func(v float64) {
		st := p.session.Engine().Style()
		st.LineWidth = v
		p.session.Engine().SetStyle(st)
	}

	bar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { p.command(interaction.CommandUndo) }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { p.command(interaction.CommandRedo) }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { p.command(interaction.CommandClear) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), p.pickColor),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { p.command(interaction.CommandZoomIn) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { p.command(interaction.CommandZoomOut) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() { p.command(interaction.CommandResetView) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentCopyIcon(), p.copy),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), p.save),
		widget.NewToolbarAction(theme.ViewRestoreIcon(), p.pinCopy),
	)
	return container.NewBorder(nil, nil, p.tools, container.NewGridWrap(fyne.NewSize(120, 36), p.width), bar)
}

func (p *pinWindow) bindKeys() {
	c := p.win.Canvas()
	ctrl := func(key fyne.KeyName, fn func()) {
		c.AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { fn() })
	}
	ctrlShift := func(key fyne.KeyName, fn func()) {
		c.AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierControl | fyne.KeyModifierShift}, func(fyne.Shortcut) { fn() })
	}
	ctrl(fyne.KeyC, p.copy)
	ctrl(fyne.KeyS, p.save)
	ctrlShift(fyne.KeyS, p.saveAs)
	ctrl(fyne.KeyZ, func() { p.command(interaction.CommandUndo) })
	ctrl(fyne.KeyY, func() { p.command(interaction.CommandRedo) })
	ctrlShift(fyne.KeyZ, func() { p.command(interaction.CommandRedo) })
	ctrl(fyne.Key0, func() { p.command(interaction.CommandResetView) })
	ctrl(fyne.KeyEqual, func() { p.command(interaction.CommandZoomIn) })
	ctrl(fyne.KeyMinus, func() { p.command(interaction.CommandZoomOut) })
	ctrl(fyne.KeyDelete, func() { p.command(interaction.CommandClear) })

	c.SetOnTypedRune(p.typedRune)
	c.SetOnTypedKey(p.typedKey)
}

func (p *pinWindow) typedRune(r rune) {
	ctrl := p.session.Controller()
	if ctrl.Typing() {
		p.view.changed(ctrl.TypeRune(r))
		return
	}
	switch act := runeAction(r); {
	case act.close:
		p.win.Close()
	case act.tool >= 0:
		p.selectTool(toolOrder[act.tool])
	}
}

func (p *pinWindow) typedKey(ev *fyne.KeyEvent) {
	ctrl := p.session.Controller()
	if ctrl.Typing() {
		p.view.changed(ctrl.Key(string(ev.Name)))
		return
	}
	if ev.Name == fyne.KeyEscape {
		p.win.Close()
	}
}

type keyAction struct {
	tool  int
	close bool
}

// runeAction maps keys typed outside text editing: digits pick a tool, q closes.
func runeAction(r rune) keyAction {
	switch {
	case r >= '0' && int(r-'0') < len(toolOrder):
		return keyAction{tool: int(r - '0')}
	case r == 'q' || r == 'Q':
		return keyAction{tool: -1, close: true}
	}
	return keyAction{tool: -1}
}

func (p *pinWindow) selectTool(t annotation.Tool) {
	p.view.changed(p.session.Controller().SelectTool(t))
	if p.tools != nil {
		for i, tt := range toolOrder {
			if tt == t && p.tools.SelectedIndex() != i {
				p.tools.SetSelectedIndex(i)
			}
		}
	}
	p.updateStatus()
}

func (p *pinWindow) command(cmd interaction.Command) {
	p.view.changed(p.session.Controller().Command(cmd))
	p.updateStatus()
}

func (p *pinWindow) pickColor() {
	picker := dialog.NewColorPicker("Annotation colour", "Colour for new shapes", func(c color.Color) {
		st := p.session.Engine().Style()
		st.Color = color.RGBAModel.Convert(c).(color.RGBA)
		p.session.Engine().SetStyle(st)
	}, p.win)
	picker.Advanced = true
	picker.Show()
}

func (p *pinWindow) updateStatus() {
	if p.status == nil {
		return
	}
	ctrl := p.session.Controller()
	p.status.SetText(fmt.Sprintf("%s  |  %d shapes  |  %.0f%%",
		ctrl.Tool(), p.session.Engine().Len(), ctrl.Transform().Scale*100))
}

func (p *pinWindow) showMenu(pos fyne.Position) {
	items := []*fyne.MenuItem{
		fyne.NewMenuItem("Copy", p.copy),
		fyne.NewMenuItem("Save", p.save),
		fyne.NewMenuItem("Save As...", p.saveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Copy and Close", func() { p.exportAndClose(pin.ActionCopy) }),
		fyne.NewMenuItem("Save and Close", func() { p.exportAndClose(pin.ActionSave) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Undo", func() { p.command(interaction.CommandUndo) }),
		fyne.NewMenuItem("Redo", func() { p.command(interaction.CommandRedo) }),
		fyne.NewMenuItem("Clear", func() { p.command(interaction.CommandClear) }),
		fyne.NewMenuItem("Reset Zoom", func() { p.command(interaction.CommandResetView) }),
		fyne.NewMenuItemSeparator(),
	}
	if !p.pinned {
		items = append(items, fyne.NewMenuItem("Pin", p.pinCopy))
	}
	items = append(items, fyne.NewMenuItem("Close", p.win.Close))
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), p.win.Canvas(), pos)
}

func (p *pinWindow) copy() {
	if err := p.session.CopyToClipboard(p.app.ctx); err != nil {
		p.exportFailed(err)
		return
	}
	notification.ShowCopied()
}

func (p *pinWindow) save() {
	path, err := p.session.SaveDefault(p.app.ctx)
	if err != nil {
		p.exportFailed(err)
		return
	}
	notification.ShowSaved(path)
}

func (p *pinWindow) saveAs() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			p.exportFailed(err)
			return
		}
		if w == nil {
			return
		}
		path := w.URI().Path()
		_ = w.Close()
		if err := p.session.SaveToFile(p.app.ctx, path); err != nil {
			p.exportFailed(err)
			return
		}
		notification.ShowSaved(path)
	}, p.win)
	if def, err := p.session.DefaultPath(); err == nil {
		d.SetFileName(filepath.Base(def))
	}
	d.Show()
}

func (p *pinWindow) exportAndClose(action pin.Action) {
	if err := p.session.ExportAndClose(p.app.ctx, action, ""); err != nil {
		p.exportFailed(err)
	}
}

// pinCopy opens the current flattened image in a new pinned window.
func (p *pinWindow) pinCopy() {
	if err := p.app.Pin(p.session.Flatten()); err != nil {
		p.exportFailed(err)
	}
}

func (p *pinWindow) exportFailed(err error) {
	log.Printf("gui: %v", err)
	var exportErr *pin.ExportError
	if errors.As(err, &exportErr) {
		notification.Notify("Export failed", exportErr.Error())
	}
	dialog.ShowError(err, p.win)
}
