// Package interaction turns raw window input into annotation engine calls and
// view transform updates. A Controller is owned by one pin window and must be
// driven from that window's UI goroutine.
package interaction

import (
	"errors"
	"log"
	"strings"

	"snip/src/annotation"
	"snip/src/geometry"
)

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

type Command int

const (
	CommandUndo Command = iota
	CommandRedo
	CommandClear
	CommandResetView
	CommandZoomIn
	CommandZoomOut
)

// Key names understood by Key. They match fyne's key names.
const (
	KeyBackspace = "BackSpace"
	KeyReturn    = "Return"
	KeyEnter     = "Enter"
	KeyEscape    = "Escape"
)

type Controller struct {
	engine    *annotation.Engine
	transform geometry.Transform
	tool      annotation.Tool

	// pointer gesture in progress
	drawing bool
	panning bool
	lastPos geometry.Point

	// pending scroll batch
	scrollPending bool
	scrollFocal   geometry.Point
	scrollDelta   float64

	viewW, viewH float64
}

// New returns a controller in pan mode driving engine under the initial view.
func New(engine *annotation.Engine, transform geometry.Transform) *Controller {
	return &Controller{engine: engine, transform: transform}
}

func (c *Controller) Engine() *annotation.Engine { return c.engine }

// Transform returns the current view with any pending scroll applied.
func (c *Controller) Transform() geometry.Transform {
	c.Flush()
	return c.transform
}

func (c *Controller) Tool() annotation.Tool { return c.tool }

// Typing reports whether a text draft is accepting keystrokes.
func (c *Controller) Typing() bool {
	return c.engine.DraftKind() == annotation.ToolText
}

// SetViewport records the window size so keyboard zoom can centre on it.
func (c *Controller) SetViewport(w, h float64) {
	c.viewW, c.viewH = w, h
}

// SelectTool switches the active tool. An open draft is committed first.
func (c *Controller) SelectTool(tool annotation.Tool) bool {
	changed := c.Flush()
	if c.engine.Drafting() {
		c.engine.CommitDraft()
		changed = true
	}
	c.drawing = false
	c.panning = false
	if c.tool != tool {
		log.Printf("interaction: tool %v -> %v", c.tool, tool)
		c.tool = tool
	}
	return changed
}

// PointerDown starts a stroke, a text box or a pan gesture.
func (c *Controller) PointerDown(pos geometry.Point, button Button) bool {
	changed := c.Flush()
	switch button {
	case ButtonSecondary:
		// context menu belongs to the window
		return changed
	case ButtonMiddle:
		c.startPan(pos)
		return changed
	}

	if c.tool == annotation.ToolNone {
		c.startPan(pos)
		return changed
	}

	err := c.engine.BeginDraft(c.tool, c.transform.ToCanvas(pos))
	if errors.Is(err, annotation.ErrNoActiveTool) {
		c.startPan(pos)
		return changed
	}
	if err != nil {
		log.Printf("interaction: begin draft: %v", err)
		return changed
	}
	c.drawing = c.tool != annotation.ToolText
	return true
}

// PointerMove extends the draft or pans the view.
func (c *Controller) PointerMove(pos geometry.Point) bool {
	changed := c.Flush()
	switch {
	case c.panning:
		delta := geometry.Pt(pos.X-c.lastPos.X, pos.Y-c.lastPos.Y)
		c.lastPos = pos
		if delta == (geometry.Point{}) {
			return changed
		}
		c.transform = c.transform.Pan(delta)
		return true
	case c.drawing:
		return c.engine.UpdateDraft(c.transform.ToCanvas(pos)) || changed
	}
	return changed
}

// PointerUp finishes the current gesture. Text drafts stay open for typing.
func (c *Controller) PointerUp(pos geometry.Point) bool {
	changed := c.PointerMove(pos)
	if c.panning {
		c.panning = false
		return changed
	}
	if !c.drawing {
		return changed
	}
	c.drawing = false
	c.engine.CommitDraft()
	return true
}

// Scroll queues a zoom around pos. Deltas at the same focal point are summed
// and applied as a single zoom by Flush or by the next non-scroll event.
func (c *Controller) Scroll(pos geometry.Point, delta float64) bool {
	changed := false
	if c.scrollPending && c.scrollFocal != pos {
		changed = c.Flush()
	}
	c.scrollPending = true
	c.scrollFocal = pos
	c.scrollDelta += delta
	return changed
}

// Flush applies any pending scroll batch and reports whether the view changed.
func (c *Controller) Flush() bool {
	if !c.scrollPending {
		return false
	}
	focal, delta := c.scrollFocal, c.scrollDelta
	c.scrollPending = false
	c.scrollDelta = 0
	if delta == 0 {
		return false
	}
	next := c.transform.Zoom(focal, delta)
	if next == c.transform {
		return false
	}
	c.transform = next
	return true
}

// Command runs an editor command.
func (c *Controller) Command(cmd Command) bool {
	changed := c.Flush()
	switch cmd {
	case CommandUndo:
		return c.engine.Undo() || changed
	case CommandRedo:
		return c.engine.Redo() || changed
	case CommandClear:
		c.drawing = false
		return c.engine.Clear() || changed
	case CommandResetView:
		next := c.transform.Reset()
		if next == c.transform {
			return changed
		}
		c.transform = next
		return true
	case CommandZoomIn, CommandZoomOut:
		delta := 1.0
		if cmd == CommandZoomOut {
			delta = -1
		}
		next := c.transform.Zoom(geometry.Pt(c.viewW/2, c.viewH/2), delta)
		if next == c.transform {
			return changed
		}
		c.transform = next
		return true
	}
	return changed
}

// TypeRune appends r to an open text draft.
func (c *Controller) TypeRune(r rune) bool {
	changed := c.Flush()
	return c.engine.AppendText(r) || changed
}

// Key handles editing keys for text drafts. Escape and Return commit the
// text; Backspace deletes the last rune.
func (c *Controller) Key(name string) bool {
	changed := c.Flush()
	if !c.Typing() {
		return changed
	}
	switch strings.TrimSpace(name) {
	case KeyBackspace:
		return c.engine.DeleteText() || changed
	case KeyReturn, KeyEnter, KeyEscape:
		c.engine.CommitDraft()
		return true
	}
	return changed
}

func (c *Controller) startPan(pos geometry.Point) {
	c.panning = true
	c.lastPos = pos
}
