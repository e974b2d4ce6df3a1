package annotation

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"snip/src/geometry"
)

// ErrNoActiveTool is returned by BeginDraft when no drawing tool is selected.
var ErrNoActiveTool = errors.New("no active tool")

// checkInvariantsEnabled turns internal consistency violations into panics.
// Set SNIP_DEBUG_INVARIANTS=1 in development builds.
var checkInvariantsEnabled = os.Getenv("SNIP_DEBUG_INVARIANTS") == "1"

// Engine owns the committed shape history, at most one draft and the redo
// buffer. It is not safe for concurrent use; callers drive it from the UI
// goroutine.
type Engine struct {
	history []Shape
	redo    []Shape
	draft   *Shape
	style   Style
}

// NewEngine returns an empty engine seeded with the given default style.
func NewEngine(style Style) *Engine {
	return &Engine{style: normalizeStyle(style)}
}

func normalizeStyle(s Style) Style {
	def := DefaultStyle()
	if s.LineWidth <= 0 {
		s.LineWidth = def.LineWidth
	}
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	return s
}

// SetStyle changes the style used for drafts begun after this call.
func (e *Engine) SetStyle(s Style) { e.style = normalizeStyle(s) }

// Style returns the style that the next draft will use.
func (e *Engine) Style() Style { return e.style }

// BeginDraft starts a new draft at p. A draft that is already open is
// committed first so no work is dropped.
func (e *Engine) BeginDraft(tool Tool, p geometry.Point) error {
	if tool == ToolNone {
		return ErrNoActiveTool
	}
	if _, ok := toolNames[tool]; !ok {
		return fmt.Errorf("begin draft: unsupported tool %v", tool)
	}
	if e.draft != nil {
		e.CommitDraft()
	}
	d := Shape{Kind: tool, Style: e.style}
	switch {
	case tool.Freehand():
		d.Points = []geometry.Point{p}
	default:
		d.P0, d.P1 = p, p
	}
	e.draft = &d
	e.checkInvariants()
	return nil
}

// UpdateDraft extends the draft to p. Freehand tools append a point; the
// others move their second endpoint. Text drafts ignore pointer updates.
// It reports whether the draft changed.
func (e *Engine) UpdateDraft(p geometry.Point) bool {
	if e.draft == nil {
		return false
	}
	switch {
	case e.draft.Kind == ToolText:
		return false
	case e.draft.Kind.Freehand():
		if n := len(e.draft.Points); n > 0 && e.draft.Points[n-1] == p {
			return false
		}
		e.draft.Points = append(e.draft.Points, p)
	default:
		if e.draft.P1 == p {
			return false
		}
		e.draft.P1 = p
	}
	return true
}

// AppendText adds r to an open Text draft.
func (e *Engine) AppendText(r rune) bool {
	if e.draft == nil || e.draft.Kind != ToolText || !utf8.ValidRune(r) {
		return false
	}
	e.draft.Text += string(r)
	return true
}

// DeleteText removes the last rune of an open Text draft.
func (e *Engine) DeleteText() bool {
	if e.draft == nil || e.draft.Kind != ToolText || e.draft.Text == "" {
		return false
	}
	_, size := utf8.DecodeLastRuneInString(e.draft.Text)
	e.draft.Text = e.draft.Text[:len(e.draft.Text)-size]
	return true
}

// CommitDraft appends the draft to history unless it is degenerate, in which
// case it is discarded. Either way the engine returns to idle. It reports
// whether history grew.
func (e *Engine) CommitDraft() bool {
	if e.draft == nil {
		return false
	}
	d := *e.draft
	e.draft = nil
	if d.Degenerate() {
		e.checkInvariants()
		return false
	}
	e.history = append(e.history, d)
	e.redo = nil
	e.checkInvariants()
	return true
}

// DiscardDraft drops the draft without committing it.
func (e *Engine) DiscardDraft() bool {
	if e.draft == nil {
		return false
	}
	e.draft = nil
	return true
}

// Undo removes the most recently committed shape. The draft is untouched.
func (e *Engine) Undo() bool {
	n := len(e.history)
	if n == 0 {
		return false
	}
	last := e.history[n-1]
	e.history[n-1] = Shape{}
	e.history = e.history[:n-1]
	e.redo = append(e.redo, last)
	e.checkInvariants()
	return true
}

// Redo re-applies the most recently undone shape.
func (e *Engine) Redo() bool {
	n := len(e.redo)
	if n == 0 {
		return false
	}
	s := e.redo[n-1]
	e.redo = e.redo[:n-1]
	e.history = append(e.history, s)
	e.checkInvariants()
	return true
}

// Clear empties history, the redo buffer and any draft.
func (e *Engine) Clear() bool {
	changed := len(e.history) > 0 || e.draft != nil || len(e.redo) > 0
	e.history = nil
	e.redo = nil
	e.draft = nil
	e.checkInvariants()
	return changed
}

// Shapes returns a deep copy of the committed history in commit order.
func (e *Engine) Shapes() []Shape {
	out := make([]Shape, len(e.history))
	for i, s := range e.history {
		out[i] = s.Clone()
	}
	return out
}

// Draft returns a copy of the in-progress shape, if any.
func (e *Engine) Draft() (Shape, bool) {
	if e.draft == nil {
		return Shape{}, false
	}
	return e.draft.Clone(), true
}

// Len is the number of committed shapes.
func (e *Engine) Len() int { return len(e.history) }

// Drafting reports whether a draft is open.
func (e *Engine) Drafting() bool { return e.draft != nil }

// DraftKind returns the tool of the open draft, or ToolNone.
func (e *Engine) DraftKind() Tool {
	if e.draft == nil {
		return ToolNone
	}
	return e.draft.Kind
}

// CanRedo reports whether Redo would do anything.
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

func (e *Engine) checkInvariants() {
	if !checkInvariantsEnabled {
		return
	}
	if e.draft != nil && e.draft.Kind == ToolNone {
		panic("annotation: draft has no tool")
	}
	for i, s := range e.history {
		if s.Degenerate() {
			panic(fmt.Sprintf("annotation: degenerate %v committed at index %d", s.Kind, i))
		}
	}
}
