package engine

import (
	"log/slog"
	"strings"

	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/typeid"
)

// Options configures a new Engine.
type Options struct {
	// Initial seeds the scene. Nil starts empty.
	Initial *document.CanvasData

	// ReadOnly disables every mutating operation; rendering still works.
	ReadOnly bool

	// OnSave receives a snapshot after every committed change, after undo/redo
	// that moved through history, and on Save.
	OnSave func(document.CanvasData)

	// NewID generates element ids. Defaults to typeid element ids.
	NewID func() string

	Theme  Theme
	Logger *slog.Logger
}

// Engine is the drawing canvas: it owns the scene, the tool state and the
// history, and turns input events into scene changes.
// It is not safe for concurrent use; hosts must deliver events from one goroutine.
type Engine struct {
	elements []document.Element
	history  *History

	tool       Tool
	selectedID string
	gesture    gesture
	prompt     TextPrompt

	readOnly bool
	onSave   func(document.CanvasData)
	newID    func() string
	theme    Theme
	log      *slog.Logger
}

// NewEngine creates an engine instance. Seeded elements with an empty or
// repeated id are given a fresh one, so every id names exactly one element.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		tool:     ToolSelect,
		readOnly: opts.ReadOnly,
		onSave:   opts.OnSave,
		newID:    opts.NewID,
		theme:    opts.Theme,
		log:      opts.Logger,
	}
	if e.newID == nil {
		e.newID = typeid.NewElementID
	}
	if e.theme == (Theme{}) {
		e.theme = LightTheme
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	var initial []document.Element
	if opts.Initial != nil {
		initial = e.uniqueIDs(opts.Initial.Elements)
	}
	e.elements = document.Clone(initial)
	e.history = NewHistory(initial)
	return e
}

func (e *Engine) uniqueIDs(elements []document.Element) []document.Element {
	out := document.Clone(elements)
	seen := make(map[string]struct{}, len(out))
	for _, el := range out {
		seen[document.IDOf(el)] = struct{}{}
	}
	taken := make(map[string]struct{}, len(out))
	for i, el := range out {
		id := document.IDOf(el)
		if _, dup := taken[id]; id != "" && !dup {
			taken[id] = struct{}{}
			continue
		}
		fresh := e.newID()
		for {
			_, a := seen[fresh]
			_, b := taken[fresh]
			if !a && !b {
				break
			}
			fresh = e.newID()
		}
		e.log.Warn("element id reassigned", "old", id, "new", fresh)
		out[i] = document.WithID(el, fresh)
		taken[fresh] = struct{}{}
	}
	return out
}

// --- Commands (host → engine) ---

// SetTool switches the active tool. A gesture already in progress finishes
// with the tool it started with.
func (e *Engine) SetTool(t Tool) {
	if e.readOnly {
		return
	}
	e.tool = t
}

// PointerDown starts a gesture at (x, y). Any unfinished gesture is abandoned
// first. Pointer input is ignored while the text prompt is open.
func (e *Engine) PointerDown(x, y float64) {
	if e.readOnly || e.prompt.Open {
		return
	}
	if e.gesture.kind != gestureNone {
		e.CancelGesture()
	}

	p := Point{X: x, Y: y}
	switch {
	case e.tool == ToolSelect:
		id := HitTest(e.elements, x, y)
		if id == "" {
			e.selectedID = ""
			return
		}
		b := BoundsOf(e.elements[document.IndexOf(e.elements, id)])
		e.selectedID = id
		e.gesture = gesture{
			kind:      gestureDrag,
			tool:      ToolSelect,
			start:     p,
			elementID: id,
			offset:    Point{X: x - b.X, Y: y - b.Y},
		}
	case e.tool == ToolText:
		e.prompt = TextPrompt{Open: true, At: p}
	case e.tool.IsShape():
		e.selectedID = ""
		e.gesture = gesture{kind: gestureShape, tool: e.tool, start: p}
	}
}

// PointerMove drags the grabbed element. Shape gestures are not previewed:
// nothing changes until the pointer is released.
func (e *Engine) PointerMove(x, y float64) {
	if e.readOnly || e.gesture.kind != gestureDrag {
		return
	}
	e.dragTo(x, y)
}

// PointerUp completes the current gesture and commits its result. A select
// release commits and calls OnSave only when the element actually moved; a
// plain click selects without adding a history entry or notifying the host.
func (e *Engine) PointerUp(x, y float64) {
	if e.readOnly {
		return
	}

	g := e.gesture
	switch g.kind {
	case gestureDrag:
		e.dragTo(x, y)
		e.gesture = gesture{}
		if e.dragMoved(g) {
			e.commit("move")
		}
	case gestureShape:
		e.gesture = gesture{}
		base := document.Base{
			ID:          e.newID(),
			Color:       document.DefaultColor,
			StrokeWidth: document.DefaultStrokeWidth,
		}
		el := buildShape(g.tool, base, g.start, Point{X: x, Y: y})
		if el == nil {
			return
		}
		e.elements = append(e.elements, el)
		e.commit("create " + string(el.Type()))
	}
}

// CancelGesture abandons an unfinished gesture. A partially dragged element
// returns to its committed position.
func (e *Engine) CancelGesture() {
	if e.gesture.kind == gestureDrag && e.gesture.moved {
		e.elements = e.history.Current()
	}
	e.gesture = gesture{}
}

func (e *Engine) dragTo(x, y float64) {
	idx := document.IndexOf(e.elements, e.gesture.elementID)
	if idx < 0 {
		return
	}
	el := e.elements[idx]
	b := BoundsOf(el)
	dx := x - e.gesture.offset.X - b.X
	dy := y - e.gesture.offset.Y - b.Y
	if dx == 0 && dy == 0 {
		return
	}
	e.elements[idx] = Translate(el, dx, dy)
	e.gesture.moved = true
}

// dragMoved reports whether the dragged element differs from its committed copy.
func (e *Engine) dragMoved(g gesture) bool {
	committed := e.history.entries[e.history.index]
	before := document.IndexOf(committed, g.elementID)
	after := document.IndexOf(e.elements, g.elementID)
	if before < 0 || after < 0 {
		return false
	}
	return committed[before] != e.elements[after]
}

// TypeText appends s to the open text prompt.
func (e *Engine) TypeText(s string) {
	if e.readOnly || !e.prompt.Open {
		return
	}
	e.prompt.Buffer += s
}

// Backspace removes the last character of the open text prompt.
func (e *Engine) Backspace() {
	if e.readOnly || !e.prompt.Open || e.prompt.Buffer == "" {
		return
	}
	r := []rune(e.prompt.Buffer)
	e.prompt.Buffer = string(r[:len(r)-1])
}

// Key handles keyboard input for the text prompt: Enter confirms, Escape
// cancels and Backspace deletes.
func (e *Engine) Key(key string) {
	switch key {
	case "Enter":
		e.ConfirmText()
	case "Escape":
		e.CancelText()
	case "Backspace":
		e.Backspace()
	}
}

// ConfirmText submits the prompt buffer.
func (e *Engine) ConfirmText() {
	e.SubmitText(e.prompt.Buffer)
}

// SubmitText closes the prompt and, when text is not blank, adds it as a text
// element at the prompt position. The text is stored as typed, surrounding
// spaces included.
func (e *Engine) SubmitText(text string) {
	if e.readOnly || !e.prompt.Open {
		return
	}
	at := e.prompt.At
	e.prompt = TextPrompt{}

	if strings.TrimSpace(text) == "" {
		return
	}

	e.elements = append(e.elements, document.Text{
		Base: document.Base{
			ID:          e.newID(),
			Color:       document.DefaultColor,
			StrokeWidth: document.DefaultTextStrokeWidth,
		},
		X:       at.X,
		Y:       at.Y,
		Content: text,
	})
	e.commit("create text")
}

// CancelText closes the prompt without changing the scene.
func (e *Engine) CancelText() {
	e.prompt = TextPrompt{}
}

// DeleteSelected removes the selected element. Without a selection it does
// nothing.
func (e *Engine) DeleteSelected() {
	if e.readOnly || e.selectedID == "" {
		return
	}
	e.CancelGesture()

	idx := document.IndexOf(e.elements, e.selectedID)
	e.selectedID = ""
	if idx < 0 {
		return
	}
	e.elements = append(e.elements[:idx:idx], e.elements[idx+1:]...)
	e.commit("delete")
}

// ClearAll empties the scene. It always creates a history entry.
func (e *Engine) ClearAll() {
	if e.readOnly {
		return
	}
	e.CancelGesture()
	e.elements = []document.Element{}
	e.selectedID = ""
	e.commit("clear")
}

// Undo restores the previous history entry.
func (e *Engine) Undo() {
	if e.readOnly {
		return
	}
	e.CancelGesture()
	if !e.history.Undo() {
		return
	}
	e.restore("undo")
}

// Redo restores the next history entry.
func (e *Engine) Redo() {
	if e.readOnly {
		return
	}
	e.CancelGesture()
	if !e.history.Redo() {
		return
	}
	e.restore("redo")
}

// Save hands the current scene to the host without touching history.
func (e *Engine) Save() {
	if e.readOnly {
		return
	}
	e.emit()
}

func (e *Engine) restore(reason string) {
	e.elements = e.history.Current()
	if document.IndexOf(e.elements, e.selectedID) < 0 {
		e.selectedID = ""
	}
	e.log.Debug("canvas history moved", "reason", reason, "index", e.history.Index(), "elements", len(e.elements))
	e.emit()
}

func (e *Engine) commit(reason string) {
	e.history.Commit(e.elements)
	e.log.Debug("canvas commit", "reason", reason, "index", e.history.Index(), "elements", len(e.elements))
	e.emit()
}

func (e *Engine) emit() {
	if e.onSave != nil {
		e.onSave(e.Snapshot())
	}
}

// --- Queries (host ← engine) ---

// Render compiles the current scene and selection into draw commands.
func (e *Engine) Render() []DrawCommand {
	return Compile(e.elements, e.selectedID, e.readOnly, e.theme)
}

// HitTest returns the id of the topmost element at (x, y), or "".
func (e *Engine) HitTest(x, y float64) string {
	return HitTest(e.elements, x, y)
}

// SelectionBounds returns the bounding box of the selected element.
func (e *Engine) SelectionBounds() (Rect, bool) {
	idx := document.IndexOf(e.elements, e.selectedID)
	if e.selectedID == "" || idx < 0 {
		return Rect{}, false
	}
	return BoundsOf(e.elements[idx]), true
}

// Snapshot returns the current scene by value.
func (e *Engine) Snapshot() document.CanvasData {
	return document.NewCanvasData(e.elements)
}

// Elements returns a copy of the current scene.
func (e *Engine) Elements() []document.Element {
	return document.Clone(e.elements)
}

// State is the transient view state a host needs to draw its toolbar.
type State struct {
	Tool     Tool       `json:"tool"`
	Selected string     `json:"selected,omitempty"`
	ReadOnly bool       `json:"readOnly"`
	CanUndo  bool       `json:"canUndo"`
	CanRedo  bool       `json:"canRedo"`
	Prompt   TextPrompt `json:"prompt"`
	Dragging bool       `json:"dragging"`
}

// State returns the current tool state.
func (e *Engine) State() State {
	return State{
		Tool:     e.tool,
		Selected: e.selectedID,
		ReadOnly: e.readOnly,
		CanUndo:  e.history.CanUndo(),
		CanRedo:  e.history.CanRedo(),
		Prompt:   e.prompt,
		Dragging: e.gesture.kind == gestureDrag,
	}
}

func (e *Engine) Tool() Tool         { return e.tool }
func (e *Engine) Selected() string   { return e.selectedID }
func (e *Engine) ReadOnly() bool     { return e.readOnly }
func (e *Engine) Prompt() TextPrompt { return e.prompt }
func (e *Engine) CanUndo() bool      { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool      { return e.history.CanRedo() }
func (e *Engine) Theme() Theme       { return e.theme }
func (e *Engine) HistoryLen() int    { return e.history.Len() }
func (e *Engine) HistoryIndex() int  { return e.history.Index() }
