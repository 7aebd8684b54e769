package engine

import "github.com/codequest/backend-go/internal/document"

// History is a linear undo/redo log of full scene snapshots. It always holds
// at least one entry and index always points at a valid entry.
type History struct {
	entries [][]document.Element
	index   int
}

// NewHistory creates a history whose only entry is initial.
func NewHistory(initial []document.Element) *History {
	return &History{
		entries: [][]document.Element{document.Clone(initial)},
	}
}

// Commit discards every entry after the current one, appends a copy of scene
// and makes it current.
func (h *History) Commit(scene []document.Element) {
	h.entries = append(h.entries[:h.index+1], document.Clone(scene))
	h.index = len(h.entries) - 1
}

// Undo steps back one entry. It reports false and changes nothing at the
// first entry.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.index--
	return true
}

// Redo steps forward one entry. It reports false and changes nothing at the
// last entry.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.index++
	return true
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Current returns a copy of the current entry.
func (h *History) Current() []document.Element {
	return document.Clone(h.entries[h.index])
}

func (h *History) Index() int { return h.index }
func (h *History) Len() int   { return len(h.entries) }
