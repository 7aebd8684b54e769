package document

import (
	"errors"
	"fmt"
)

var (
	ErrMissingID   = errors.New("element id is empty")
	ErrDuplicateID = errors.New("duplicate element id")
)

// Fixed surface size of every canvas.
const (
	CanvasWidth  = 800
	CanvasHeight = 600
)

// Defaults used for elements created by the drawing tools.
const (
	DefaultColor           = "#374151"
	DefaultStrokeWidth     = 2.0
	DefaultTextStrokeWidth = 1.0
)

type ElementType string

const (
	ElementTypeRectangle ElementType = "rectangle"
	ElementTypeCircle    ElementType = "circle"
	ElementTypeLine      ElementType = "line"
	ElementTypeArrow     ElementType = "arrow"
	ElementTypeText      ElementType = "text"
)

// Base holds the fields shared by every element variant.
type Base struct {
	ID          string  `json:"id"`
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// Element is one drawable item of a scene. The set of implementations is closed:
// Rectangle, Circle, Line, Arrow and Text. Elements are plain values, so copying
// a slice of them yields an independent scene.
type Element interface {
	Type() ElementType
	Common() Base
	element()
}

type Rectangle struct {
	Base
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Circle is anchored at its center.
type Circle struct {
	Base
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

type Line struct {
	Base
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

// Arrow is a line with a fixed arrowhead at its end point.
type Arrow struct {
	Base
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

// Text is anchored at the left end of its baseline.
type Text struct {
	Base
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"text"`
}

func (Rectangle) Type() ElementType { return ElementTypeRectangle }
func (Circle) Type() ElementType    { return ElementTypeCircle }
func (Line) Type() ElementType      { return ElementTypeLine }
func (Arrow) Type() ElementType     { return ElementTypeArrow }
func (Text) Type() ElementType      { return ElementTypeText }

func (e Rectangle) Common() Base { return e.Base }
func (e Circle) Common() Base    { return e.Base }
func (e Line) Common() Base      { return e.Base }
func (e Arrow) Common() Base     { return e.Base }
func (e Text) Common() Base      { return e.Base }

func (Rectangle) element() {}
func (Circle) element()    {}
func (Line) element()      {}
func (Arrow) element()     {}
func (Text) element()      {}

// IDOf returns the identifier of el, or "" for a nil element.
func IDOf(el Element) string {
	if el == nil {
		return ""
	}
	return el.Common().ID
}

// WithID returns a copy of el carrying id.
func WithID(el Element, id string) Element {
	switch e := el.(type) {
	case Rectangle:
		e.ID = id
		return e
	case Circle:
		e.ID = id
		return e
	case Line:
		e.ID = id
		return e
	case Arrow:
		e.ID = id
		return e
	case Text:
		e.ID = id
		return e
	}
	return el
}

// ValidateIDs checks that every element has an id and that no id repeats.
func ValidateIDs(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for i, el := range elements {
		id := IDOf(el)
		if id == "" {
			return fmt.Errorf("element %d: %w", i, ErrMissingID)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("element %d: %w: %q", i, ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// CanvasData is the snapshot handed to the host after every committed change.
type CanvasData struct {
	Elements     []Element `json:"elements"`
	CanvasWidth  int       `json:"canvasWidth"`
	CanvasHeight int       `json:"canvasHeight"`
}

// NewCanvasData wraps a copy of elements in a snapshot of the fixed surface size.
func NewCanvasData(elements []Element) CanvasData {
	return CanvasData{
		Elements:     Clone(elements),
		CanvasWidth:  CanvasWidth,
		CanvasHeight: CanvasHeight,
	}
}

// Clone copies a scene. The result never shares a backing array with elements
// and is non-nil even for an empty scene.
func Clone(elements []Element) []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

// IndexOf returns the position of the element with the given id, or -1.
func IndexOf(elements []Element, id string) int {
	for i, el := range elements {
		if IDOf(el) == id {
			return i
		}
	}
	return -1
}
