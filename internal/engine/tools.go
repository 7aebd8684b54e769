package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/codequest/backend-go/internal/document"
)

var ErrUnknownTool = errors.New("unknown tool")

// Tool selects how pointer gestures are interpreted.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolArrow     Tool = "arrow"
	ToolLine      Tool = "line"
	ToolText      Tool = "text"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolSelect, ToolRectangle, ToolCircle, ToolArrow, ToolLine, ToolText}

// ParseTool converts a tool name into a Tool.
func ParseTool(name string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// IsShape reports whether the tool creates an element from a press/release pair.
func (t Tool) IsShape() bool {
	switch t {
	case ToolRectangle, ToolCircle, ToolArrow, ToolLine:
		return true
	}
	return false
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDrag
	gestureShape
)

// gesture is the pointer interaction between a press and its release. It keeps
// the tool it started with, so switching tools mid-gesture only affects the
// next one.
type gesture struct {
	kind      gestureKind
	tool      Tool
	start     Point
	elementID string
	offset    Point
	moved     bool
}

// TextPrompt describes the pending text entry opened by the text tool.
type TextPrompt struct {
	Open   bool   `json:"open"`
	At     Point  `json:"at"`
	Buffer string `json:"buffer"`
}

// buildShape turns a press/release pair into a new element.
func buildShape(tool Tool, base document.Base, start, end Point) document.Element {
	dx, dy := end.X-start.X, end.Y-start.Y

	switch tool {
	case ToolRectangle:
		return document.Rectangle{
			Base:   base,
			X:      min(start.X, end.X),
			Y:      min(start.Y, end.Y),
			Width:  math.Abs(dx),
			Height: math.Abs(dy),
		}
	case ToolCircle:
		return document.Circle{
			Base:   base,
			X:      start.X,
			Y:      start.Y,
			Radius: math.Hypot(dx, dy) / 2,
		}
	case ToolLine:
		return document.Line{Base: base, StartX: start.X, StartY: start.Y, EndX: end.X, EndY: end.Y}
	case ToolArrow:
		return document.Arrow{Base: base, StartX: start.X, StartY: start.Y, EndX: end.X, EndY: end.Y}
	}
	return nil
}
