package engine

import (
	"math"
	"unicode/utf8"

	"github.com/codequest/backend-go/internal/document"
)

// Text metrics are approximated, not measured.
const (
	textCharWidth = 10.0
	textHeight    = 20.0
	textAscent    = 16.0
)

// Arrowhead geometry.
const (
	arrowHeadLength  = 15.0
	arrowHeadDegrees = 30.0
)

// Point is a position on the drawing surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect. Edges are inclusive, so a
// zero-area rect still contains its own origin.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Inset grows the rect by d on every side (shrinks it for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// BoundsOf returns the axis-aligned bounding box of an element. Hit testing and
// the selection outline both use it.
func BoundsOf(el document.Element) Rect {
	switch e := el.(type) {
	case document.Rectangle:
		return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
	case document.Circle:
		return Rect{X: e.X - e.Radius, Y: e.Y - e.Radius, Width: e.Radius * 2, Height: e.Radius * 2}
	case document.Line:
		return segmentBounds(e.StartX, e.StartY, e.EndX, e.EndY)
	case document.Arrow:
		return segmentBounds(e.StartX, e.StartY, e.EndX, e.EndY)
	case document.Text:
		return Rect{
			X:      e.X,
			Y:      e.Y - textAscent,
			Width:  float64(utf8.RuneCountInString(e.Content)) * textCharWidth,
			Height: textHeight,
		}
	default:
		return Rect{}
	}
}

func segmentBounds(x1, y1, x2, y2 float64) Rect {
	minX, maxX := min(x1, x2), max(x1, x2)
	minY, maxY := min(y1, y2), max(y1, y2)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// HitTest returns the ID of the topmost element whose bounding box contains
// the point, or an empty string. Later elements are drawn over earlier ones,
// so the scan runs back to front.
func HitTest(elements []document.Element, x, y float64) string {
	for i := len(elements) - 1; i >= 0; i-- {
		if BoundsOf(elements[i]).Contains(x, y) {
			return document.IDOf(elements[i])
		}
	}
	return ""
}

// Translate returns a copy of el moved by (dx, dy). Segments move both
// endpoints so their length and direction are preserved.
func Translate(el document.Element, dx, dy float64) document.Element {
	m := Translation(dx, dy)

	switch e := el.(type) {
	case document.Rectangle:
		e.X, e.Y = m.TransformPoint(e.X, e.Y)
		return e
	case document.Circle:
		e.X, e.Y = m.TransformPoint(e.X, e.Y)
		return e
	case document.Line:
		e.StartX, e.StartY = m.TransformPoint(e.StartX, e.StartY)
		e.EndX, e.EndY = m.TransformPoint(e.EndX, e.EndY)
		return e
	case document.Arrow:
		e.StartX, e.StartY = m.TransformPoint(e.StartX, e.StartY)
		e.EndX, e.EndY = m.TransformPoint(e.EndX, e.EndY)
		return e
	case document.Text:
		e.X, e.Y = m.TransformPoint(e.X, e.Y)
		return e
	default:
		return el
	}
}

// ArrowHead returns the outer ends of the two barbs drawn at the arrow's end
// point.
func ArrowHead(a document.Arrow) (Point, Point) {
	angle := math.Atan2(a.EndY-a.StartY, a.EndX-a.StartX)
	back := Rotate(angle + math.Pi)
	tip := Translation(a.EndX, a.EndY)

	x1, y1 := tip.Multiply(RotateDegrees(-arrowHeadDegrees)).Multiply(back).TransformPoint(arrowHeadLength, 0)
	x2, y2 := tip.Multiply(RotateDegrees(arrowHeadDegrees)).Multiply(back).TransformPoint(arrowHeadLength, 0)
	return Point{X: x1, Y: y1}, Point{X: x2, Y: y2}
}
