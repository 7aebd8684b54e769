package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownElementType = errors.New("unknown element type")

// wireElement is the flat JSON object used for every variant. Only the fields
// belonging to the variant named by Type are written.
type wireElement struct {
	ID          string      `json:"id"`
	Type        ElementType `json:"type"`
	Color       string      `json:"color"`
	StrokeWidth float64     `json:"strokeWidth"`

	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Radius *float64 `json:"radius,omitempty"`

	StartX *float64 `json:"startX,omitempty"`
	StartY *float64 `json:"startY,omitempty"`
	EndX   *float64 `json:"endX,omitempty"`
	EndY   *float64 `json:"endY,omitempty"`

	Text *string `json:"text,omitempty"`
}

type wireCanvas struct {
	Elements     []wireElement `json:"elements"`
	CanvasWidth  int           `json:"canvasWidth"`
	CanvasHeight int           `json:"canvasHeight"`
}

func ptr[T any](v T) *T { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func toWire(el Element) (wireElement, error) {
	b := el.Common()
	w := wireElement{
		ID:          b.ID,
		Type:        el.Type(),
		Color:       b.Color,
		StrokeWidth: b.StrokeWidth,
	}

	switch e := el.(type) {
	case Rectangle:
		w.X, w.Y = ptr(e.X), ptr(e.Y)
		w.Width, w.Height = ptr(e.Width), ptr(e.Height)
	case Circle:
		w.X, w.Y = ptr(e.X), ptr(e.Y)
		w.Radius = ptr(e.Radius)
	case Line:
		w.StartX, w.StartY = ptr(e.StartX), ptr(e.StartY)
		w.EndX, w.EndY = ptr(e.EndX), ptr(e.EndY)
	case Arrow:
		w.StartX, w.StartY = ptr(e.StartX), ptr(e.StartY)
		w.EndX, w.EndY = ptr(e.EndX), ptr(e.EndY)
	case Text:
		w.X, w.Y = ptr(e.X), ptr(e.Y)
		w.Text = ptr(e.Content)
	default:
		return wireElement{}, fmt.Errorf("%w: %T", ErrUnknownElementType, el)
	}
	return w, nil
}

func fromWire(w wireElement) (Element, error) {
	base := Base{ID: w.ID, Color: w.Color, StrokeWidth: w.StrokeWidth}

	switch w.Type {
	case ElementTypeRectangle:
		r := Rectangle{Base: base, X: deref(w.X), Y: deref(w.Y), Width: deref(w.Width), Height: deref(w.Height)}
		if r.Width < 0 || r.Height < 0 {
			return nil, fmt.Errorf("rectangle %s: negative size", w.ID)
		}
		return r, nil
	case ElementTypeCircle:
		c := Circle{Base: base, X: deref(w.X), Y: deref(w.Y), Radius: deref(w.Radius)}
		if c.Radius < 0 {
			return nil, fmt.Errorf("circle %s: negative radius", w.ID)
		}
		return c, nil
	case ElementTypeLine:
		return Line{Base: base, StartX: deref(w.StartX), StartY: deref(w.StartY), EndX: deref(w.EndX), EndY: deref(w.EndY)}, nil
	case ElementTypeArrow:
		return Arrow{Base: base, StartX: deref(w.StartX), StartY: deref(w.StartY), EndX: deref(w.EndX), EndY: deref(w.EndY)}, nil
	case ElementTypeText:
		t := Text{Base: base, X: deref(w.X), Y: deref(w.Y)}
		if w.Text != nil {
			t.Content = *w.Text
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownElementType, w.Type)
	}
}

// MarshalJSON writes the snapshot in the flat per-element form.
func (c CanvasData) MarshalJSON() ([]byte, error) {
	out := wireCanvas{
		Elements:     make([]wireElement, 0, len(c.Elements)),
		CanvasWidth:  c.CanvasWidth,
		CanvasHeight: c.CanvasHeight,
	}
	for _, el := range c.Elements {
		w, err := toWire(el)
		if err != nil {
			return nil, err
		}
		out.Elements = append(out.Elements, w)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a snapshot. Element ids must be present and unique.
// Missing canvas dimensions fall back to the fixed surface size.
func (c *CanvasData) UnmarshalJSON(data []byte) error {
	var in wireCanvas
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	elements := make([]Element, 0, len(in.Elements))
	for i, w := range in.Elements {
		el, err := fromWire(w)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		elements = append(elements, el)
	}
	if err := ValidateIDs(elements); err != nil {
		return err
	}

	c.Elements = elements
	c.CanvasWidth = in.CanvasWidth
	c.CanvasHeight = in.CanvasHeight
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = CanvasWidth
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = CanvasHeight
	}
	return nil
}

// Decode parses a CanvasData JSON payload.
func Decode(data []byte) (CanvasData, error) {
	var c CanvasData
	if err := json.Unmarshal(data, &c); err != nil {
		return CanvasData{}, fmt.Errorf("decode canvas data: %w", err)
	}
	return c, nil
}
