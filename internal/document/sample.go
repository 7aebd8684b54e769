package document

import (
	"github.com/codequest/backend-go/internal/typeid"
)

// NewSampleCanvas returns a small system-design diagram: a client talking to a
// load balancer that fans out to two services sharing a database.
func NewSampleCanvas() CanvasData {
	shape := func() Base {
		return Base{ID: typeid.NewElementID(), Color: DefaultColor, StrokeWidth: DefaultStrokeWidth}
	}
	label := func() Base {
		return Base{ID: typeid.NewElementID(), Color: DefaultColor, StrokeWidth: DefaultTextStrokeWidth}
	}

	elements := []Element{
		Rectangle{Base: shape(), X: 40, Y: 260, Width: 120, Height: 60},
		Text{Base: label(), X: 70, Y: 295, Content: "Client"},

		Arrow{Base: shape(), StartX: 160, StartY: 290, EndX: 260, EndY: 290},

		Rectangle{Base: shape(), X: 260, Y: 250, Width: 140, Height: 80},
		Text{Base: label(), X: 270, Y: 295, Content: "Load balancer"},

		Arrow{Base: shape(), StartX: 400, StartY: 270, EndX: 500, EndY: 180},
		Arrow{Base: shape(), StartX: 400, StartY: 310, EndX: 500, EndY: 400},

		Rectangle{Base: shape(), X: 500, Y: 140, Width: 120, Height: 60},
		Text{Base: label(), X: 520, Y: 175, Content: "API #1"},
		Rectangle{Base: shape(), X: 500, Y: 380, Width: 120, Height: 60},
		Text{Base: label(), X: 520, Y: 415, Content: "API #2"},

		Line{Base: shape(), StartX: 620, StartY: 170, EndX: 700, EndY: 290},
		Line{Base: shape(), StartX: 620, StartY: 410, EndX: 700, EndY: 290},
		Circle{Base: shape(), X: 720, Y: 290, Radius: 40},
		Text{Base: label(), X: 700, Y: 295, Content: "DB"},
	}

	return CanvasData{
		Elements:     elements,
		CanvasWidth:  CanvasWidth,
		CanvasHeight: CanvasHeight,
	}
}
