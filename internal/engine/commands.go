package engine

import (
	"encoding/json"
	"math"

	"github.com/codequest/backend-go/internal/document"
)

const (
	gridSpacing        = 20.0
	selectionPadding   = 5.0
	selectionLineWidth = 2.0
	textFontSize       = 16.0
)

var selectionDash = []float64{5, 5}

// Theme holds the surface colors that do not belong to any element.
type Theme struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	Grid       string `json:"grid"`
	Selection  string `json:"selection"`
}

var (
	LightTheme = Theme{Name: "light", Background: "#FFFFFF", Grid: "#E5E7EB", Selection: "#3B82F6"}
	DarkTheme  = Theme{Name: "dark", Background: "#111827", Grid: "#1F2937", Selection: "#60A5FA"}
)

// ThemeByName returns the named theme, falling back to LightTheme.
func ThemeByName(name string) Theme {
	if name == DarkTheme.Name {
		return DarkTheme
	}
	return LightTheme
}

// DrawCommand represents a single drawing operation for a painter to execute.
// Painters receive a list of these and execute them in order.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "clear", "path" or "text"
	ObjectID    string        `json:"objectId,omitempty"`    // Element the command draws, for hit correlation
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	X           float64       `json:"x"`                     // Text anchor
	Y           float64       `json:"y"`                     // Text baseline
	Text        string        `json:"text,omitempty"`        // Text content
	FontSize    float64       `json:"fontSize,omitempty"`    // Text size in surface units
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Dash        []float64     `json:"dash,omitempty"`        // Stroke dash pattern
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["A", cx, cy, r, start, end], ["Z"].
type PathCommand []interface{}

func moveTo(x, y float64) PathCommand { return PathCommand{"M", x, y} }
func lineTo(x, y float64) PathCommand { return PathCommand{"L", x, y} }
func closePath() PathCommand          { return PathCommand{"Z"} }
func arc(cx, cy, r, start, end float64) PathCommand {
	return PathCommand{"A", cx, cy, r, start, end}
}

func rectPath(r Rect) []PathCommand {
	return []PathCommand{
		moveTo(r.X, r.Y),
		lineTo(r.X+r.Width, r.Y),
		lineTo(r.X+r.Width, r.Y+r.Height),
		lineTo(r.X, r.Y+r.Height),
		closePath(),
	}
}

// Compile generates a draw command buffer for a scene. Commands are in
// painter's order: background, grid, elements in scene order, then the
// selection outline. The outline is omitted for read-only canvases.
func Compile(elements []document.Element, selectedID string, readOnly bool, theme Theme) []DrawCommand {
	commands := make([]DrawCommand, 0, len(elements)+3)
	commands = append(commands, DrawCommand{Op: "clear", Fill: theme.Background})
	commands = append(commands, compileGrid(theme))

	var selected document.Element
	for _, el := range elements {
		commands = append(commands, compileElement(el))
		if selectedID != "" && document.IDOf(el) == selectedID {
			selected = el
		}
	}

	if selected != nil && !readOnly {
		commands = append(commands, DrawCommand{
			Op:          "path",
			ObjectID:    selectedID,
			Path:        rectPath(BoundsOf(selected).Inset(selectionPadding)),
			Stroke:      theme.Selection,
			StrokeWidth: selectionLineWidth,
			Dash:        selectionDash,
		})
	}

	return commands
}

func compileGrid(theme Theme) DrawCommand {
	var path []PathCommand
	for x := 0.0; x <= document.CanvasWidth; x += gridSpacing {
		path = append(path, moveTo(x, 0), lineTo(x, document.CanvasHeight))
	}
	for y := 0.0; y <= document.CanvasHeight; y += gridSpacing {
		path = append(path, moveTo(0, y), lineTo(document.CanvasWidth, y))
	}
	return DrawCommand{Op: "path", Path: path, Stroke: theme.Grid, StrokeWidth: 1}
}

func compileElement(el document.Element) DrawCommand {
	base := el.Common()
	cmd := DrawCommand{
		Op:          "path",
		ObjectID:    base.ID,
		Stroke:      base.Color,
		StrokeWidth: base.StrokeWidth,
	}

	switch e := el.(type) {
	case document.Rectangle:
		cmd.Path = rectPath(BoundsOf(e))
	case document.Circle:
		cmd.Path = []PathCommand{arc(e.X, e.Y, e.Radius, 0, 2*math.Pi)}
	case document.Line:
		cmd.Path = []PathCommand{moveTo(e.StartX, e.StartY), lineTo(e.EndX, e.EndY)}
	case document.Arrow:
		left, right := ArrowHead(e)
		cmd.Path = []PathCommand{
			moveTo(e.StartX, e.StartY), lineTo(e.EndX, e.EndY),
			moveTo(e.EndX, e.EndY), lineTo(left.X, left.Y),
			moveTo(e.EndX, e.EndY), lineTo(right.X, right.Y),
		}
	case document.Text:
		return DrawCommand{
			Op:       "text",
			ObjectID: base.ID,
			X:        e.X,
			Y:        e.Y,
			Text:     e.Content,
			FontSize: textFontSize,
			Fill:     base.Color,
		}
	}

	return cmd
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
