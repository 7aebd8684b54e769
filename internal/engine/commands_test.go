package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest/backend-go/internal/document"
)

func TestCompile_PainterOrder(t *testing.T) {
	elements := []document.Element{
		rect("a", 0, 0, 10, 10),
		document.Text{Base: document.Base{ID: "t", Color: "#111111"}, X: 5, Y: 30, Content: "hi"},
	}

	cmds := Compile(elements, "a", false, LightTheme)
	require.Len(t, cmds, 5)

	assert.Equal(t, DrawCommand{Op: "clear", Fill: "#FFFFFF"}, cmds[0])
	assert.Equal(t, "#E5E7EB", cmds[1].Stroke)
	assert.Empty(t, cmds[1].ObjectID)
	assert.Equal(t, "a", cmds[2].ObjectID)
	assert.Equal(t, DrawCommand{Op: "text", ObjectID: "t", X: 5, Y: 30, Text: "hi", FontSize: 16, Fill: "#111111"}, cmds[3])

	outline := cmds[4]
	assert.Equal(t, "#3B82F6", outline.Stroke)
	assert.Equal(t, []float64{5, 5}, outline.Dash)
	assert.Equal(t, 2.0, outline.StrokeWidth)
	assert.Equal(t, rectPath(Rect{X: -5, Y: -5, Width: 20, Height: 20}), outline.Path)
}

func TestCompile_ReadOnlyOmitsSelection(t *testing.T) {
	elements := []document.Element{rect("a", 0, 0, 10, 10)}

	assert.Len(t, Compile(elements, "a", true, LightTheme), 3)
	assert.Len(t, Compile(elements, "missing", false, LightTheme), 3)
	assert.Len(t, Compile(nil, "", false, LightTheme), 2)
}

func TestCompile_GridCoversSurface(t *testing.T) {
	grid := compileGrid(LightTheme)

	// 41 vertical and 31 horizontal lines, two segments each.
	assert.Len(t, grid.Path, (41+31)*2)
	assert.Equal(t, PathCommand{"L", 800.0, float64(document.CanvasHeight)}, grid.Path[81])
}

func TestCompile_ArrowHasShaftAndBarbs(t *testing.T) {
	a := document.Arrow{Base: document.Base{ID: "ar", Color: "#000000", StrokeWidth: 2}, EndX: 100}
	cmd := compileElement(a)

	require.Len(t, cmd.Path, 6)
	assert.Equal(t, moveTo(0, 0), cmd.Path[0])
	assert.Equal(t, lineTo(100, 0), cmd.Path[1])
	assert.Equal(t, moveTo(100, 0), cmd.Path[2])
	assert.Equal(t, moveTo(100, 0), cmd.Path[4])
}

func TestCompile_CircleIsFullArc(t *testing.T) {
	cmd := compileElement(document.Circle{Base: document.Base{ID: "c"}, X: 1, Y: 2, Radius: 3})

	require.Len(t, cmd.Path, 1)
	assert.Equal(t, "A", cmd.Path[0][0])
	assert.Equal(t, 3.0, cmd.Path[0][3])
}

func TestThemeByName(t *testing.T) {
	assert.Equal(t, DarkTheme, ThemeByName("dark"))
	assert.Equal(t, LightTheme, ThemeByName("light"))
	assert.Equal(t, LightTheme, ThemeByName(""))
}

func TestDrawCommandsToJSON(t *testing.T) {
	out, err := DrawCommandsToJSON([]DrawCommand{{Op: "path", Path: []PathCommand{moveTo(1, 2), closePath()}, Stroke: "#000"}})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, []any{[]any{"M", 1.0, 2.0}, []any{"Z"}}, decoded[0]["path"])
	assert.NotContains(t, decoded[0], "dash")

	// A text anchored on the left edge still carries its x.
	out, err = DrawCommandsToJSON(Compile([]document.Element{
		document.Text{Base: document.Base{ID: "t"}, X: 0, Y: 0, Content: "edge"},
	}, "", true, LightTheme))
	require.NoError(t, err)
	decoded = nil
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	last := decoded[len(decoded)-1]
	assert.Equal(t, "text", last["op"])
	assert.Equal(t, 0.0, last["x"])
	assert.Equal(t, 0.0, last["y"])

	assert.JSONEq(t, `{"x":1,"y":2,"width":3,"height":4}`, RectToJSON(Rect{X: 1, Y: 2, Width: 3, Height: 4}))
}
