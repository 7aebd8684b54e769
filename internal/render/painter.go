package render

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
)

// ExportFilename is the download name of an exported canvas.
const ExportFilename = "system-design.png"

var parseFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// Painter executes draw commands on a raster surface.
type Painter struct {
	dc    *gg.Context
	ttf   *truetype.Font
	faces map[float64]font.Face
}

// NewPainter creates a painter with a surface of the given size.
func NewPainter(width, height int) (*Painter, error) {
	ttf, err := parseFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Painter{
		dc:    gg.NewContext(width, height),
		ttf:   ttf,
		faces: make(map[float64]font.Face),
	}, nil
}

// Execute runs commands in order.
func (p *Painter) Execute(commands []engine.DrawCommand) error {
	for i, cmd := range commands {
		if err := p.execute(cmd); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, cmd.Op, err)
		}
	}
	return nil
}

func (p *Painter) execute(cmd engine.DrawCommand) error {
	dc := p.dc
	switch cmd.Op {
	case "clear":
		dc.SetHexColor(cmd.Fill)
		dc.Clear()

	case "path":
		dc.NewSubPath()
		if err := p.tracePath(cmd.Path); err != nil {
			return err
		}
		if cmd.Fill != "" {
			dc.SetHexColor(cmd.Fill)
			dc.FillPreserve()
		}
		if cmd.Stroke != "" {
			dc.SetHexColor(cmd.Stroke)
			dc.SetLineWidth(cmd.StrokeWidth)
			dc.SetDash(cmd.Dash...)
			dc.StrokePreserve()
			dc.SetDash()
		}
		dc.ClearPath()

	case "text":
		dc.SetFontFace(p.face(cmd.FontSize))
		dc.SetHexColor(cmd.Fill)
		dc.DrawString(cmd.Text, cmd.X, cmd.Y)

	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
	return nil
}

func (p *Painter) tracePath(path []engine.PathCommand) error {
	dc := p.dc
	for _, seg := range path {
		if len(seg) == 0 {
			continue
		}
		verb, _ := seg[0].(string)
		args, err := floats(seg[1:])
		if err != nil {
			return err
		}
		switch {
		case verb == "M" && len(args) == 2:
			dc.MoveTo(args[0], args[1])
		case verb == "L" && len(args) == 2:
			dc.LineTo(args[0], args[1])
		case verb == "A" && len(args) == 5:
			dc.NewSubPath()
			dc.DrawArc(args[0], args[1], args[2], args[3], args[4])
		case verb == "Z":
			dc.ClosePath()
		default:
			return fmt.Errorf("bad path segment %v", seg)
		}
	}
	return nil
}

func (p *Painter) face(size float64) font.Face {
	if f, ok := p.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(p.ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	p.faces[size] = f
	return f
}

// Image returns the painted surface.
func (p *Painter) Image() image.Image {
	return p.dc.Image()
}

// Rasterize paints commands on a canvas-sized surface.
func Rasterize(commands []engine.DrawCommand) (image.Image, error) {
	p, err := NewPainter(document.CanvasWidth, document.CanvasHeight)
	if err != nil {
		return nil, err
	}
	if err := p.Execute(commands); err != nil {
		return nil, err
	}
	return p.Image(), nil
}

// EncodePNG paints commands and writes the result as PNG.
func EncodePNG(w io.Writer, commands []engine.DrawCommand) error {
	p, err := NewPainter(document.CanvasWidth, document.CanvasHeight)
	if err != nil {
		return err
	}
	if err := p.Execute(commands); err != nil {
		return err
	}
	return p.dc.EncodePNG(w)
}

// ExportPNG renders a snapshot without selection and writes it as PNG.
// The snapshot itself is not modified.
func ExportPNG(w io.Writer, data document.CanvasData, theme engine.Theme) error {
	return EncodePNG(w, engine.Compile(data.Elements, "", true, theme))
}

func floats(vals []interface{}) ([]float64, error) {
	out := make([]float64, len(vals))
	for i, v := range vals {
		switch n := v.(type) {
		case float64:
			out[i] = n
		case float32:
			out[i] = float64(n)
		case int:
			out[i] = float64(n)
		default:
			return nil, fmt.Errorf("non-numeric path argument %v", v)
		}
	}
	return out, nil
}
