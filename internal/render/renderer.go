// Package render draws the stimulus glyphs pixel by pixel.
package render

import (
	"fmt"

	"reacttest/internal/lcd"
	"reacttest/internal/model"
)

// Surface is anything that can be cleared and painted one pixel at a time.
// *lcd.Driver, *Canvas and Tee all satisfy it.
type Surface interface {
	Clear(c lcd.Color) error
	SetPixel(x, y int, c lcd.Color) error
}

// Geometry holds the glyph layout. Lines run from LineStart up to, but not
// including, LineEnd along the centre line Max/2. The chevron has ArrowSize
// point pairs.
type Geometry struct {
	Max       int
	LineStart int
	LineEnd   int
	ArrowSize int
}

// DefaultGeometry is the layout for the 128x128 panel.
func DefaultGeometry() Geometry {
	return Geometry{Max: 127, LineStart: 22, LineEnd: 100, ArrowSize: 11}
}

func (g Geometry) center() int { return g.Max / 2 }

// Renderer paints stimuli onto a Surface in a single color.
type Renderer struct {
	s     Surface
	g     Geometry
	color lcd.Color
}

// New returns a renderer for s. A zero Geometry selects DefaultGeometry.
func New(s Surface, g Geometry, c lcd.Color) *Renderer {
	if g == (Geometry{}) {
		g = DefaultGeometry()
	}
	return &Renderer{s: s, g: g, color: c}
}

// Geometry returns the layout in use.
func (r *Renderer) Geometry() Geometry { return r.g }

// Render draws s. Pixels are emitted in a fixed order, line first and then
// the chevron pairs.
func (r *Renderer) Render(s model.Stimulus) error {
	pts, err := r.g.Points(s)
	if err != nil {
		return err
	}
	for _, p := range pts {
		if err := r.s.SetPixel(p.X, p.Y, r.color); err != nil {
			return fmt.Errorf("render: %s at (%d,%d): %w", s, p.X, p.Y, err)
		}
	}
	return nil
}

// Point is one pixel coordinate.
type Point struct{ X, Y int }

// Points returns the pixels of stimulus s in draw order. Cross visits the
// centre pixel twice.
func (g Geometry) Points(s model.Stimulus) ([]Point, error) {
	c := g.center()
	var pts []Point
	switch s {
	case model.Up, model.Down:
		for y := g.LineStart; y < g.LineEnd; y++ {
			pts = append(pts, Point{c, y})
		}
		for i := 1; i <= g.ArrowSize; i++ {
			y := g.LineStart + i
			if s == model.Up {
				y = g.LineEnd - i
			}
			pts = append(pts, Point{c + i, y}, Point{c - i, y})
		}
	case model.Left, model.Right:
		for x := g.LineStart; x < g.LineEnd; x++ {
			pts = append(pts, Point{x, c})
		}
		for i := 1; i <= g.ArrowSize; i++ {
			x := g.LineStart + i
			if s == model.Left {
				x = g.LineEnd - i
			}
			pts = append(pts, Point{x, c + i}, Point{x, c - i})
		}
	case model.Cross:
		for x := 0; x < g.Max; x++ {
			pts = append(pts, Point{x, c})
		}
		for y := 0; y < g.Max; y++ {
			pts = append(pts, Point{c, y})
		}
	default:
		return nil, fmt.Errorf("render: unknown stimulus %d", int(s))
	}
	return pts, nil
}

// Tee mirrors every call to both surfaces. The first error wins; B is not
// touched when A fails.
type Tee struct {
	A, B Surface
}

func (t Tee) Clear(c lcd.Color) error {
	if err := t.A.Clear(c); err != nil {
		return err
	}
	return t.B.Clear(c)
}

func (t Tee) SetPixel(x, y int, c lcd.Color) error {
	if err := t.A.SetPixel(x, y, c); err != nil {
		return err
	}
	return t.B.SetPixel(x, y, c)
}
