package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"

	"reacttest/internal/lcd"
)

// Canvas is an in-memory shadow of the panel. It is safe for concurrent use:
// the engine draws on it while the status server encodes it.
type Canvas struct {
	mu  sync.RWMutex
	img *image.RGBA
}

// NewCanvas returns a w×h canvas cleared to black.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
	_ = c.Clear(lcd.Black)
	return c
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Clear fills the canvas. Rows are written through the stride to avoid Set.
func (c *Canvas) Clear(col lcd.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, g, b, a := rgba8(col)
	w, h := c.img.Rect.Dx(), c.img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := c.img.Pix[y*c.img.Stride : y*c.img.Stride+4*w]
		for i := 0; i < len(row); i += 4 {
			row[i+0], row[i+1], row[i+2], row[i+3] = r, g, b, a
		}
	}
	return nil
}

// SetPixel paints one pixel. Coordinates outside the canvas are dropped,
// the same as writes outside the panel's visible RAM.
func (c *Canvas) SetPixel(x, y int, col lcd.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !(image.Point{x, y}.In(c.img.Rect)) {
		return nil
	}
	i := c.img.PixOffset(x, y)
	c.img.Pix[i+0], c.img.Pix[i+1], c.img.Pix[i+2], c.img.Pix[i+3] = rgba8(col)
	return nil
}

// At returns the pixel at (x, y) packed back to RGB565.
func (c *Canvas) At(x, y int) lcd.Color {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lcd.Model.Convert(c.img.At(x, y)).(lcd.Color)
}

// Snapshot returns a copy of the current image.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := image.NewRGBA(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

// EncodePNG writes the current image as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.Snapshot()); err != nil {
		return fmt.Errorf("render: png encode failed: %w", err)
	}
	return nil
}

// Count returns how many pixels differ from bg.
func (c *Canvas) Count(bg lcd.Color) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, g, b, _ := rgba8(bg)
	n := 0
	for i := 0; i < len(c.img.Pix); i += 4 {
		p := c.img.Pix[i : i+3 : i+3]
		if p[0] != r || p[1] != g || p[2] != b {
			n++
		}
	}
	return n
}

func rgba8(col lcd.Color) (r, g, b, a uint8) {
	r32, g32, b32, a32 := col.RGBA()
	return uint8(r32 >> 8), uint8(g32 >> 8), uint8(b32 >> 8), uint8(a32 >> 8)
}
