package lcd

import "image/color"

// Color is a packed RGB 5-6-5 pixel as the controller expects it in 16 bpp
// mode (COLMOD 0x05).
type Color uint16

// Common colors.
const (
	Black   Color = 0x0000
	White   Color = 0xFFFF
	Red     Color = 0xF800
	Green   Color = 0x07E0
	Blue    Color = 0x001F
	Magenta Color = 0xF81F
	Yellow  Color = 0xFFE0
	Cyan    Color = 0x07FF
)

// RGB565 packs 8-bit channels, dropping the low bits.
func RGB565(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// Bytes returns the big-endian wire representation.
func (c Color) Bytes() (hi, lo byte) {
	return byte(c >> 8), byte(c)
}

// RGBA implements color.Color so a Color can be drawn on an image.Image.
// Channels are widened by bit replication.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F
	r8 := r5<<3 | r5>>2
	g8 := g6<<2 | g6>>4
	b8 := b5<<3 | b5>>2
	return r8 | r8<<8, g8 | g8<<8, b8 | b8<<8, 0xFFFF
}

// Model converts any color.Color to a Color.
var Model = color.ModelFunc(func(c color.Color) color.Color {
	if lc, ok := c.(Color); ok {
		return lc
	}
	r, g, b, _ := c.RGBA()
	return RGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))
})
