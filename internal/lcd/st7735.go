// Package lcd drives a Sitronix ST7735 TFT controller over SPI, as fitted
// to the 128x128 panel of the TI Educational BoosterPack MKII.
//
// The driver talks to the controller one byte at a time through a Channel
// and never caches controller state: every draw re-issues the addressing
// window.
package lcd

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// ST7735 commands sent by the driver (datasheet v2.1, section 10).
const (
	cmdSLPIN   = 0x10
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdGAMSET  = 0x26
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A
	cmdFRMCTR1 = 0xB1
	cmdPWCTR1  = 0xC0
)

// madctlBGR selects BGR subpixel order in MADCTL.
const madctlBGR = 0x08

// Minimum dwell times mandated by the controller.
const (
	resetHold    = 50 * time.Millisecond
	resetSettle  = 120 * time.Millisecond
	sleepOutWait = 120 * time.Millisecond
	colmodWait   = 10 * time.Millisecond
	dispOnWait   = 10 * time.Millisecond
)

// Opts is the configuration for the panel.
type Opts struct {
	// Display dimensions in pixels (default 128x128).
	W int
	H int

	// XOffset / YOffset are added to both window start and end. The
	// BoosterPack panel's visible origin sits at column 2, row 1 of the
	// controller RAM.
	XOffset int
	YOffset int

	// RST is the hardware reset line. Optional; when nil Init skips the
	// reset pulse.
	RST gpio.PinOut

	// MaxHz is the SPI clock used by NewSPI (default 8MHz).
	MaxHz physic.Frequency

	// Clock drives the dwell times. nil uses the real clock.
	Clock clockwork.Clock
}

// DefaultOpts matches the BoosterPack panel.
func DefaultOpts() Opts {
	return Opts{W: 128, H: 128, XOffset: 2, YOffset: 1}
}

// Driver is the device handle for the panel.
type Driver struct {
	ch    *Channel
	rst   gpio.PinOut
	clock clockwork.Clock

	rect       image.Rectangle
	xOff, yOff int
}

// New returns a driver on an existing channel. opts can be nil for the
// BoosterPack defaults.
func New(ch *Channel, opts *Opts) (*Driver, error) {
	if ch == nil {
		return nil, errors.New("lcd: nil channel")
	}
	o := DefaultOpts()
	if opts != nil {
		o = *opts
	}
	if o.W <= 0 || o.H <= 0 || o.W+o.XOffset > 0xFFFF || o.H+o.YOffset > 0xFFFF {
		return nil, fmt.Errorf("lcd: invalid geometry %dx%d", o.W, o.H)
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return &Driver{
		ch:    ch,
		rst:   o.RST,
		clock: o.Clock,
		rect:  image.Rect(0, 0, o.W, o.H),
		xOff:  o.XOffset,
		yOff:  o.YOffset,
	}, nil
}

// NewSPI connects to the controller on p using mode 0, 8 bit words. The
// dc pin must already be usable as an output. Init must be called before
// drawing.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Driver, error) {
	o := DefaultOpts()
	if opts != nil {
		o = *opts
	}
	if o.MaxHz == 0 {
		o.MaxHz = 8 * physic.MegaHertz
	}
	c, err := p.Connect(o.MaxHz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("lcd: failed to connect SPI: %w", err)
	}
	return New(NewChannel(c, dc), &o)
}

// Bounds returns the visible pixel area.
func (d *Driver) Bounds() image.Rectangle {
	return d.rect
}

func (d *Driver) String() string {
	return fmt.Sprintf("st7735.Driver{%dx%d+%d+%d}", d.rect.Dx(), d.rect.Dy(), d.xOff, d.yOff)
}

// reset pulses the hardware reset line.
func (d *Driver) reset() error {
	if d.rst == nil {
		return nil
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("lcd: failed to pull RST low: %w", err)
	}
	d.clock.Sleep(resetHold)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("lcd: failed to pull RST high: %w", err)
	}
	d.clock.Sleep(resetSettle)
	return nil
}

// Init runs the power-up sequence. The order and the waits are fixed by the
// controller; the screen is cleared to black before the output is enabled.
func (d *Driver) Init() error {
	if err := d.reset(); err != nil {
		return err
	}

	if err := d.ch.Command(cmdSLPOUT); err != nil {
		return err
	}
	d.clock.Sleep(sleepOutWait)

	steps := []struct {
		cmd  byte
		args []byte
	}{
		{cmdGAMSET, []byte{0x04}},        // gamma curve 3
		{cmdFRMCTR1, []byte{0x0A, 0x14}}, // frame rate / power timing
		{cmdPWCTR1, []byte{0x0A, 0x00}},  // standby timing
	}
	for _, s := range steps {
		if err := d.ch.Command(s.cmd, s.args...); err != nil {
			return err
		}
	}

	if err := d.ch.Command(cmdCOLMOD, 0x05); err != nil { // 16 bpp
		return err
	}
	d.clock.Sleep(colmodWait)

	if err := d.ch.Command(cmdMADCTL, madctlBGR); err != nil {
		return err
	}
	if err := d.ch.Command(cmdNORON); err != nil {
		return err
	}
	if err := d.Clear(Black); err != nil {
		return err
	}
	d.clock.Sleep(dispOnWait)
	return d.ch.Command(cmdDISPON)
}

// setWindow programs the column and row address ranges, both inclusive,
// in visible coordinates.
func (d *Driver) setWindow(x0, y0, x1, y1 int) error {
	cx0, cx1 := x0+d.xOff, x1+d.xOff
	ry0, ry1 := y0+d.yOff, y1+d.yOff
	if err := d.ch.Command(cmdCASET, byte(cx0>>8), byte(cx0), byte(cx1>>8), byte(cx1)); err != nil {
		return err
	}
	return d.ch.Command(cmdRASET, byte(ry0>>8), byte(ry0), byte(ry1>>8), byte(ry1))
}

// Clear fills the whole visible area with c. The window is set once and the
// controller's cursor auto-increments across it.
func (d *Driver) Clear(c Color) error {
	w, h := d.rect.Dx(), d.rect.Dy()
	if err := d.setWindow(0, 0, w-1, h-1); err != nil {
		return err
	}
	if err := d.ch.Command(cmdRAMWR); err != nil {
		return err
	}
	hi, lo := c.Bytes()
	row := make([]byte, 2*w)
	for i := 0; i < len(row); i += 2 {
		row[i], row[i+1] = hi, lo
	}
	for y := 0; y < h; y++ {
		if err := d.ch.SendData(row); err != nil {
			return err
		}
	}
	return nil
}

// SetPixel writes one pixel through a 1x1 window. Coordinates outside the
// panel are not checked.
func (d *Driver) SetPixel(x, y int, c Color) error {
	if err := d.setWindow(x, y, x, y); err != nil {
		return err
	}
	hi, lo := c.Bytes()
	return d.ch.Command(cmdRAMWR, hi, lo)
}

// Halt turns the output off and puts the controller to sleep.
func (d *Driver) Halt() error {
	if err := d.ch.Command(cmdDISPOFF); err != nil {
		return err
	}
	return d.ch.Command(cmdSLPIN)
}
