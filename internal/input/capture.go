// Package input captures the player's response: the joystick axis through
// an analog sampler and the buttons through debounced GPIO edges.
package input

import (
	"errors"
	"fmt"

	"reacttest/internal/adc"
	"reacttest/internal/model"
)

// ErrNoAxis is returned by Sample when no joystick axis is selected.
var ErrNoAxis = errors.New("input: no active axis")

// Capture tracks which joystick axis is live for the current stimulus and
// owns the confirm flag.
type Capture struct {
	s        adc.Sampler
	xCh, yCh adc.Channel
	axis     model.Axis
	confirm  *Flag
}

// NewCapture reads the X axis on xCh and the Y axis on yCh.
func NewCapture(s adc.Sampler, xCh, yCh adc.Channel) *Capture {
	return &Capture{s: s, xCh: xCh, yCh: yCh, confirm: &Flag{}}
}

// SelectAxis switches the sampler to the axis stimulus s is answered on.
// Cross deselects both axes.
func (c *Capture) SelectAxis(s model.Stimulus) error {
	a := s.Axis()
	switch a {
	case model.AxisX:
		if err := c.s.Configure(c.xCh); err != nil {
			return fmt.Errorf("input: select x axis: %w", err)
		}
	case model.AxisY:
		if err := c.s.Configure(c.yCh); err != nil {
			return fmt.Errorf("input: select y axis: %w", err)
		}
	}
	c.axis = a
	return nil
}

// Axis returns the active axis.
func (c *Capture) Axis() model.Axis { return c.axis }

// Sample takes one synchronous reading on the active axis.
func (c *Capture) Sample() (int, error) {
	if c.axis == model.AxisNone {
		return 0, ErrNoAxis
	}
	return c.s.ReadRaw()
}

func (c *Capture) IsConfirmed() bool { return c.confirm.IsSet() }
func (c *Capture) ClearConfirmed()   { c.confirm.Clear() }

// ConfirmFlag is the flag the confirm button's debouncer sets.
func (c *Capture) ConfirmFlag() *Flag { return c.confirm }
