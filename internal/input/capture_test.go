package input

import (
	"errors"
	"testing"

	"reacttest/internal/adc"
	"reacttest/internal/model"
)

func TestFlag(t *testing.T) {
	var f Flag
	if f.IsSet() || f.Take() {
		t.Fatal("zero Flag is set")
	}
	f.Set()
	f.Set()
	if !f.IsSet() {
		t.Fatal("Set did not latch")
	}
	if !f.Take() {
		t.Fatal("Take missed the latch")
	}
	if f.Take() || f.IsSet() {
		t.Fatal("Take did not clear")
	}
	f.Set()
	f.Clear()
	if f.IsSet() {
		t.Fatal("Clear did not clear")
	}
}

func TestCaptureSelectAxis(t *testing.T) {
	tests := []struct {
		s       model.Stimulus
		axis    model.Axis
		channel adc.Channel
	}{
		{model.Up, model.AxisY, 0},
		{model.Down, model.AxisY, 0},
		{model.Left, model.AxisX, 1},
		{model.Right, model.AxisX, 1},
	}
	for _, tt := range tests {
		t.Run(tt.s.String(), func(t *testing.T) {
			s := adc.NewScript(4000)
			c := NewCapture(s, 1, 0)
			if err := c.SelectAxis(tt.s); err != nil {
				t.Fatal(err)
			}
			if c.Axis() != tt.axis {
				t.Errorf("Axis() = %s, want %s", c.Axis(), tt.axis)
			}
			if len(s.Configured) != 1 || s.Configured[0] != tt.channel {
				t.Errorf("configured channels = %v, want [%d]", s.Configured, tt.channel)
			}
			v, err := c.Sample()
			if err != nil || v != 4000 {
				t.Errorf("Sample() = %d, %v", v, err)
			}
		})
	}
}

func TestCaptureCrossHasNoAxis(t *testing.T) {
	s := adc.NewScript(100)
	c := NewCapture(s, 1, 0)
	if err := c.SelectAxis(model.Up); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectAxis(model.Cross); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Sample(); !errors.Is(err, ErrNoAxis) {
		t.Errorf("Sample() err = %v, want ErrNoAxis", err)
	}
	if len(s.Configured) != 1 {
		t.Errorf("Cross reconfigured the sampler: %v", s.Configured)
	}
	if s.Reads != 0 {
		t.Errorf("sampler read %d times", s.Reads)
	}
}

func TestCaptureSampleBeforeSelect(t *testing.T) {
	c := NewCapture(adc.NewScript(1), 1, 0)
	if _, err := c.Sample(); !errors.Is(err, ErrNoAxis) {
		t.Errorf("Sample() err = %v, want ErrNoAxis", err)
	}
}

func TestCaptureConfigureError(t *testing.T) {
	s := adc.NewScript(1)
	s.ConfigureErr = errors.New("nak")
	c := NewCapture(s, 1, 0)
	if err := c.SelectAxis(model.Left); err == nil {
		t.Fatal("expected error")
	}
	if c.Axis() != model.AxisNone {
		t.Errorf("axis changed to %s after a failed select", c.Axis())
	}
}

func TestCaptureConfirmFlag(t *testing.T) {
	c := NewCapture(adc.NewScript(1), 1, 0)
	if c.IsConfirmed() {
		t.Fatal("confirmed at start")
	}
	c.ConfirmFlag().Set()
	if !c.IsConfirmed() {
		t.Fatal("flag set but not confirmed")
	}
	c.ClearConfirmed()
	if c.IsConfirmed() {
		t.Fatal("ClearConfirmed did not clear")
	}
}
