package input

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/host/v3"

	"reacttest/internal/config"
	appLog "reacttest/internal/log"
)

// Pin is the part of gpio.PinIn a debouncer needs.
type Pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// DefaultSettle is the delay between an edge and the confirming read.
const DefaultSettle = 10 * time.Millisecond

// waitSlice bounds each WaitForEdge in Run so cancellation is noticed.
const waitSlice = 250 * time.Millisecond

// Debouncer turns falling edges on an active-low button into presses.
//
// On an edge it sleeps for the settle time inside the handler, throws away
// every edge that arrived meanwhile and latches a press only if the pin
// still reads low. A bounce therefore yields at most one press, and a bounce
// on release yields none.
type Debouncer struct {
	name   string
	pin    Pin
	settle time.Duration
	clock  clockwork.Clock

	// OnPress runs in the Run goroutine for every confirmed press.
	OnPress func()

	presses atomic.Uint64
}

// NewDebouncer configures pin for pull-up and falling edges.
func NewDebouncer(name string, pin Pin, settle time.Duration, clock clockwork.Clock, onPress func()) (*Debouncer, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("input: %s: configure pin: %w", name, err)
	}
	return &Debouncer{name: name, pin: pin, settle: settle, clock: clock, OnPress: onPress}, nil
}

func (d *Debouncer) Name() string { return d.name }

// Presses returns how many presses have been latched.
func (d *Debouncer) Presses() uint64 { return d.presses.Load() }

// poll waits up to timeout for an edge and handles it. It reports whether a
// press was latched.
func (d *Debouncer) poll(timeout time.Duration) bool {
	if !d.pin.WaitForEdge(timeout) {
		return false
	}
	return d.handle()
}

func (d *Debouncer) handle() bool {
	d.clock.Sleep(d.settle)
	for d.pin.WaitForEdge(0) {
	}
	if d.pin.Read() != gpio.Low {
		return false
	}
	d.presses.Add(1)
	appLog.Debug("button press", "button", d.name)
	if d.OnPress != nil {
		d.OnPress()
	}
	return true
}

// Run handles edges until ctx is done.
func (d *Debouncer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		d.poll(waitSlice)
	}
}

// Virtual is a software button for running without hardware. Press and
// Release queue the matching edge.
type Virtual struct {
	*gpiotest.Pin
}

// NewVirtual returns a released virtual button.
func NewVirtual(name string) *Virtual {
	return &Virtual{Pin: &gpiotest.Pin{N: name, L: gpio.High, EdgesChan: make(chan gpio.Level, 16)}}
}

func (v *Virtual) Press()   { v.EdgesChan <- gpio.Low }
func (v *Virtual) Release() { v.EdgesChan <- gpio.High }

// Click presses and releases the button, holding it for hold.
func (v *Virtual) Click(clock clockwork.Clock, hold time.Duration) {
	v.Press()
	clock.Sleep(hold)
	v.Release()
}

// OpenButtons opens the start and confirm buttons named in cfg and wires
// them to the two flags.
func OpenButtons(cfg config.ButtonsConfig, start, confirm *Flag) ([]*Debouncer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("input: periph host init failed: %w", err)
	}
	settle := time.Duration(cfg.SettleMs) * time.Millisecond

	var out []*Debouncer
	for _, b := range []struct {
		name string
		pin  string
		flag *Flag
	}{
		{"start", cfg.StartPin, start},
		{"confirm", cfg.ConfirmPin, confirm},
	} {
		p := gpioreg.ByName(b.pin)
		if p == nil {
			return nil, fmt.Errorf("input: gpio %s not found", b.pin)
		}
		d, err := NewDebouncer(b.name, p, settle, nil, b.flag.Set)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
