package lcd

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"reacttest/internal/config"
)

// Open initializes periph.io, opens the SPI port and the D/C and RST pins
// named in cfg, and returns an initialized driver. The returned close func
// halts the panel and releases the port.
func Open(cfg config.DisplayConfig) (*Driver, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("lcd: periph host init failed: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, nil, fmt.Errorf("lcd: failed to open SPI port %q: %w", cfg.SPIPort, err)
	}

	outPin := func(name string, initial gpio.Level) (gpio.PinOut, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("lcd: gpio %s not found", name)
		}
		if err := p.Out(initial); err != nil {
			return nil, fmt.Errorf("lcd: gpio %s Out failed: %w", name, err)
		}
		return p, nil
	}

	dc, err := outPin(cfg.DCPin, gpio.Low)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}
	rst, err := outPin(cfg.RSTPin, gpio.High)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}

	opts := &Opts{
		W:       cfg.Width,
		H:       cfg.Height,
		XOffset: cfg.XOffset,
		YOffset: cfg.YOffset,
		RST:     rst,
		MaxHz:   physic.Frequency(cfg.SPIHz) * physic.Hertz,
	}
	d, err := NewSPI(port, dc, opts)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}
	if err := d.Init(); err != nil {
		_ = port.Close()
		return nil, nil, fmt.Errorf("lcd: init failed: %w", err)
	}

	closeFn := func() error {
		herr := d.Halt()
		if err := port.Close(); err != nil {
			return err
		}
		return herr
	}
	return d, closeFn, nil
}
