package lcd

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Channel is the serial command channel to the controller. Each byte goes
// out on its own, tagged as command (D/C low) or data (D/C high).
//
// The channel owns the bus and the D/C line; nothing else may touch them.
type Channel struct {
	c  conn.Conn
	dc gpio.PinOut

	// Busy, when set, is polled before every transmission and the channel
	// spins until it reports false. A transmitter that never clears hangs
	// the caller; there is no timeout.
	Busy func() bool

	maxTx int
}

// NewChannel wraps an already connected bus and the D/C pin.
func NewChannel(c conn.Conn, dc gpio.PinOut) *Channel {
	ch := &Channel{c: c, dc: dc, maxTx: 4096}
	if l, ok := c.(conn.Limits); ok {
		if n := l.MaxTxSize(); n > 0 {
			ch.maxTx = n
		}
	}
	return ch
}

func (ch *Channel) waitReady() {
	if ch.Busy == nil {
		return
	}
	for ch.Busy() {
	}
}

func (ch *Channel) selectLine(isData bool) error {
	l := gpio.Low
	if isData {
		l = gpio.High
	}
	if err := ch.dc.Out(l); err != nil {
		return fmt.Errorf("lcd: failed to drive D/C %s: %w", l, err)
	}
	return nil
}

// Send transmits one byte as command or data.
func (ch *Channel) Send(b byte, isData bool) error {
	ch.waitReady()
	if err := ch.selectLine(isData); err != nil {
		return err
	}
	if err := ch.c.Tx([]byte{b}, nil); err != nil {
		return fmt.Errorf("lcd: tx 0x%02X failed: %w", b, err)
	}
	return nil
}

// Command sends a command byte followed by its parameters as data bytes.
func (ch *Channel) Command(cmd byte, args ...byte) error {
	if err := ch.Send(cmd, false); err != nil {
		return err
	}
	for _, a := range args {
		if err := ch.Send(a, true); err != nil {
			return err
		}
	}
	return nil
}

// SendData streams a run of data bytes with a single D/C assertion. The
// buffer is split to the bus transfer limit.
func (ch *Channel) SendData(buf []byte) error {
	ch.waitReady()
	if err := ch.selectLine(true); err != nil {
		return err
	}
	for len(buf) > 0 {
		n := len(buf)
		if n > ch.maxTx {
			n = ch.maxTx
		}
		ch.waitReady()
		if err := ch.c.Tx(buf[:n], nil); err != nil {
			return fmt.Errorf("lcd: data tx failed: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}
