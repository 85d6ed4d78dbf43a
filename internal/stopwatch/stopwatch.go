// Package stopwatch measures reaction times the way a microcontroller timer
// does: a free-running 16-bit tick counter plus a period interrupt that
// counts whole periods.
package stopwatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Stopwatch is safe for concurrent use. The period count is written by the
// Run goroutine and read/reset by the engine.
type Stopwatch struct {
	clock      clockwork.Clock
	period     time.Duration
	ticksPerMs int64
	epoch      time.Time

	periods atomic.Uint32
}

// New returns a stopwatch whose counter runs at ticksPerMs and whose period
// interrupt fires every period. A nil clock uses the real one.
func New(clock clockwork.Clock, period time.Duration, ticksPerMs int) *Stopwatch {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	if ticksPerMs <= 0 {
		ticksPerMs = 3000
	}
	return &Stopwatch{clock: clock, period: period, ticksPerMs: int64(ticksPerMs), epoch: clock.Now()}
}

// Run is the period interrupt. It returns when ctx is done.
func (s *Stopwatch) Run(ctx context.Context) error {
	t := s.clock.NewTicker(s.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			s.periods.Add(1)
		}
	}
}

// Reset zeroes the period count. The tick counter keeps running.
func (s *Stopwatch) Reset() { s.periods.Store(0) }

// Periods returns the number of periods since the last Reset.
func (s *Stopwatch) Periods() uint32 { return s.periods.Load() }

// Read returns the tick counter. It wraps every 65536 ticks.
func (s *Stopwatch) Read() uint16 {
	d := s.clock.Since(s.epoch)
	ms := int64(d / time.Millisecond)
	frac := int64(d % time.Millisecond)
	return uint16(ms*s.ticksPerMs + frac*s.ticksPerMs/int64(time.Millisecond))
}

// ElapsedTicks is end-start on the 16-bit counter, wrapping once.
func ElapsedTicks(start, end uint16) uint16 {
	return end - start
}
