package game

import (
	"reacttest/internal/adc"
	"reacttest/internal/model"
)

// Timing converts stopwatch readings into reported milliseconds.
type Timing struct {
	PeriodMs          int
	TicksPerMs        int
	CrossCorrectionMs int
}

// DefaultTiming matches the 100 ms period interrupt and the 3000 ticks/ms
// divisor.
func DefaultTiming() Timing {
	return Timing{PeriodMs: 100, TicksPerMs: 3000, CrossCorrectionMs: 10}
}

// ReactionTime is periods*PeriodMs plus the elapsed ticks in whole
// milliseconds. Cross rounds subtract CrossCorrectionMs and can go negative.
func (t Timing) ReactionTime(s model.Stimulus, periods uint32, ticks uint16) int {
	ms := int(periods)*t.PeriodMs + int(ticks)/t.TicksPerMs
	if s == model.Cross {
		ms -= t.CrossCorrectionMs
	}
	return ms
}

// Matches reports whether sample answers stimulus s. Up and Right want the
// stick below 20% of full scale, Down and Left above 80%. Cross is answered
// by the confirm button, never by a sample.
func Matches(s model.Stimulus, sample int) bool {
	switch s {
	case model.Up, model.Right:
		return 5*sample < adc.FullScale
	case model.Down, model.Left:
		return 5*sample > 4*adc.FullScale
	default:
		return false
	}
}

// Digits splits v into five decimal digits, most significant first. There
// is no overflow guard: values of 100000 and up put more than one digit's
// worth in the first slot, and negative values give negative digits.
func Digits(v int) [5]int {
	d5 := v / 10000
	d4 := (v - d5*10000) / 1000
	d3 := (v - d5*10000 - d4*1000) / 100
	d2 := (v - d5*10000 - d4*1000 - d3*100) / 10
	d1 := v - d5*10000 - d4*1000 - d3*100 - d2*10
	return [5]int{d5, d4, d3, d2, d1}
}

// FormatDigits renders each digit as '0'+d.
func FormatDigits(d [5]int) string {
	b := make([]byte, len(d))
	for i, v := range d {
		b[i] = byte('0' + v)
	}
	return string(b)
}

const (
	reportPrefix = "You took "
	reportUnit   = "ms  "
	reportPrompt = "Press S1 to restart "
)

// Report is the full line sent for a result.
func Report(digits string) string {
	return reportPrefix + digits + reportUnit + reportPrompt
}
