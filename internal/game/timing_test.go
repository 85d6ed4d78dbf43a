package game

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"reacttest/internal/model"
	"reacttest/internal/stopwatch"
)

func TestDigits(t *testing.T) {
	tests := []struct {
		v    int
		want [5]int
		str  string
	}{
		{12345, [5]int{1, 2, 3, 4, 5}, "12345"},
		{7, [5]int{0, 0, 0, 0, 7}, "00007"},
		{0, [5]int{0, 0, 0, 0, 0}, "00000"},
		{302, [5]int{0, 0, 3, 0, 2}, "00302"},
		{99999, [5]int{9, 9, 9, 9, 9}, "99999"},
		// No overflow guard: the top slot absorbs the excess.
		{123456, [5]int{12, 3, 4, 5, 6}, "<3456"},
		// Cross correction below zero.
		{-10, [5]int{0, 0, 0, -1, 0}, "000/0"},
	}
	for _, tt := range tests {
		got := Digits(tt.v)
		if got != tt.want {
			t.Errorf("Digits(%d) = %v, want %v", tt.v, got, tt.want)
		}
		if s := FormatDigits(got); s != tt.str {
			t.Errorf("FormatDigits(Digits(%d)) = %q, want %q", tt.v, s, tt.str)
		}
	}
}

func TestReactionTime(t *testing.T) {
	tm := DefaultTiming()
	tests := []struct {
		name    string
		s       model.Stimulus
		periods uint32
		ticks   uint16
		want    int
	}{
		{"ticks only", model.Up, 0, 6000, 2},
		{"periods and ticks", model.Left, 3, 6000, 302},
		{"sub-ms truncated", model.Down, 1, 2999, 100},
		{"wrapped ticks", model.Right, 0, 6536, 2},
		{"cross correction", model.Cross, 2, 3000, 191},
		{"cross goes negative", model.Cross, 0, 500, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tm.ReactionTime(tt.s, tt.periods, tt.ticks); got != tt.want {
				t.Errorf("ReactionTime = %d, want %d", got, tt.want)
			}
		})
	}
}

// At 3000 ticks/ms the 16-bit counter wraps every 21.8ms, so only the
// elapsed time modulo one wrap survives next to the period count.
func TestReactionTimeCounterResolution(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{350 * time.Millisecond, 300},
		{390 * time.Millisecond, 318},
		{310 * time.Millisecond, 304},
	}
	for _, tt := range tests {
		fc := clockwork.NewFakeClock()
		sw := stopwatch.New(fc, 100*time.Millisecond, 3000)
		start := sw.Read()
		fc.Advance(tt.elapsed)
		end := sw.Read()
		periods := uint32(tt.elapsed / (100 * time.Millisecond))
		got := DefaultTiming().ReactionTime(model.Up, periods, stopwatch.ElapsedTicks(start, end))
		if got != tt.want {
			t.Errorf("%v: ReactionTime = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		s      model.Stimulus
		sample int
		want   bool
	}{
		{model.Up, 3276, true},
		{model.Up, 3277, false},
		{model.Right, 0, true},
		{model.Right, 8192, false},
		{model.Down, 13108, true},
		{model.Down, 13107, false},
		{model.Left, 16383, true},
		{model.Left, 8192, false},
		{model.Cross, 0, false},
		{model.Cross, 16383, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.s, tt.sample); got != tt.want {
			t.Errorf("Matches(%s, %d) = %v, want %v", tt.s, tt.sample, got, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	if got, want := Report("00302"), "You took 00302ms  Press S1 to restart "; got != want {
		t.Errorf("Report = %q, want %q", got, want)
	}
}
