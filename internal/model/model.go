package model

import (
	"fmt"
	"time"
)

// Stimulus is one of the five prompts shown to the player.
type Stimulus int

const (
	Up Stimulus = iota
	Down
	Left
	Right
	Cross
)

// Stimuli lists every stimulus in selection order. A round picks an index
// uniformly from this slice.
var Stimuli = []Stimulus{Up, Down, Left, Right, Cross}

func (s Stimulus) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Cross:
		return "cross"
	default:
		return "unknown"
	}
}

// MarshalText lets Stimulus appear by name in JSON and YAML.
func (s Stimulus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stimulus) UnmarshalText(b []byte) error {
	for _, c := range Stimuli {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("model: unknown stimulus %q", b)
}

// Axis is the joystick axis monitored for a stimulus.
type Axis int

const (
	AxisNone Axis = iota
	AxisX
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "none"
	}
}

// Axis returns the joystick axis a stimulus is answered on. Cross is
// answered with the confirm button and has no axis.
func (s Stimulus) Axis() Axis {
	switch s {
	case Up, Down:
		return AxisY
	case Left, Right:
		return AxisX
	default:
		return AxisNone
	}
}

// Result is a single finished round.
//
// Results live in memory only; nothing is written to disk.
type Result struct {
	Stimulus Stimulus `json:"stimulus"`

	// Periods is the number of stopwatch period ticks seen while the
	// stimulus was on screen.
	Periods uint32 `json:"periods"`

	// Start / End are the raw 16-bit counter readings around the match.
	Start uint16 `json:"start"`
	End   uint16 `json:"end"`

	// Ticks is End-Start with 16-bit wraparound.
	Ticks uint16 `json:"ticks"`

	// Millis is the reported reaction time. It can be negative for very
	// fast Cross rounds because of the fixed Cross correction.
	Millis int `json:"millis"`

	// Digits is the five-digit string sent over the output channel.
	Digits string `json:"digits"`

	FinishedAt time.Time `json:"finished_at"`
}
