package input

import "sync/atomic"

// Flag is a one-bit latch shared between a button handler and the engine.
// Only debouncers set it; only the engine reads and clears it.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set()        { f.v.Store(true) }
func (f *Flag) Clear()      { f.v.Store(false) }
func (f *Flag) IsSet() bool { return f.v.Load() }

// Take clears the flag and reports whether it was set.
func (f *Flag) Take() bool { return f.v.Swap(false) }
