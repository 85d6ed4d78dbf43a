// Package game runs the reaction test: wait for the start button, show a
// random stimulus, spin until the joystick or the confirm button answers it
// and report the time taken.
package game

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"reacttest/internal/input"
	"reacttest/internal/lcd"
	appLog "reacttest/internal/log"
	"reacttest/internal/model"
	"reacttest/internal/render"
)

// State is the engine's position in a round.
type State int32

const (
	Idle State = iota
	StimulusShown
	AwaitingMatch
	Reporting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case StimulusShown:
		return "stimulus_shown"
	case AwaitingMatch:
		return "awaiting_match"
	case Reporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// Input is the response side of a round.
type Input interface {
	SelectAxis(s model.Stimulus) error
	Sample() (int, error)
	IsConfirmed() bool
	ClearConfirmed()
}

// Timer is the stopwatch as the engine sees it.
type Timer interface {
	Reset()
	Periods() uint32
	Read() uint16
}

// Output receives the result line.
type Output interface {
	WriteString(s string) error
	WriteChar(b byte) error
}

// Options tunes an Engine. Zero values pick defaults.
type Options struct {
	Timing     Timing
	Background lcd.Color

	// PollInterval is slept between polls of the spin loops. Zero yields
	// the processor instead.
	PollInterval time.Duration

	// Seed feeds the stimulus picker; zero seeds from the clock.
	Seed  int64
	Clock clockwork.Clock

	// RetryDelay is waited after a failed round before the next one.
	RetryDelay time.Duration
}

// Status is a point-in-time view of the engine for the status server.
type Status struct {
	State    string `json:"state"`
	Stimulus string `json:"stimulus,omitempty"`
	Rounds   uint64 `json:"rounds"`
}

// Engine owns the round state machine. Only Run (or Round/Play) may be
// called from one goroutine at a time; State and Status are safe from any.
type Engine struct {
	screen   render.Surface
	renderer *render.Renderer
	in       Input
	start    *input.Flag
	sw       Timer
	out      Output

	opts Options
	rnd  *rand.Rand

	state    atomic.Int32
	stimulus atomic.Int32 // -1 when nothing is on screen
	rounds   atomic.Uint64

	// OnResult, if set, receives every finished round.
	OnResult func(model.Result)
}

// New wires an engine. screen is cleared between rounds and r draws on it.
func New(screen render.Surface, r *render.Renderer, in Input, start *input.Flag, sw Timer, out Output, opts Options) *Engine {
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = opts.Clock.Now().UnixNano()
	}
	e := &Engine{
		screen:   screen,
		renderer: r,
		in:       in,
		start:    start,
		sw:       sw,
		out:      out,
		opts:     opts,
		rnd:      rand.New(rand.NewSource(seed)),
	}
	e.stimulus.Store(-1)
	return e
}

func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	appLog.Debug("engine state", "state", s)
}

// Status reports the current state, the stimulus on screen and the number
// of finished rounds.
func (e *Engine) Status() Status {
	st := Status{State: e.State().String(), Rounds: e.rounds.Load()}
	if v := e.stimulus.Load(); v >= 0 {
		st.Stimulus = model.Stimulus(v).String()
	}
	return st
}

// Run plays rounds until ctx is done or, when rounds > 0, that many rounds
// have finished. A failed round is logged and the next one starts after
// RetryDelay.
func (e *Engine) Run(ctx context.Context, rounds int) error {
	for n := 0; rounds <= 0 || n < rounds; {
		if _, err := e.Round(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			appLog.Error("round failed", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.opts.Clock.After(e.opts.RetryDelay):
			}
			continue
		}
		n++
	}
	return nil
}

// Round clears the screen, picks a stimulus, waits for the start button and
// plays it.
func (e *Engine) Round(ctx context.Context) (model.Result, error) {
	e.setState(Idle)
	e.stimulus.Store(-1)
	if err := e.screen.Clear(e.opts.Background); err != nil {
		return model.Result{}, fmt.Errorf("game: clear screen: %w", err)
	}

	s := model.Stimuli[e.rnd.Intn(len(model.Stimuli))]

	if err := e.spin(ctx, e.start.Take); err != nil {
		return model.Result{}, err
	}
	return e.Play(ctx, s)
}

// Play shows s, waits for the matching response and reports it.
func (e *Engine) Play(ctx context.Context, s model.Stimulus) (model.Result, error) {
	e.setState(StimulusShown)
	e.stimulus.Store(int32(s))
	if err := e.renderer.Render(s); err != nil {
		return model.Result{}, fmt.Errorf("game: render %s: %w", s, err)
	}
	if err := e.in.SelectAxis(s); err != nil {
		return model.Result{}, fmt.Errorf("game: select axis for %s: %w", s, err)
	}
	e.in.ClearConfirmed()
	e.sw.Reset()
	start := e.sw.Read()

	e.setState(AwaitingMatch)
	if err := e.awaitMatch(ctx, s); err != nil {
		return model.Result{}, err
	}
	periods := e.sw.Periods()
	e.in.ClearConfirmed()
	end := e.sw.Read()

	e.setState(Reporting)
	ticks := end - start
	ms := e.opts.Timing.ReactionTime(s, periods, ticks)
	res := model.Result{
		Stimulus:   s,
		Periods:    periods,
		Start:      start,
		End:        end,
		Ticks:      ticks,
		Millis:     ms,
		Digits:     FormatDigits(Digits(ms)),
		FinishedAt: e.opts.Clock.Now(),
	}
	if err := e.report(res.Digits); err != nil {
		return res, err
	}
	e.rounds.Add(1)
	appLog.Info("round finished", "stimulus", s, "ms", ms, "periods", periods, "ticks", ticks)
	if e.OnResult != nil {
		e.OnResult(res)
	}
	return res, nil
}

func (e *Engine) awaitMatch(ctx context.Context, s model.Stimulus) error {
	if s == model.Cross {
		return e.spin(ctx, e.in.IsConfirmed)
	}
	var sampleErr error
	err := e.spin(ctx, func() bool {
		v, err := e.in.Sample()
		if err != nil {
			sampleErr = err
			return true
		}
		return Matches(s, v)
	})
	if err != nil {
		return err
	}
	if sampleErr != nil {
		return fmt.Errorf("game: sample: %w", sampleErr)
	}
	return nil
}

// spin polls done until it reports true or ctx ends.
func (e *Engine) spin(ctx context.Context, done func() bool) error {
	for {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if e.opts.PollInterval > 0 {
			e.opts.Clock.Sleep(e.opts.PollInterval)
		} else {
			runtime.Gosched()
		}
	}
}

func (e *Engine) report(digits string) error {
	if err := e.out.WriteString(reportPrefix); err != nil {
		return fmt.Errorf("game: report: %w", err)
	}
	for i := 0; i < len(digits); i++ {
		if err := e.out.WriteChar(digits[i]); err != nil {
			return fmt.Errorf("game: report: %w", err)
		}
	}
	if err := e.out.WriteString(reportUnit); err != nil {
		return fmt.Errorf("game: report: %w", err)
	}
	if err := e.out.WriteString(reportPrompt); err != nil {
		return fmt.Errorf("game: report: %w", err)
	}
	return nil
}
