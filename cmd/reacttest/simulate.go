package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"reacttest/internal/adc"
	"reacttest/internal/config"
	"reacttest/internal/game"
	"reacttest/internal/input"
	appLog "reacttest/internal/log"
	"reacttest/internal/model"
)

const (
	clickHold   = 30 * time.Millisecond
	playerTick  = 20 * time.Millisecond
	minThinking = 300 * time.Millisecond
)

// virtualButtons builds software start/confirm buttons behind the same
// debouncers the hardware path uses, and a player that presses them and
// moves stick.
func virtualButtons(cfg config.ButtonsConfig, start, confirm *input.Flag, stick *adc.MockSampler) ([]*input.Debouncer, *autoplayer, error) {
	settle := time.Duration(cfg.SettleMs) * time.Millisecond
	p := newAutoplayer(clockwork.NewRealClock(), stick, time.Now().UnixNano())

	var out []*input.Debouncer
	for _, b := range []struct {
		name string
		pin  *input.Virtual
		flag *input.Flag
	}{
		{"start", p.start, start},
		{"confirm", p.confirm, confirm},
	} {
		d, err := input.NewDebouncer(b.name, b.pin, settle, p.clock, b.flag.Set)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, d)
	}
	return out, p, nil
}

// engineView is the part of the engine the player watches.
type engineView interface {
	State() game.State
	Status() game.Status
}

// autoplayer stands in for a person. After a reaction delay it presses
// start while the engine is idle, presses confirm for a Cross and pushes
// the stick the right way for an arrow.
type autoplayer struct {
	start, confirm *input.Virtual
	stick          *adc.MockSampler
	clock          clockwork.Clock
	rnd            *rand.Rand

	last     game.State
	lastStim string
	since    time.Time
	wait     time.Duration
}

func newAutoplayer(clock clockwork.Clock, stick *adc.MockSampler, seed int64) *autoplayer {
	return &autoplayer{
		start:   input.NewVirtual("S1"),
		confirm: input.NewVirtual("JOY_SEL"),
		stick:   stick,
		clock:   clock,
		rnd:     rand.New(rand.NewSource(seed)),
		last:    game.State(-1),
	}
}

// delay is the simulated reaction time, 300..800ms.
func (p *autoplayer) delay() time.Duration {
	return minThinking + time.Duration(p.rnd.Int63n(int64(500*time.Millisecond)))
}

// deflection is where the stick has to go to answer s.
func deflection(s model.Stimulus) (int, bool) {
	switch s {
	case model.Up, model.Right:
		return 0, true
	case model.Down, model.Left:
		return adc.FullScale - 1, true
	default:
		return 0, false
	}
}

func (p *autoplayer) run(ctx context.Context, e engineView) {
	tick := p.clock.NewTicker(playerTick)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.Chan():
		}
		p.act(e.State(), e.Status().Stimulus)
	}
}

// act reacts to one observation of the engine.
func (p *autoplayer) act(state game.State, stimulus string) {
	if state != p.last || stimulus != p.lastStim {
		p.last, p.lastStim = state, stimulus
		p.since, p.wait = p.clock.Now(), p.delay()
	}
	if p.clock.Since(p.since) < p.wait {
		return
	}

	switch state {
	case game.Idle:
		appLog.Debug("autoplay: start")
		p.start.Click(p.clock, clickHold)
	case game.AwaitingMatch:
		var s model.Stimulus
		if err := s.UnmarshalText([]byte(stimulus)); err != nil {
			return
		}
		if v, ok := deflection(s); ok {
			appLog.Debug("autoplay: stick", "stimulus", s, "to", v)
			p.stick.Deflect(v)
		} else {
			appLog.Debug("autoplay: confirm")
			p.confirm.Click(p.clock, clickHold)
		}
	default:
		return
	}
	// Still in the same state after acting means it was missed; try
	// again after another delay.
	p.since, p.wait = p.clock.Now(), p.delay()
}
