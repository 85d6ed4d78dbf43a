// Package adc reads the joystick through an analog-to-digital converter.
//
// Samples are 14-bit, 0..FullScale-1, spanning 0 V to the joystick's
// reference voltage, so the joystick at rest sits near the middle of the
// range.
package adc

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"reacttest/internal/config"
	appLog "reacttest/internal/log"
)

// FullScale is one past the largest sample value.
const FullScale = 16384

// Channel is a single-ended converter input.
type Channel int

// Sampler abstracts the converter so the engine can run against real
// hardware, a random walk or a fixed script.
type Sampler interface {
	// Configure selects the input for subsequent reads.
	Configure(ch Channel) error
	// ReadRaw runs one conversion and returns the sample.
	ReadRaw() (int, error)
}

// ADS1115-class register map.
const (
	regConversion = 0x00
	regConfig     = 0x01

	cfgOS       = 0x8000 // write: start a conversion; read: 1 = idle
	cfgMuxAIN0  = 0x4000 // AINx vs GND is 0x4000 + x<<12
	cfgPGA4V    = 0x0200 // ±4.096 V
	cfgModeOne  = 0x0100 // single-shot
	cfgDR128    = 0x0080 // 128 SPS
	cfgCompNone = 0x0003
)

// maxBusyPolls bounds the wait for a conversion to finish.
const maxBusyPolls = 100

// pgaMillivolts is the input that reads as code 32767 with cfgPGA4V.
const pgaMillivolts = 4096

// DefaultVrefMillivolts is the joystick supply on the BoosterPack.
const DefaultVrefMillivolts = 3300

// I2CSampler talks to an ADS1115-style converter. Each ReadRaw starts a
// single-shot conversion, polls the ready bit and maps 0 V..vref onto
// 0..FullScale-1. Readings outside that span clamp to its ends.
type I2CSampler struct {
	mu     sync.Mutex
	dev    *i2c.Dev
	ch     Channel
	vrefMv int
}

// NewI2C returns a sampler for the converter at addr on bus. vrefMv is the
// joystick's supply voltage in millivolts; zero picks
// DefaultVrefMillivolts and anything above the ±4.096 V input range is
// limited to it.
func NewI2C(bus i2c.Bus, addr uint16, vrefMv int) *I2CSampler {
	if vrefMv <= 0 {
		vrefMv = DefaultVrefMillivolts
	}
	if vrefMv > pgaMillivolts {
		vrefMv = pgaMillivolts
	}
	return &I2CSampler{dev: &i2c.Dev{Bus: bus, Addr: addr}, vrefMv: vrefMv}
}

func (s *I2CSampler) Configure(ch Channel) error {
	if ch < 0 || ch > 3 {
		return fmt.Errorf("adc: channel %d out of range", ch)
	}
	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()
	return nil
}

func configWord(ch Channel) uint16 {
	return cfgOS | (cfgMuxAIN0 + uint16(ch)<<12) | cfgPGA4V | cfgModeOne | cfgDR128 | cfgCompNone
}

func (s *I2CSampler) ReadRaw() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := configWord(s.ch)
	if err := s.dev.Tx([]byte{regConfig, byte(w >> 8), byte(w)}, nil); err != nil {
		return 0, fmt.Errorf("adc: start conversion: %w", err)
	}

	buf := make([]byte, 2)
	ready := false
	for i := 0; i < maxBusyPolls; i++ {
		if err := s.dev.Tx([]byte{regConfig}, buf); err != nil {
			return 0, fmt.Errorf("adc: poll config: %w", err)
		}
		if buf[0]&(cfgOS>>8) != 0 {
			ready = true
			break
		}
	}
	if !ready {
		return 0, errors.New("adc: conversion did not complete")
	}

	if err := s.dev.Tx([]byte{regConversion}, buf); err != nil {
		return 0, fmt.Errorf("adc: read conversion: %w", err)
	}
	code := int64(int16(uint16(buf[0])<<8 | uint16(buf[1])))
	return s.scale(code), nil
}

// scale maps a signed conversion code onto the sample range.
func (s *I2CSampler) scale(code int64) int {
	if code <= 0 {
		return 0
	}
	v := code * FullScale * pgaMillivolts / (int64(s.vrefMv) * 32768)
	if v >= FullScale {
		return FullScale - 1
	}
	return int(v)
}

// MockSampler stands in for the converter when there is none. Every axis
// selection recentres it.
//
// Built with NewMock it is a random walk that wanders across the whole
// range on its own. Built with NewStick it rests near the centre until
// Deflect pushes it somewhere.
type MockSampler struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	v      int
	step   int
	drift  bool
	target int // -1 while resting
}

// restJitter is the noise of a stick at rest.
const restJitter = 64

// NewMock returns a random-walk sampler. seed 0 seeds from the clock.
func NewMock(seed int64) *MockSampler {
	m := newMock(seed)
	m.drift = true
	return m
}

// NewStick returns a sampler that holds still at the centre until
// deflected. seed 0 seeds from the clock.
func NewStick(seed int64) *MockSampler {
	return newMock(seed)
}

func newMock(seed int64) *MockSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockSampler{rnd: rand.New(rand.NewSource(seed)), v: FullScale / 2, step: 1024, target: -1}
}

func (m *MockSampler) Configure(Channel) error {
	m.mu.Lock()
	m.v = FullScale / 2
	m.target = -1
	m.mu.Unlock()
	return nil
}

// Deflect moves the stick towards v, one step per read, until the next
// Configure.
func (m *MockSampler) Deflect(v int) {
	m.mu.Lock()
	m.target = min(max(v, 0), FullScale-1)
	m.mu.Unlock()
}

func (m *MockSampler) ReadRaw() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.target >= 0:
		d := min(max(m.target-m.v, -m.step), m.step)
		m.v += d
	case m.drift:
		m.v += m.rnd.Intn(2*m.step+1) - m.step
	default:
		return FullScale/2 + m.rnd.Intn(2*restJitter+1) - restJitter, nil
	}
	if m.v < 0 {
		m.v = 0
	}
	if m.v >= FullScale {
		m.v = FullScale - 1
	}
	return m.v, nil
}

// ScriptSampler replays a fixed list of samples and then repeats the last
// one. It records what it was asked to do.
type ScriptSampler struct {
	mu   sync.Mutex
	vals []int

	Configured   []Channel
	Reads        int
	ConfigureErr error
	ReadErr      error
}

// NewScript returns a sampler that yields vals in order.
func NewScript(vals ...int) *ScriptSampler {
	return &ScriptSampler{vals: vals}
}

func (s *ScriptSampler) Configure(ch Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConfigureErr != nil {
		return s.ConfigureErr
	}
	s.Configured = append(s.Configured, ch)
	return nil
}

func (s *ScriptSampler) ReadRaw() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	if len(s.vals) == 0 {
		return 0, errors.New("adc: empty script")
	}
	i := s.Reads
	if i >= len(s.vals) {
		i = len(s.vals) - 1
	}
	s.Reads++
	return s.vals[i], nil
}

// Default returns the sampler the program should use, plus a func that
// releases it.
//
// On Linux it opens the configured I²C bus and probes the converter with
// one read. Anywhere else, or if the probe fails, it falls back to the
// random-walk mock so the rest of the program still runs.
func Default(cfg config.ADCConfig, seed int64) (Sampler, func() error) {
	nop := func() error { return nil }
	if runtime.GOOS != "linux" {
		appLog.Info("adc: not on linux, using mock sampler")
		return NewMock(seed), nop
	}
	if _, err := host.Init(); err != nil {
		appLog.Warn("adc: periph host init failed, using mock sampler", "err", err)
		return NewMock(seed), nop
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		appLog.Warn("adc: failed to open i2c bus, using mock sampler", "bus", cfg.I2CBus, "err", err)
		return NewMock(seed), nop
	}
	s := NewI2C(bus, cfg.Addr, cfg.VrefMv)
	err = s.Configure(Channel(cfg.XChannel))
	if err == nil {
		_, err = s.ReadRaw()
	}
	if err != nil {
		_ = bus.Close()
		appLog.Warn("adc: converter probe failed, using mock sampler", "addr", fmt.Sprintf("0x%02x", cfg.Addr), "err", err)
		return NewMock(seed), nop
	}
	appLog.Info("adc: using i2c converter", "bus", bus.String(), "addr", fmt.Sprintf("0x%02x", cfg.Addr), "vref_mv", s.vrefMv)
	return s, bus.Close
}
