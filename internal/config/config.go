package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the status server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DisplayConfig describes the ST7735 panel wiring and geometry.
type DisplayConfig struct {
	// SPIPort is the periph SPI port name ("" for the first one, usually
	// /dev/spidev0.0).
	SPIPort string `yaml:"spi_port" json:"spi_port"`
	// SPIHz is the bus clock.
	SPIHz int64 `yaml:"spi_hz" json:"spi_hz"`
	// DCPin and RSTPin are periph GPIO names, e.g. "GPIO25".
	DCPin  string `yaml:"dc_pin" json:"dc_pin"`
	RSTPin string `yaml:"rst_pin" json:"rst_pin"`

	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// XOffset / YOffset map the visible origin onto the controller's
	// addressable origin. The 128x128 Educational BoosterPack panel is
	// shifted by +2 columns and +1 row.
	XOffset int `yaml:"x_offset" json:"x_offset"`
	YOffset int `yaml:"y_offset" json:"y_offset"`
}

// ADCConfig describes the joystick converter on the I²C bus.
type ADCConfig struct {
	I2CBus string `yaml:"i2c_bus" json:"i2c_bus"`
	Addr   uint16 `yaml:"addr" json:"addr"`
	// XChannel / YChannel are the single-ended converter inputs wired to
	// the joystick axes.
	XChannel int `yaml:"x_channel" json:"x_channel"`
	YChannel int `yaml:"y_channel" json:"y_channel"`
	// VrefMv is the joystick supply in millivolts. Samples span 0 V to
	// this voltage.
	VrefMv int `yaml:"vref_mv" json:"vref_mv"`
}

// ButtonsConfig describes the two push buttons.
type ButtonsConfig struct {
	// StartPin is the round-start button (S1 on the BoosterPack).
	StartPin string `yaml:"start_pin" json:"start_pin"`
	// ConfirmPin is the joystick select push button.
	ConfirmPin string `yaml:"confirm_pin" json:"confirm_pin"`
	// SettleMs is the debounce re-check delay.
	SettleMs int `yaml:"settle_ms" json:"settle_ms"`
}

// SerialConfig selects the output channel.
type SerialConfig struct {
	// Device is the tty path; empty writes to stdout.
	Device string `yaml:"device" json:"device"`
	// Baud is the line speed. The line is always 8N1, raw.
	Baud int `yaml:"baud" json:"baud"`
}

// TimingConfig holds the stopwatch calibration.
type TimingConfig struct {
	// PeriodMs is the interval of the period counter.
	PeriodMs int `yaml:"period_ms" json:"period_ms"`
	// TicksPerMs is the free-running counter rate.
	TicksPerMs int `yaml:"ticks_per_ms" json:"ticks_per_ms"`
	// CrossCorrectionMs is subtracted from Cross rounds.
	CrossCorrectionMs int `yaml:"cross_correction_ms" json:"cross_correction_ms"`
}

// ColorsConfig holds RGB565 colors.
type ColorsConfig struct {
	Background uint16 `yaml:"background" json:"background"`
	Stimulus   uint16 `yaml:"stimulus" json:"stimulus"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status server. Empty
	// disables the server.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Summary is a cron spec for the periodic results summary log line.
	Summary string `yaml:"summary" json:"summary"`

	// Seed feeds the stimulus picker. Zero seeds from the clock.
	Seed int64 `yaml:"seed" json:"seed"`

	// PollIntervalUs throttles the spin loops. Zero spins flat out.
	PollIntervalUs int `yaml:"poll_interval_us" json:"poll_interval_us"`

	// History is how many rounds the in-memory result ring keeps.
	History int `yaml:"history" json:"history"`

	Display DisplayConfig `yaml:"display" json:"display"`
	ADC     ADCConfig     `yaml:"adc" json:"adc"`
	Buttons ButtonsConfig `yaml:"buttons" json:"buttons"`
	Serial  SerialConfig  `yaml:"serial" json:"serial"`
	Timing  TimingConfig  `yaml:"timing" json:"timing"`
	Colors  ColorsConfig  `yaml:"colors" json:"colors"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Summary == "" {
		c.Summary = "@every 5m"
	}
	if c.PollIntervalUs < 0 {
		c.PollIntervalUs = 0
	}
	if c.History <= 0 {
		c.History = 100
	}

	d := &c.Display
	if d.SPIHz <= 0 {
		d.SPIHz = 8_000_000
	}
	if d.DCPin == "" {
		d.DCPin = "GPIO25"
	}
	if d.RSTPin == "" {
		d.RSTPin = "GPIO24"
	}
	if d.Width <= 0 {
		d.Width = 128
	}
	if d.Height <= 0 {
		d.Height = 128
	}
	// Offsets may legitimately be zero on other panels, but a fresh config
	// with no geometry at all gets the BoosterPack values.
	if d.XOffset == 0 && d.YOffset == 0 {
		d.XOffset = 2
		d.YOffset = 1
	}

	if c.ADC.Addr == 0 {
		c.ADC.Addr = 0x48
	}
	if c.ADC.XChannel == 0 && c.ADC.YChannel == 0 {
		c.ADC.XChannel = 1
		c.ADC.YChannel = 0
	}
	if c.ADC.VrefMv <= 0 {
		c.ADC.VrefMv = 3300
	}

	if c.Serial.Baud <= 0 {
		c.Serial.Baud = 9600
	}

	if c.Buttons.StartPin == "" {
		c.Buttons.StartPin = "GPIO5"
	}
	if c.Buttons.ConfirmPin == "" {
		c.Buttons.ConfirmPin = "GPIO6"
	}
	if c.Buttons.SettleMs <= 0 {
		c.Buttons.SettleMs = 10
	}

	if c.Timing.PeriodMs <= 0 {
		c.Timing.PeriodMs = 100
	}
	if c.Timing.TicksPerMs <= 0 {
		c.Timing.TicksPerMs = 3000
	}
	if c.Timing.CrossCorrectionMs == 0 {
		c.Timing.CrossCorrectionMs = 10
	}

	if c.Colors.Background == 0 && c.Colors.Stimulus == 0 {
		c.Colors.Stimulus = 0xF81F // magenta
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The parent directory is created (0700), the YAML is written to a temp
// file in the same directory, chmod'ed to 0600 and renamed over path.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".reacttest-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
