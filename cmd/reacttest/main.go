package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reacttest/internal/adc"
	"reacttest/internal/config"
	"reacttest/internal/game"
	"reacttest/internal/input"
	"reacttest/internal/lcd"
	appLog "reacttest/internal/log"
	"reacttest/internal/render"
	"reacttest/internal/stats"
	"reacttest/internal/stopwatch"
	"reacttest/internal/uart"
	"reacttest/internal/web"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	simulate   bool
	rounds     int
	debug      bool
}

func main() {
	appLog.Info("reacttest starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"log_level", conf.LogLevel,
		"summary", conf.Summary,
		"history", conf.History,
		"spi_port", conf.Display.SPIPort,
		"i2c_bus", conf.ADC.I2CBus,
		"serial", conf.Serial.Device,
		"baud", conf.Serial.Baud,
		"simulate", flags.simulate,
		"rounds", flags.rounds,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("reacttest failed", err)
		os.Exit(1)
	}
	appLog.Info("reacttest exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	canvas := render.NewCanvas(conf.Display.Width, conf.Display.Height)
	var surface render.Surface = canvas
	if !flags.simulate {
		drv, closeDisplay, err := lcd.Open(conf.Display)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeDisplay(); err != nil {
				appLog.Error("display close failed", err)
			}
		}()
		appLog.Info("display ready", "driver", drv.String())
		surface = render.Tee{A: drv, B: canvas}
	}
	renderer := render.New(surface, render.DefaultGeometry(), lcd.Color(conf.Colors.Stimulus))

	var (
		sampler adc.Sampler
		stick   *adc.MockSampler
	)
	if flags.simulate {
		stick = adc.NewStick(conf.Seed)
		sampler = stick
	} else {
		s, closeADC := adc.Default(conf.ADC, conf.Seed)
		defer closeADC()
		sampler = s
	}
	capture := input.NewCapture(sampler, adc.Channel(conf.ADC.XChannel), adc.Channel(conf.ADC.YChannel))

	start := &input.Flag{}
	var (
		buttons []*input.Debouncer
		player  *autoplayer
		err     error
	)
	if flags.simulate {
		buttons, player, err = virtualButtons(conf.Buttons, start, capture.ConfirmFlag(), stick)
	} else {
		buttons, err = input.OpenButtons(conf.Buttons, start, capture.ConfirmFlag())
	}
	if err != nil {
		return err
	}
	for _, d := range buttons {
		go func(d *input.Debouncer) { _ = d.Run(ctx) }(d)
	}

	sw := stopwatch.New(nil, time.Duration(conf.Timing.PeriodMs)*time.Millisecond, conf.Timing.TicksPerMs)
	go func() { _ = sw.Run(ctx) }()

	port, err := uart.Open(conf.Serial.Device, conf.Serial.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	history := stats.NewHistory(conf.History)
	sched, err := stats.Schedule(conf.Summary, history)
	if err != nil {
		return err
	}
	defer func() { <-sched.Stop().Done() }()

	engine := game.New(surface, renderer, capture, start, sw, port, game.Options{
		Timing: game.Timing{
			PeriodMs:          conf.Timing.PeriodMs,
			TicksPerMs:        conf.Timing.TicksPerMs,
			CrossCorrectionMs: conf.Timing.CrossCorrectionMs,
		},
		Background:   lcd.Color(conf.Colors.Background),
		PollInterval: time.Duration(conf.PollIntervalUs) * time.Microsecond,
		Seed:         conf.Seed,
	})
	engine.OnResult = history.Add

	if conf.Listen != "" {
		srv := web.NewServer(conf, engine, history, canvas)
		go func() {
			if err := web.StartServer(ctx, srv); err != nil {
				appLog.Error("http server stopped", err)
			}
		}()
	}

	if player != nil {
		go player.run(ctx, engine)
	}

	return engine.Run(ctx, flags.rounds)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/reacttest/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.simulate, "simulate", false, "Run without hardware: canvas display, mock joystick, virtual buttons")
	flag.IntVar(&cfg.rounds, "rounds", 0, "Stop after this many rounds (0 = run until interrupted)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging")

	flag.Parse()

	return cfg
}
