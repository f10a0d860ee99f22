package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weatherwatcher/internal/config"
	"weatherwatcher/internal/display"
	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/gpio"
	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/i2c"
	"weatherwatcher/internal/led"
	"weatherwatcher/internal/logger"
	"weatherwatcher/internal/rtc"
	"weatherwatcher/internal/sensors"
	"weatherwatcher/internal/sensors/bme280"
	"weatherwatcher/internal/sensors/bmp280"
	"weatherwatcher/internal/sensors/light"
	"weatherwatcher/internal/station"
	"weatherwatcher/internal/storage"
	"weatherwatcher/internal/storage/filelog"
	"weatherwatcher/internal/storage/sqlitelog"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the station (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStation(cmd, flags)
		},
	}
}

func runStation(cmd *cobra.Command, flags *rootFlags) error {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn().Err(err).Msg("close failed")
			}
		}
	}()

	var sink feedback.Sink
	if cfg.GPIO.LEDEnabled() {
		chain, err := led.Open(cfg.GPIO.LEDClock, cfg.GPIO.LEDData, 1)
		if err != nil {
			logger.Warn().Err(err).Msg("led unavailable, continuing without")
		} else {
			sink = chain
			closers = append(closers, chain)
		}
	}
	clock := feedback.MonotonicClock()
	engine := feedback.New(sink, clock, feedback.WithMaxCycles(cfg.Station.MaxCycles))

	buttons, err := gpio.OpenButtons(cfg.GPIO.RedButton, cfg.GPIO.GreenButton)
	if err != nil {
		return fmt.Errorf("buttons: %w", err)
	}
	closers = append(closers, buttons)

	timestamps := openClock(cfg.RTC, engine, &closers)

	recorder, err := openStorage(cfg.Storage, timestamps)
	if err != nil {
		return err
	}
	closers = append(closers, recorder)

	board := sensors.NewBoard(climateOpener(cfg.Sensors), lightSensor(cfg.Sensors))
	closers = append(closers, board)

	var position io.ByteReader
	if cfg.GPS.Enable {
		port := gps.NewPort(gps.Config{Enable: true, Device: cfg.GPS.Device, Baud: cfg.GPS.Baud})
		position = port
		closers = append(closers, port)
	}

	st := station.New(station.Config{
		LED:          engine,
		Sensors:      board,
		Position:     position,
		Params:       config.NewStore(path, cfg),
		Storage:      recorder,
		Display:      display.New(cmd.OutOrStdout()),
		Buttons:      buttons,
		Clock:        clock,
		Tick:         cfg.Station.Tick,
		LoopInterval: cfg.Station.LoopInterval,
		Hold:         cfg.Station.Hold,
	})

	logger.Info().
		Str("config", path).
		Str("storage", cfg.Storage.Backend).
		Str("sensor", cfg.Sensors.Chip).
		Msg("weatherwatcher starting")
	return st.Run(ctx)
}

type recorder interface {
	station.Recorder
	io.Closer
}

func openStorage(cfg config.StorageConfig, clock storage.Clock) (recorder, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		l, err := sqlitelog.Open(cfg.SQLitePath, clock)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return l, nil
	default:
		l, err := filelog.New(cfg.Dir, cfg.FileMaxSize, clock)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return nopCloser{l}, nil
	}
}

type nopCloser struct{ station.Recorder }

func (nopCloser) Close() error { return nil }

// openClock returns the timestamp source for stored readings. An enabled RTC
// that cannot be opened still yields a Clock, so each reading raises
// ClockAccess and falls back to system time.
func openClock(cfg config.RTCConfig, faults rtc.FaultReporter, closers *[]io.Closer) *rtc.Clock {
	if !cfg.Enable {
		return rtc.NewClock(nil, faults)
	}
	src, bus, err := openDS1307(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("rtc unavailable")
		return rtc.NewClock(brokenClock{err}, faults)
	}
	*closers = append(*closers, bus)
	return rtc.NewClock(src, faults)
}

func openDS1307(cfg config.RTCConfig) (*rtc.DS1307, *i2c.Bus, error) {
	bus, err := i2c.Open(cfg.I2CBus)
	if err != nil {
		return nil, nil, err
	}
	d, err := rtc.New(bus.Dev(cfg.Addr))
	if err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	return d, bus, nil
}

type brokenClock struct{ err error }

func (b brokenClock) Now() (time.Time, error) { return time.Time{}, b.err }
func (b brokenClock) Set(time.Time) error     { return b.err }

// climateOpener opens the bus and probes the chip on every call, so a
// sensor plugged in late is found on the next acquisition.
func climateOpener(cfg config.SensorsConfig) sensors.OpenFunc {
	return func() (sensors.Climate, error) {
		bus, err := i2c.Open(cfg.I2CBus)
		if err != nil {
			return nil, err
		}
		var c sensors.Climate
		switch cfg.Chip {
		case config.ChipBMP280:
			var d *bmp280.Device
			d, err = bmp280.New(bus.Dev(cfg.Addr))
			c = d
		default:
			var d *bme280.Device
			d, err = bme280.New(bus, cfg.Addr)
			c = d
		}
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
		return busClimate{Climate: c, bus: bus}, nil
	}
}

// busClimate releases the bus when the board drops the chip.
type busClimate struct {
	sensors.Climate
	bus *i2c.Bus
}

func (b busClimate) Close() error { return b.bus.Close() }

func lightSensor(cfg config.SensorsConfig) sensors.Light {
	if !cfg.Luminosity.Enable {
		return nil
	}
	return light.New(cfg.LightPath)
}
