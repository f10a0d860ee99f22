// Package station runs the main loop: it polls the LED animation and the
// buttons, drives the mode controller, and performs an acquisition whenever
// the tick scheduler says one is due.
package station

import (
	"context"
	"io"
	"time"

	"weatherwatcher/internal/control"
	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/logger"
	"weatherwatcher/internal/sensor"
	"weatherwatcher/internal/storage"
)

// Params is the live configuration. config.Store implements it.
type Params interface {
	CurrentThresholds() sensor.Limits
	AcquisitionIntervalSeconds() int
	ConfigInactivityTimeoutSeconds() int
}

// Recorder receives one acquisition.
type Recorder interface {
	Record(r sensor.Reading, fix gps.Fix) error
}

// Buttons returns the logical level of both buttons, true when pressed.
type Buttons interface {
	Read() (red, green bool, err error)
}

// Console is the configuration command console. Poll must not block and
// reports whether a command was processed.
type Console interface {
	Poll() bool
}

type Config struct {
	LED      *feedback.Engine
	Sensors  sensor.Source
	Position io.ByteReader
	Params   Params
	Storage  Recorder
	Display  Recorder
	Buttons  Buttons
	Console  Console
	Clock    feedback.Clock

	Tick            time.Duration
	LoopInterval    time.Duration
	Hold            time.Duration
	MaxBytesPerCall int
}

type Station struct {
	cfg Config

	sched     *control.Scheduler
	ctrl      *control.Controller
	validator *sensor.Validator
	parser    *gps.Parser

	mode       control.Mode
	thresholds sensor.Thresholds
	window     positionWindow
	buttonErr  error
}

// positionWindow collects parser results between two acquisitions.
type positionWindow struct {
	fix       gps.Fix
	malformed bool
}

func (w *positionWindow) add(res gps.Result) {
	switch res.Kind {
	case gps.FixFound:
		w.fix = res.Fix
	case gps.Malformed:
		w.malformed = true
	}
}

// New builds the station and boots the controller into Off.
func New(cfg Config) *Station {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = 5 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = feedback.MonotonicClock()
	}
	if cfg.LED == nil {
		cfg.LED = feedback.New(nil, cfg.Clock)
	}

	s := &Station{cfg: cfg, sched: control.NewScheduler()}
	s.ctrl = control.NewController(cfg.LED, s.sched, cfg.Params, cfg.Hold)
	s.validator = sensor.NewValidator(cfg.Sensors, cfg.LED)
	s.parser = gps.NewParser(nil, gps.WithMaxBytesPerCall(cfg.MaxBytesPerCall))

	s.ctrl.Boot()
	s.mode = s.ctrl.Mode()
	return s
}

func (s *Station) Mode() control.Mode { return s.ctrl.Mode() }

// Scheduler exposes the tick state for the ticker goroutine and diagnostics.
func (s *Station) Scheduler() *control.Scheduler { return s.sched }

// Run drives the ticker goroutine and the main loop until ctx is done.
func (s *Station) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		control.RunTicker(ctx, s.sched, s.cfg.Tick)
	}()

	logger.Info().
		Dur("tick", s.cfg.Tick).
		Dur("loop_interval", s.cfg.LoopInterval).
		Msg("station started")

	t := time.NewTicker(s.cfg.LoopInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			logger.Info().Msg("station stopped")
			return nil
		case <-t.C:
			s.Step()
		}
	}
}

// Step is one main loop iteration. It never sleeps.
func (s *Station) Step() {
	now := s.cfg.Clock()
	s.cfg.LED.Poll(now)

	red, green := s.readButtons()
	s.ctrl.Update(now, red, green)

	mode := s.ctrl.Mode()
	if mode != s.mode {
		s.mode = mode
		s.window = positionWindow{}
	}

	switch mode {
	case control.Off:
		return
	case control.Config:
		if s.sched.ConsumeConfigTimeoutDue() {
			s.ctrl.HandleConfigTimeout()
			return
		}
		if s.cfg.Console != nil && s.cfg.Console.Poll() {
			s.sched.NotifyCommand()
		}
		return
	}

	s.drainPosition()
	if s.sched.ConsumeAcquisitionDue() {
		s.acquire(mode)
	}
}

func (s *Station) readButtons() (red, green bool) {
	if s.cfg.Buttons == nil {
		return false, false
	}
	red, green, err := s.cfg.Buttons.Read()
	if err != nil {
		if s.buttonErr == nil || s.buttonErr.Error() != err.Error() {
			logger.Warn().Err(err).Msg("button read failed")
		}
		s.buttonErr = err
		return false, false
	}
	if s.buttonErr != nil {
		logger.Info().Msg("buttons recovered")
		s.buttonErr = nil
	}
	return red, green
}

func (s *Station) drainPosition() {
	if s.cfg.Position == nil {
		return
	}
	s.window.add(s.parser.Next(s.cfg.Position))
}

func (s *Station) acquire(mode control.Mode) {
	reading := s.validator.Read(s.currentThresholds())

	s.drainPosition()
	fix := s.window.fix
	if !fix.Valid && s.window.malformed {
		s.cfg.LED.RequestFault(feedback.PositionAccess)
	}
	s.window = positionWindow{}

	logger.Debug().
		Str("mode", mode.String()).
		Float64("temperature", reading.Temperature).
		Float64("humidity", reading.Humidity).
		Float64("pressure", reading.Pressure).
		Float64("luminosity", reading.Luminosity).
		Bool("fix", fix.Valid).
		Msg("acquisition")

	if mode == control.Maintenance {
		if s.cfg.Display == nil {
			return
		}
		if err := s.cfg.Display.Record(reading, fix); err != nil {
			logger.Warn().Err(err).Msg("display write failed")
		}
		return
	}

	if s.cfg.Storage == nil {
		return
	}
	if err := s.cfg.Storage.Record(reading, fix); err != nil {
		kind := storage.FaultFor(err)
		logger.Warn().Err(err).Str("fault", kind.String()).Msg("record failed")
		s.cfg.LED.RequestFault(kind)
	}
}

// currentThresholds validates the live bounds. An invalid set is logged and
// the previous one stays in force.
func (s *Station) currentThresholds() sensor.Thresholds {
	if s.cfg.Params == nil {
		return s.thresholds
	}
	th, err := sensor.NewThresholds(s.cfg.Params.CurrentThresholds())
	if err != nil {
		logger.Warn().Err(err).Msg("invalid thresholds, keeping previous")
		return s.thresholds
	}
	s.thresholds = th
	return th
}
