package config

import (
	"os"
	"sync"
	"time"

	"weatherwatcher/internal/logger"
	"weatherwatcher/internal/sensor"
)

// Store serves the live parameters. Edits to the file are picked up on the
// next CurrentThresholds call; a file that fails to load leaves the last good
// configuration in place.
type Store struct {
	path string

	mu      sync.Mutex
	cfg     Config
	modTime time.Time
	lastErr error

	stat func(string) (os.FileInfo, error)
	load func(string) (Config, error)
}

// NewStore wraps an already loaded cfg. An empty path disables reloading.
func NewStore(path string, cfg Config) *Store {
	s := &Store{
		path: path,
		cfg:  cfg,
		stat: os.Stat,
		load: Load,
	}
	if path != "" {
		if fi, err := s.stat(path); err == nil {
			s.modTime = fi.ModTime()
		}
	}
	return s
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Reload re-reads the file if its modification time changed. It reports
// whether a new configuration was applied.
func (s *Store) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := s.stat(s.path)
	if err != nil {
		return false, s.noteErr(err)
	}
	if fi.ModTime().Equal(s.modTime) {
		return false, nil
	}
	s.modTime = fi.ModTime()

	cfg, err := s.load(s.path)
	if err != nil {
		return false, s.noteErr(err)
	}
	s.cfg = cfg
	s.lastErr = nil
	logger.Info().Str("path", s.path).Msg("config reloaded")
	return true, nil
}

func (s *Store) noteErr(err error) error {
	if s.lastErr == nil || s.lastErr.Error() != err.Error() {
		logger.Warn().Err(err).Str("path", s.path).Msg("config reload failed, keeping previous")
	}
	s.lastErr = err
	return err
}

// CurrentThresholds returns the raw channel bounds, reloading first.
func (s *Store) CurrentThresholds() sensor.Limits {
	_, _ = s.Reload()
	return s.Config().Sensors.Limits()
}

func (s *Store) AcquisitionIntervalSeconds() int {
	return s.Config().Acquisition.LogIntervalSec
}

func (s *Store) ConfigInactivityTimeoutSeconds() int {
	return s.Config().Acquisition.ConfigTimeoutSec
}
