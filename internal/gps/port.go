package gps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"weatherwatcher/internal/logger"
)

// Config controls the receiver port.
//
// Device may be empty to auto-detect a USB receiver (/dev/ttyACM*, then
// /dev/ttyUSB*). Baud defaults to 9600, the usual NMEA rate.
type Config struct {
	Enable bool
	Device string
	Baud   int
}

const (
	minRetry = 250 * time.Millisecond
	maxRetry = 10 * time.Second
)

// Port is a reconnecting, non-blocking io.ByteReader over the receiver tty.
// It is polled from the main loop and never waits for data: when nothing is
// buffered, or the device is missing, ReadByte returns io.EOF. A failed open
// or read closes the device and retries later with exponential backoff.
type Port struct {
	cfg Config

	open func(path string, baud int) (io.ReadCloser, error)
	now  func() time.Time

	f       io.ReadCloser
	r       *bufio.Reader
	device  string
	retryAt time.Time
	backoff time.Duration
	lastErr error
}

func NewPort(cfg Config) *Port {
	return &Port{cfg: cfg, open: openSerialReader, now: time.Now}
}

func openSerialReader(path string, baud int) (io.ReadCloser, error) {
	f, err := OpenSerial(path, baud)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Port) ReadByte() (byte, error) {
	if p == nil || !p.cfg.Enable {
		return 0, io.EOF
	}
	if p.r == nil && !p.reopen() {
		return 0, io.EOF
	}
	b, err := p.r.ReadByte()
	if err == nil {
		return b, nil
	}
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	err = fmt.Errorf("gps: read %s: %w", p.device, err)
	p.fail(err)
	return 0, err
}

// Device is the path currently open, or empty.
func (p *Port) Device() string {
	if p == nil || p.f == nil {
		return ""
	}
	return p.device
}

// LastError is the most recent open or read failure.
func (p *Port) LastError() error {
	if p == nil {
		return nil
	}
	return p.lastErr
}

func (p *Port) Close() error {
	if p == nil || p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f, p.r = nil, nil
	return err
}

func (p *Port) reopen() bool {
	if p.now().Before(p.retryAt) {
		return false
	}

	device := strings.TrimSpace(p.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			p.fail(errors.New("gps: auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found"))
			return false
		}
	}
	baud := p.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	f, err := p.open(device, baud)
	if err != nil {
		p.fail(fmt.Errorf("gps: open device=%s baud=%d: %w", device, baud, err))
		return false
	}
	p.f = f
	p.r = bufio.NewReaderSize(f, 256)
	p.device = device
	p.backoff = 0
	p.lastErr = nil

	logger.Info().Str("device", device).Int("baud", baud).Msg("gps enabled")
	return true
}

func (p *Port) fail(err error) {
	if p.f != nil {
		_ = p.f.Close()
		p.f, p.r = nil, nil
	}
	switch {
	case p.backoff == 0:
		p.backoff = minRetry
	case p.backoff < maxRetry:
		p.backoff *= 2
		if p.backoff > maxRetry {
			p.backoff = maxRetry
		}
	}
	p.retryAt = p.now().Add(p.backoff)
	p.lastErr = err

	logger.Warn().Err(err).Dur("retry_in", p.backoff).Msg("gps unavailable")
}

func autoDetectDevice() string {
	candidates := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
