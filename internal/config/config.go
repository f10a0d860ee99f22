package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"weatherwatcher/internal/sensor"
)

type Config struct {
	Station     StationConfig     `yaml:"station"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Sensors     SensorsConfig     `yaml:"sensors"`
	GPS         GPSConfig         `yaml:"gps"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	RTC         RTCConfig         `yaml:"rtc"`
	Storage     StorageConfig     `yaml:"storage"`
}

type StationConfig struct {
	Tick         time.Duration `yaml:"tick"`
	LoopInterval time.Duration `yaml:"loop_interval"`
	Hold         time.Duration `yaml:"hold"`
	MaxCycles    int           `yaml:"max_cycles"`
}

type AcquisitionConfig struct {
	LogIntervalSec   int `yaml:"log_interval_sec"`
	ConfigTimeoutSec int `yaml:"config_timeout_sec"`
}

type ChannelConfig struct {
	Enable bool    `yaml:"enable"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type SensorsConfig struct {
	I2CBus    string `yaml:"i2c_bus"`
	Chip      string `yaml:"chip"`
	Addr      uint16 `yaml:"addr"`
	LightPath string `yaml:"light_path"`

	Temperature ChannelConfig `yaml:"temperature"`
	Humidity    ChannelConfig `yaml:"humidity"`
	Pressure    ChannelConfig `yaml:"pressure"`
	Luminosity  ChannelConfig `yaml:"luminosity"`
}

type GPSConfig struct {
	Enable bool   `yaml:"enable"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// GPIOConfig holds BCM pin numbers. LED pins set to 0 disable the LED.
type GPIOConfig struct {
	RedButton   int `yaml:"red_button"`
	GreenButton int `yaml:"green_button"`
	LEDClock    int `yaml:"led_clock"`
	LEDData     int `yaml:"led_data"`
}

type RTCConfig struct {
	Enable bool   `yaml:"enable"`
	I2CBus string `yaml:"i2c_bus"`
	Addr   uint16 `yaml:"addr"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	FileMaxSize int64  `yaml:"file_max_size"`
	SQLitePath  string `yaml:"sqlite_path"`
}

const (
	ChipBME280 = "bme280"
	ChipBMP280 = "bmp280"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default is the configuration of a freshly flashed station. Channel bounds
// are preloaded here rather than patched after decoding because zero is a
// meaningful bound.
func Default() Config {
	return Config{
		Station: StationConfig{
			Tick:         time.Second,
			LoopInterval: 5 * time.Millisecond,
			Hold:         5 * time.Second,
			MaxCycles:    2,
		},
		Acquisition: AcquisitionConfig{
			LogIntervalSec:   10,
			ConfigTimeoutSec: 1800,
		},
		Sensors: SensorsConfig{
			I2CBus:      "/dev/i2c-1",
			Chip:        ChipBME280,
			Addr:        0x76,
			Temperature: ChannelConfig{Enable: true, Min: -10, Max: 60},
			Humidity:    ChannelConfig{Enable: true, Min: 0, Max: 50},
			Pressure:    ChannelConfig{Enable: true, Min: 850, Max: 1080},
			Luminosity:  ChannelConfig{Enable: true, Min: 255, Max: 768},
		},
		GPS: GPSConfig{
			Baud: 9600,
		},
		GPIO: GPIOConfig{
			RedButton:   5,
			GreenButton: 6,
			LEDClock:    16,
			LEDData:     20,
		},
		RTC: RTCConfig{
			I2CBus: "/dev/i2c-1",
			Addr:   0x68,
		},
		Storage: StorageConfig{
			Backend:     BackendFile,
			Dir:         "./logs",
			FileMaxSize: 4096,
			SQLitePath:  "./weatherwatcher.db",
		},
	}
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			msgs := stripLines(te.Errors)
			if strings.Contains(msgs[0], "not found in type") {
				return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
			}
			return Config{}, fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stripLines(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if i := strings.Index(e, ": "); i >= 0 && strings.HasPrefix(e, "line ") {
			e = e[i+2:]
		}
		out = append(out, e)
	}
	return out
}

// DefaultAndValidate fills zero scalars with their defaults and rejects
// inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	def := Default()

	if cfg.Station.Tick <= 0 {
		cfg.Station.Tick = def.Station.Tick
	}
	if cfg.Station.LoopInterval <= 0 {
		cfg.Station.LoopInterval = def.Station.LoopInterval
	}
	if cfg.Station.LoopInterval > cfg.Station.Tick {
		return fmt.Errorf("station.loop_interval must be <= station.tick")
	}
	if cfg.Station.Hold <= 0 {
		cfg.Station.Hold = def.Station.Hold
	}
	if cfg.Station.MaxCycles <= 0 {
		cfg.Station.MaxCycles = def.Station.MaxCycles
	}

	if cfg.Acquisition.LogIntervalSec == 0 {
		cfg.Acquisition.LogIntervalSec = def.Acquisition.LogIntervalSec
	}
	if cfg.Acquisition.LogIntervalSec < 0 || cfg.Acquisition.LogIntervalSec > 3600 {
		return fmt.Errorf("acquisition.log_interval_sec must be between 1 and 3600")
	}
	if cfg.Acquisition.ConfigTimeoutSec == 0 {
		cfg.Acquisition.ConfigTimeoutSec = def.Acquisition.ConfigTimeoutSec
	}
	if cfg.Acquisition.ConfigTimeoutSec < 0 {
		return fmt.Errorf("acquisition.config_timeout_sec must be > 0")
	}

	s := &cfg.Sensors
	if s.I2CBus == "" {
		s.I2CBus = def.Sensors.I2CBus
	}
	switch strings.ToLower(s.Chip) {
	case "":
		s.Chip = def.Sensors.Chip
	case ChipBME280, ChipBMP280:
		s.Chip = strings.ToLower(s.Chip)
	default:
		return fmt.Errorf("sensors.chip must be 'bme280' or 'bmp280'")
	}
	if s.Addr == 0 {
		s.Addr = def.Sensors.Addr
	}
	if s.Addr > 0x7F {
		return fmt.Errorf("sensors.addr must be a 7-bit address")
	}
	for _, ch := range []struct {
		name string
		cfg  ChannelConfig
	}{
		{"temperature", s.Temperature},
		{"humidity", s.Humidity},
		{"pressure", s.Pressure},
		{"luminosity", s.Luminosity},
	} {
		if ch.cfg.Min > ch.cfg.Max {
			return fmt.Errorf("sensors.%s.min must be <= max", ch.name)
		}
	}
	if _, err := sensor.NewThresholds(s.Limits()); err != nil {
		return fmt.Errorf("sensors: %w", err)
	}

	if cfg.GPS.Baud <= 0 {
		cfg.GPS.Baud = def.GPS.Baud
	}

	if cfg.GPIO.RedButton <= 0 || cfg.GPIO.GreenButton <= 0 {
		return fmt.Errorf("gpio.red_button and gpio.green_button must be > 0")
	}
	if cfg.GPIO.RedButton == cfg.GPIO.GreenButton {
		return fmt.Errorf("gpio.red_button and gpio.green_button must differ")
	}
	if cfg.GPIO.LEDClock < 0 || cfg.GPIO.LEDData < 0 {
		return fmt.Errorf("gpio.led_clock and gpio.led_data must be >= 0")
	}
	if (cfg.GPIO.LEDClock == 0) != (cfg.GPIO.LEDData == 0) {
		return fmt.Errorf("gpio.led_clock and gpio.led_data must both be set or both be 0")
	}

	if cfg.RTC.I2CBus == "" {
		cfg.RTC.I2CBus = def.RTC.I2CBus
	}
	if cfg.RTC.Addr == 0 {
		cfg.RTC.Addr = def.RTC.Addr
	}

	st := &cfg.Storage
	switch st.Backend {
	case "":
		st.Backend = def.Storage.Backend
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be 'file' or 'sqlite'")
	}
	if st.FileMaxSize <= 0 {
		st.FileMaxSize = def.Storage.FileMaxSize
	}
	if st.Backend == BackendFile && st.Dir == "" {
		return fmt.Errorf("storage.dir is required when storage.backend is 'file'")
	}
	if st.Backend == BackendSQLite && st.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required when storage.backend is 'sqlite'")
	}

	return nil
}

// LEDEnabled reports whether both LED pins are set.
func (g GPIOConfig) LEDEnabled() bool { return g.LEDClock > 0 && g.LEDData > 0 }

// Limits converts the channel settings into the validator's raw bounds.
func (s SensorsConfig) Limits() sensor.Limits {
	conv := func(c ChannelConfig) sensor.Limit {
		return sensor.Limit{Enabled: c.Enable, Min: c.Min, Max: c.Max}
	}
	return sensor.Limits{
		Temperature: conv(s.Temperature),
		Humidity:    conv(s.Humidity),
		Pressure:    conv(s.Pressure),
		Luminosity:  conv(s.Luminosity),
	}
}
