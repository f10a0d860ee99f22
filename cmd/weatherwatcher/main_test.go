package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatcher/internal/config"
	"weatherwatcher/internal/logger"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(configEnv, "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayNMEA(t *testing.T) {
	capture := strings.Join([]string{
		"$GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00*74",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W",
		"",
		"$GNRMC,123520,A,4807.040,S,01131.000,W,022.4,084.4,230394,003.1,W",
	}, "\r\n")

	var out bytes.Buffer
	sum, err := replayNMEA(strings.NewReader(capture), &out)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.lines)
	assert.Equal(t, 2, sum.fixes)
	assert.Equal(t, 1, sum.faults)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2: fix 48.117300, 11.516667", lines[0])
	assert.Equal(t, "3: position_access", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "5: fix -48.1173"), lines[2])
}

func TestReplayNMEALongGarbageRun(t *testing.T) {
	capture := strings.Repeat("x", 100_000) +
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n" +
		"$GPGGA,123520,48\n"

	var out bytes.Buffer
	sum, err := replayNMEA(strings.NewReader(capture), &out)
	require.NoError(t, err)
	assert.Equal(t, nmeaSummary{lines: 2, fixes: 1, faults: 1}, sum)
	assert.Equal(t, "1: fix 48.117300, 11.516667\n2: position_access\n", out.String())
}

func TestReplayNMEAReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := replayNMEA(iotest.ErrReader(boom), io.Discard)
	assert.ErrorIs(t, err, boom)
}

func TestNMEACommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.nmea")
	require.NoError(t, os.WriteFile(path,
		[]byte("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n"), 0o644))

	out, err := runCLI(t, "nmea", path)
	require.NoError(t, err)
	assert.Contains(t, out, "lines=1 fixes=1 faults=0")
}

func TestParamsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("acquisition:\n  log_interval_sec: 15\nsensors:\n  humidity:\n    enable: false\n"), 0o644))

	out, err := runCLI(t, "--config", path, "params")
	require.NoError(t, err)
	assert.Contains(t, out, "log interval     15s (eco 30s)")
	assert.Contains(t, out, "config timeout   1800s")
	assert.Regexp(t, `humidity\s+false`, out)
	assert.Regexp(t, `temperature\s+true\s+-10\s+60`, out)
}

func TestParamsCommandBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sensors:\n  chip: dht22\n"), 0o644))

	_, err := runCLI(t, "--config", path, "params")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sensors.chip must be 'bme280' or 'bmp280'")
}

func TestExecuteLogsFailure(t *testing.T) {
	var logs, out bytes.Buffer
	logger.InitWriter(&logs, false, false, true)
	t.Cleanup(func() { logger.InitWriter(io.Discard, false, false, true) })

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"params", "--bogus"})
	err := execute(cmd)
	require.Error(t, err)
	assert.Contains(t, logs.String(), "weatherwatcher failed")
	assert.Contains(t, logs.String(), "unknown flag: --bogus")
	assert.NotContains(t, out.String(), "Error:")
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := loadConfig(&rootFlags{configPath: defaultConfigPath})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, config.Default(), cfg)

	_, _, err = loadConfig(&rootFlags{configPath: filepath.Join(dir, "other.yaml")})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("acquisition:\n  log_interval_sec: 42\n"), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"params"})
	t.Setenv(configEnv, path)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "log interval     42s")
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("2024-03-09-14-30-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC), got)

	_, err = parseClock("2024-03-09 14:30")
	assert.Error(t, err)
}
