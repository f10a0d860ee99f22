package filelog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"weatherwatcher/internal/feedback"
	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/sensor"
	"weatherwatcher/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

var sample = sensor.Reading{Temperature: 21, Humidity: 40, Pressure: 1013.25, Luminosity: 512}

func newTestLog(t *testing.T, maxSize int64) (*Log, *fixedClock, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "logs")
	clk := &fixedClock{t: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}
	l, err := New(dir, maxSize, clk)
	require.NoError(t, err)
	return l, clk, dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestRecord_AppendsToDailyFile(t *testing.T) {
	l, _, dir := newTestLog(t, 0)

	fix := gps.Fix{Latitude: 48.1173, Longitude: 11.516667, Valid: true}
	require.NoError(t, l.Record(sample, fix))
	require.NoError(t, l.Record(sample, gps.Fix{}))

	path := filepath.Join(dir, "240309_0.LOG")
	assert.Equal(t, path, l.Path())
	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-03-09T12:00:00Z;21.00;40.00;1013.25;512.00;0;0;0;0;48.117300;11.516667;1", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ";0.000000;0.000000;0"))
}

func TestRecord_RotatesBySize(t *testing.T) {
	l, _, dir := newTestLog(t, 200)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(sample, gps.Fix{}))
	}

	assert.Len(t, readLines(t, filepath.Join(dir, "240309_0.LOG")), 2)
	assert.Len(t, readLines(t, filepath.Join(dir, "240309_1.LOG")), 2)
	assert.Len(t, readLines(t, filepath.Join(dir, "240309_2.LOG")), 1)
	for _, name := range []string{"240309_0.LOG", "240309_1.LOG"} {
		fi, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.LessOrEqual(t, fi.Size(), int64(200))
	}
}

func TestRecord_NewDayStartsAtZero(t *testing.T) {
	l, clk, dir := newTestLog(t, 100)
	require.NoError(t, l.Record(sample, gps.Fix{}))
	require.NoError(t, l.Record(sample, gps.Fix{}))
	assert.Equal(t, filepath.Join(dir, "240309_1.LOG"), l.Path())

	clk.t = clk.t.Add(24 * time.Hour)
	require.NoError(t, l.Record(sample, gps.Fix{}))
	assert.Equal(t, filepath.Join(dir, "240310_0.LOG"), l.Path())
}

func TestRecord_ResumesHighestIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "240309_0.LOG"), []byte("old\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "240309_3.LOG"), []byte("older\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "240309_x.LOG"), []byte("junk\n"), 0o644))

	l, err := New(dir, 0, &fixedClock{t: time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, l.Record(sample, gps.Fix{}))

	lines := readLines(t, filepath.Join(dir, "240309_3.LOG"))
	require.Len(t, lines, 2)
	assert.Equal(t, "older", lines[0])
}

func TestRecord_NoSpaceIsFull(t *testing.T) {
	l, _, _ := newTestLog(t, 0)
	l.openFile = func(name string, _ int, _ os.FileMode) (*os.File, error) {
		return nil, &os.PathError{Op: "open", Path: name, Err: unix.ENOSPC}
	}

	err := l.Record(sample, gps.Fix{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrFull)
	assert.Equal(t, feedback.StorageFull, storage.FaultFor(err))
}

func TestRecord_OtherErrorIsAccess(t *testing.T) {
	l, _, _ := newTestLog(t, 0)
	l.openFile = func(name string, _ int, _ os.FileMode) (*os.File, error) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}

	err := l.Record(sample, gps.Fix{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrFull))
	assert.Equal(t, feedback.StorageAccess, storage.FaultFor(err))
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(" ", 0, nil)
	assert.Error(t, err)
}
