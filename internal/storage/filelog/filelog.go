// Package filelog appends readings to daily text files.
//
// Files are named YYMMDD_N.LOG after the record's date. When the active file
// would grow past the size limit the index N is bumped and a new file is
// started. A restart resumes the highest existing index of the day.
package filelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"weatherwatcher/internal/gps"
	"weatherwatcher/internal/logger"
	"weatherwatcher/internal/sensor"
	"weatherwatcher/internal/storage"
)

// DefaultMaxSize is the rotation threshold in bytes.
const DefaultMaxSize = 4096

type Log struct {
	dir     string
	maxSize int64
	clock   storage.Clock

	openFile func(name string, flag int, perm os.FileMode) (*os.File, error)

	day   string
	index int
	size  int64
	buf   []byte
}

func New(dir string, maxSize int64, clock storage.Clock) (*Log, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("filelog: dir is required")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, classify("mkdir", err)
	}
	return &Log{
		dir:      dir,
		maxSize:  maxSize,
		clock:    clock,
		openFile: os.OpenFile,
		buf:      make([]byte, 0, 128),
	}, nil
}

// Record appends one CSV line for r and fix.
func (l *Log) Record(r sensor.Reading, fix gps.Fix) error {
	now := time.Now()
	if l.clock != nil {
		now = l.clock.Now()
	}

	l.buf = storage.AppendCSV(l.buf[:0], now, r, fix)
	l.buf = append(l.buf, '\n')

	day := now.UTC().Format("060102")
	if day != l.day {
		l.day = day
		l.index, l.size = l.resume(day)
	}
	if l.size > 0 && l.size+int64(len(l.buf)) > l.maxSize {
		l.index++
		l.size = 0
		logger.Info().Str("file", l.name()).Msg("log rotated")
	}

	f, err := l.openFile(l.Path(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return classify("open", err)
	}
	n, err := f.Write(l.buf)
	l.size += int64(n)
	cerr := f.Close()
	if err != nil {
		return classify("write", err)
	}
	if cerr != nil {
		return classify("close", cerr)
	}
	return nil
}

// Path is the file the next record goes to.
func (l *Log) Path() string {
	return filepath.Join(l.dir, l.name())
}

func (l *Log) name() string {
	return l.day + "_" + strconv.Itoa(l.index) + ".LOG"
}

// resume finds the highest index already on disk for day and its size.
func (l *Log) resume(day string) (index int, size int64) {
	matches, _ := filepath.Glob(filepath.Join(l.dir, day+"_*.LOG"))
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".LOG")
		n, err := strconv.Atoi(strings.TrimPrefix(base, day+"_"))
		if err != nil || n < index {
			continue
		}
		if fi, err := os.Stat(m); err == nil {
			index, size = n, fi.Size()
		}
	}
	return index, size
}

func classify(op string, err error) error {
	if errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EDQUOT) {
		return fmt.Errorf("filelog: %s: %w: %v", op, storage.ErrFull, err)
	}
	return fmt.Errorf("filelog: %s: %w", op, err)
}
