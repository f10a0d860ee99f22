package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

// Init initializes the logger based on the given flags.
func Init(debug, verbose, isService bool) {
	InitWriter(os.Stdout, debug, verbose, isService)
}

// InitWriter is Init with an explicit destination.
func InitWriter(out io.Writer, debug, verbose, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	if isService {
		// journald already stamps every line.
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(WarnLevel)

	if debug {
		SetLogLevel(DebugLevel)
	} else if verbose {
		SetLogLevel(InfoLevel)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService reports whether the process looks like it was started by an init system.
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

func Error() *LogEvent {
	return &LogEvent{log.Error()}
}
