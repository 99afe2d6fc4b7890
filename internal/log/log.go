// Package log owns the process-wide logger. Verbosity is a small numeric
// level so config files and flags stay simple.
package log

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

const (
	LevelCritical = 1
	LevelError    = 2
	LevelInfo     = 3
	LevelVerbose  = 4
	LevelTrace    = 5
)

var (
	mu     sync.Mutex
	logger zerolog.Logger
	inited bool
)

// Init configures the shared logger. Calling it again adjusts the level.
func Init(level int) {
	mu.Lock()
	defer mu.Unlock()

	var zl zerolog.Level
	switch {
	case level >= LevelTrace:
		zl = zerolog.TraceLevel
	case level >= LevelVerbose:
		zl = zerolog.DebugLevel
	case level >= LevelInfo:
		zl = zerolog.InfoLevel
	case level >= LevelError:
		zl = zerolog.ErrorLevel
	default:
		zl = zerolog.FatalLevel
	}

	logger = zerolog.New(os.Stderr).Level(zl).With().Timestamp().Logger()
	inited = true
}

// Logger returns the shared logger, initializing it at LevelInfo on
// first use.
func Logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !inited {
		logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
		inited = true
	}
	return logger
}

// Component returns the shared logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}
