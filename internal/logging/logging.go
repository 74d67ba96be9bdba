// Package logging wires zerolog to a console writer and a rotating log
// file, the way the teacher's networking/server.go logs to stdout but
// upgraded to structured, leveled events with file rotation via
// lumberjack, matching the pack's game-server manifests (zerolog) and
// log-rotation manifests (lumberjack).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// New builds a root logger. debug lowers the level to debug and enables a
// human-readable console writer in addition to the rotating file sink.
func New(debug bool, logDir string) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	fileWriter := &lumberjack.Logger{
		Filename:   logDir + "/ringserver.log",
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     28,
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(fileWriter)
	if debug {
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		multi = zerolog.MultiLevelWriter(fileWriter, console)
	}

	return zerolog.New(multi).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given subsystem name,
// in the spirit of the teacher's per-subsystem log prefixes.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
