package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(consoleWriter(os.Stdout))
	log.Logger = Log
}

// Options controls where log lines go
type Options struct {
	Level      string
	File       string // Rotating log file; empty keeps console only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup rebuilds the global logger from opts. Packages logging through
// zerolog/log pick up the same sinks.
func Setup(opts Options) error {
	writers := []io.Writer{consoleWriter(os.Stdout)}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    valueOr(opts.MaxSizeMB, 16), // megabytes
			MaxBackups: valueOr(opts.MaxBackups, 8),
			MaxAge:     valueOr(opts.MaxAgeDays, 30), // days
			Compress:   true,
		})
	}

	Log = newLogger(zerolog.MultiLevelWriter(writers...))
	log.Logger = Log
	SetLevel(opts.Level)
	return nil
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		if levelStr != "" {
			Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		}
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Logger()
}

func consoleWriter(f *os.File) zerolog.ConsoleWriter {
	// No colour when piped into a file or a log collector
	isTerminal := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    !isTerminal,
	}
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
