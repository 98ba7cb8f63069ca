// Package logging builds the zap loggers used by the
// command line tools.
package logging

import (
	"io"
	"os"

	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Debug enables debug-level messages.
	Debug bool

	// File, if set, receives a copy of every message.
	// The file is truncated when the logger is created.
	File string

	// Stderr receives the console output and defaults to
	// os.Stderr. Stdout is left to the commands.
	Stderr io.Writer
}

// New creates a logger which writes to stderr, plus an
// optional log file.
//
// The returned close function syncs the logger and closes
// the log file.
func New(opts Options) (*zap.Logger, func() error, error) {
	minLevel := zapcore.InfoLevel
	if opts.Debug {
		minLevel = zapcore.DebugLevel
	}
	stderrWriter := zapcore.Lock(zapcore.AddSync(writerOrDefault(opts.Stderr, os.Stderr)))

	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	console := zapcore.NewConsoleEncoder(config)

	cores := []zapcore.Core{
		zapcore.NewCore(console, stderrWriter, minLevel),
	}

	var file *os.File
	if opts.File != "" {
		var err error
		file, err = os.Create(opts.File)
		if err != nil {
			return nil, nil, essentials.AddCtx("create logger", err)
		}
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.RFC3339TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig),
			zapcore.Lock(file), minLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closer := func() error {
		// Syncing a terminal fails on some platforms.
		logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closer, nil
}

func writerOrDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
