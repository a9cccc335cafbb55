// Package logging builds the loggers used across the engine. Every
// component logs through a plain *log.Logger with a bracketed
// component prefix; output goes to stderr or, when a log file is
// configured, to a size-rotated file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/config"
)

// Output builds the shared log writer from the configuration. With no
// file configured it is stderr; otherwise a rotating file writer.
func Output(cfg config.LogConfig) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}

// New returns a logger writing to w with the standard component
// prefix, e.g. New(w, "sync") logs as "[sync] ".
func New(w io.Writer, component string) *log.Logger {
	return log.New(w, "["+component+"] ", log.LstdFlags)
}

// Discard returns a logger that drops everything. Used by tests and
// quiet commands.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
