// Package server configures the process-wide logger from configuration.
package server

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger per the configuration: leveled,
// timestamped text output to stderr, optionally duplicated to a log
// file. The returned closer is nil when no file is open.
func NewLogger(cfg *Config) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.LogFile == "" {
		return log, nil, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))

	return log, file, nil
}
