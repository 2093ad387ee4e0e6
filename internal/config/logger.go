package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from cfg.
// Logs go to out (stderr in the CLI) so stdout stays reserved for JSON results
// and the MCP stdio transport.
func NewLogger(cfg *Config, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	levelName := "info"
	if cfg != nil && cfg.LogLevel != "" {
		levelName = cfg.LogLevel
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", levelName, err)
	}
	logger.SetLevel(level)

	format := "text"
	if cfg != nil && cfg.LogFormat != "" {
		format = strings.ToLower(cfg.LogFormat)
	}
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log_format %q: want text or json", format)
	}

	return logger, nil
}

// LogSourceError records a failed operation for one source with a consistent field set.
func LogSourceError(log logrus.FieldLogger, source, op string, err error) {
	log.WithFields(logrus.Fields{
		"source": source,
		"op":     op,
	}).WithError(err).Error("source failed")
}
