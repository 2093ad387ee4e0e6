package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvReportDir        = "SNAPDIFF_REPORT_DIR"
	EnvDiffFormat       = "SNAPDIFF_DIFF_FORMAT"
	EnvLogLevel         = "SNAPDIFF_LOG_LEVEL"
	EnvLogFormat        = "SNAPDIFF_LOG_FORMAT"
	EnvBatchConcurrency = "SNAPDIFF_BATCH_CONCURRENCY"
)

// LoadEnv loads KEY=value pairs from .env files into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg in place from the environment.
// lookup defaults to os.LookupEnv; tests pass their own.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvReportDir); ok {
		cfg.ReportDir = v
	}
	if v, ok := get(EnvDiffFormat); ok {
		cfg.DiffFormat = strings.ToLower(v)
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.LogFormat = v
	}
	if v, ok := get(EnvBatchConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvBatchConcurrency, v)
		}
		cfg.BatchConcurrency = n
	}
	return nil
}
