package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/crankplan/internal/threshold"
	"github.com/torosent/crankplan/internal/tracing"
)

// LogLevel names accepted by --log-level.
var logLevels = []string{"debug", "info", "warn", "error"}

type Config struct {
	PlanFile   string         `mapstructure:"plan"`
	ConfigFile string         `mapstructure:"-"`
	Timeout    time.Duration  `mapstructure:"timeout"`
	JSONOutput bool           `mapstructure:"json_output"`
	Progress   bool           `mapstructure:"progress"`
	Thresholds []string       `mapstructure:"thresholds"`
	LogLevel   string         `mapstructure:"log_level"`
	Dev        bool           `mapstructure:"dev"`
	Seed       int64          `mapstructure:"seed"`
	Tracing    tracing.Config `mapstructure:"tracing"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.PlanFile) == "" {
		issues = append(issues, "plan file is required (use --help for usage information)")
	} else if info, err := os.Stat(c.PlanFile); err != nil {
		issues = append(issues, fmt.Sprintf("plan file: %v", err))
	} else if info.IsDir() {
		issues = append(issues, fmt.Sprintf("plan file %s is a directory", c.PlanFile))
	}

	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be greater than 0")
	}

	if !isLogLevel(c.LogLevel) {
		issues = append(issues, fmt.Sprintf("log level must be one of %s", strings.Join(logLevels, ", ")))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func isLogLevel(level string) bool {
	for _, l := range logLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

func validateTracingConfig(tc tracing.Config) []string {
	var issues []string
	switch strings.ToLower(tc.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http, got %q", tc.Protocol))
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0 and 1")
	}
	return issues
}
