package logger

import (
	"fmt"
	"slices"
)

// Config contains logging configuration.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string `yaml:"level" mapstructure:"level"`
	// Format is json or console. Defaults to console.
	Format string `yaml:"format" mapstructure:"format"`
	// Output is stdout or stderr. Defaults to stderr.
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error"}
	validFormats = []string{FormatJSON, FormatConsole}
)

// ApplyDefaults fills in empty fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	if !slices.Contains(validFormats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}
