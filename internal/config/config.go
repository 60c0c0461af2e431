package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/schedsim/internal/scheduler"
)

// EnvPrefix prefixes every environment override, e.g. SCHEDSIM_TIME_QUANTUM.
const EnvPrefix = "SCHEDSIM_"

// SimConfig holds configuration for a simulation run and its CLI surface.
type SimConfig struct {
	TimeQuantum    int    `yaml:"time_quantum"`    // Ticks a task may run before yielding (default 5)
	AgingThreshold int    `yaml:"aging_threshold"` // Ready ticks before a one-level promotion (default 10)
	MaxPriority    int    `yaml:"max_priority"`    // Lowest priority level, 0 is highest (default 20)
	MaxTicks       int    `yaml:"max_ticks"`       // Safety bound, 0 disables it (default 1000000)
	LogLevel       string `yaml:"log_level"`       // Log level: debug, info, warn, error
	LogFormat      string `yaml:"log_format"`      // Log format: text, json, auto
	OutputFormat   string `yaml:"output_format"`   // Report format: text, json, yaml
	TraceExporter  string `yaml:"trace_exporter"`  // Trace exporter: none, stdout
}

// DefaultSimConfig returns sensible defaults.
func DefaultSimConfig() SimConfig {
	sc := scheduler.DefaultConfig()
	return SimConfig{
		TimeQuantum:    sc.TimeQuantum,
		AgingThreshold: sc.AgingThreshold,
		MaxPriority:    sc.MaxPriority,
		MaxTicks:       sc.MaxTicks,
		LogLevel:       "info",
		LogFormat:      "auto",
		OutputFormat:   "text",
		TraceExporter:  "none",
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// non-empty) and then with SCHEDSIM_* environment variables.
func Load(path string) (SimConfig, error) {
	cfg := DefaultSimConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays values found through lookup (normally os.LookupEnv).
func (c *SimConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"TIME_QUANTUM", &c.TimeQuantum},
		{"AGING_THRESHOLD", &c.AgingThreshold},
		{"MAX_PRIORITY", &c.MaxPriority},
		{"MAX_TICKS", &c.MaxTicks},
	}
	for _, f := range ints {
		v, ok := lookup(EnvPrefix + f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, f.key, err)
		}
		*f.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"LOG_LEVEL", &c.LogLevel},
		{"LOG_FORMAT", &c.LogFormat},
		{"OUTPUT_FORMAT", &c.OutputFormat},
		{"TRACE_EXPORTER", &c.TraceExporter},
	}
	for _, f := range strs {
		if v, ok := lookup(EnvPrefix + f.key); ok && v != "" {
			*f.dst = strings.TrimSpace(v)
		}
	}
	return nil
}

// Validate reports every invalid field.
func (c SimConfig) Validate() error {
	var errs []error
	if c.TimeQuantum <= 0 {
		errs = append(errs, fmt.Errorf("time_quantum must be positive, got %d", c.TimeQuantum))
	}
	if c.AgingThreshold <= 0 {
		errs = append(errs, fmt.Errorf("aging_threshold must be positive, got %d", c.AgingThreshold))
	}
	if c.MaxPriority < 0 {
		errs = append(errs, fmt.Errorf("max_priority must be >= 0, got %d", c.MaxPriority))
	}
	if c.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max_ticks must be >= 0, got %d", c.MaxTicks))
	}
	if !oneOf(c.LogFormat, "text", "json", "auto") {
		errs = append(errs, fmt.Errorf("log_format must be text, json or auto, got %q", c.LogFormat))
	}
	if !oneOf(c.OutputFormat, "text", "json", "yaml") {
		errs = append(errs, fmt.Errorf("output_format must be text, json or yaml, got %q", c.OutputFormat))
	}
	if !oneOf(c.TraceExporter, "none", "stdout", "") {
		errs = append(errs, fmt.Errorf("trace_exporter must be none or stdout, got %q", c.TraceExporter))
	}
	return errors.Join(errs...)
}

// Scheduler maps the simulation fields onto the engine configuration.
func (c SimConfig) Scheduler() scheduler.Config {
	return scheduler.Config{
		TimeQuantum:    c.TimeQuantum,
		AgingThreshold: c.AgingThreshold,
		MaxPriority:    c.MaxPriority,
		MaxTicks:       c.MaxTicks,
	}
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
