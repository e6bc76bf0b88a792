// Package config loads the optional TOML configuration file.
//
//	data_dir  = "./data"
//	temp_dir  = ""
//	log_level = "info"
//
//	[solver]
//	name       = "contrib.gjh"
//	executable = "/opt/ampl/gjh"
//	keep_files = false
//	timeout    = "30s"
//
//	[solver.options]
//	halt_on_ampl_error = "yes"
//
// Command-line flags override file values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cwbudde/gjh/internal/solver"
)

// Config is the file-level configuration.
type Config struct {
	DataDir  string       `toml:"data_dir"`
	TempDir  string       `toml:"temp_dir"`
	LogLevel string       `toml:"log_level"`
	Solver   SolverConfig `toml:"solver"`
}

// SolverConfig holds defaults for the solve command.
type SolverConfig struct {
	Name       string            `toml:"name"`
	Executable string            `toml:"executable"`
	KeepFiles  bool              `toml:"keep_files"`
	Timeout    time.Duration     `toml:"timeout"`
	Options    map[string]string `toml:"options"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  "./data",
		LogLevel: "info",
		Solver: SolverConfig{
			Name: "contrib.gjh",
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
// Unknown keys are rejected so that typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Solver.Timeout < 0 {
		return fmt.Errorf("solver.timeout cannot be negative")
	}
	return nil
}

// InvokeOptions converts the solver section into invocation options.
func (s SolverConfig) InvokeOptions() solver.Options {
	opts := solver.Options{
		Executable: s.Executable,
		KeepFiles:  s.KeepFiles,
		Timeout:    s.Timeout,
	}
	if len(s.Options) > 0 {
		opts.SolverOptions = make(map[string]string, len(s.Options))
		for k, v := range s.Options {
			opts.SolverOptions[k] = v
		}
	}
	return opts
}
