package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cwbudde/gjh/internal/config"
)

var (
	logLevel   string
	logFormat  string
	configPath string
	cfg        = config.Default()
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gjh",
	Short: "Evaluate AMPL models with the gjh solver",
	Long: `gjh runs AMPL Solver Library executables on .nl problem files.
The contrib.gjh solver evaluates the gradient, Jacobian and Hessian of a model
at its current point and reports them by variable and constraint name.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("log-level") || configPath == "" {
			cfg.LogLevel = logLevel
		}

		l, err := newLogger(os.Stderr, cfg.LogLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json, logfmt)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
}

// newLogger builds a slog logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	var formatter charmlog.Formatter
	switch format {
	case "text":
		formatter = charmlog.TextFormatter
	case "json":
		formatter = charmlog.JSONFormatter
	case "logfmt":
		formatter = charmlog.LogfmtFormatter
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return slog.New(handler), nil
}

// currentLogger returns the configured logger, or the default one when
// PersistentPreRunE has not run (as in tests that call run functions directly).
func currentLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
