// Package cmd implements the calibboard CLI.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"calibboard/internal/config"
	"calibboard/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "calibboard",
	Short: "Normalize instrument inventories and report calibration status",
	Long: "calibboard ingests instrumentation spreadsheets (xlsx, csv, html, eml), maps their " +
		"columns onto one record shape, classifies each instrument into a subsystem and " +
		"serves filtered views with calibration KPIs.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (text, json)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads config from the environment and builds the logger, letting the
// persistent flags override the env values.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}
