package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageflow/version"
)

var (
	cfgFile  string
	cacheDir string
	logLevel string
)

// parseLogLevel converts a string log level to slog.Level. Supports:
// debug, info, warn, error (case-insensitive).
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", level)
	}
}

func newLogger() *slog.Logger {
	level := logLevel
	if level == "" {
		level = os.Getenv("PAGEFLOW_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	parsed, err := parseLogLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
		parsed = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed}))
}

var rootCmd = &cobra.Command{
	Use:   "pageflow",
	Short: "Lazy pagination engine for e-reader documents",
	Long: `pageflow paginates a plain-text document into fixed-size, cached
pages under a given reading layout.

It exercises the lazy pagination engine directly: a document is split
into blocks, paginated on demand against a width-constrained text
measurer, and the resulting pages are cached to disk so reopening the
same book under the same layout is near-instant.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "layout config file (default: ./pageflow.yaml or ~/.pageflow/pageflow.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&cacheDir, "cache-dir", "", "page cache directory (default: ~/.pageflow/cache)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info, env: PAGEFLOW_LOG_LEVEL)",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(paginateCmd)
}
