package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zouzou-2006/algovision"
	"github.com/Zouzou-2006/algovision/internal/config"
)

var (
	flagConfig   string
	flagDB       string
	flagMaxNodes int
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "algovision",
	Short:         "Incremental source analysis for diagramming",
	Long:          "Algovision parses Python and C# with tree-sitter and produces a language-agnostic IR: outline, control-flow graphs, call edges, classes, and imports.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "snapshot database path (empty disables persistence)")
	rootCmd.PersistentFlags().IntVar(&flagMaxNodes, "max-nodes", 0, "node cap per analysis (default 2000)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig reads the config file (when given) and lets flags override it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.SnapshotDB = flagDB
	}
	if flagMaxNodes > 0 {
		cfg.MaxNodes = flagMaxNodes
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so the stdio
// protocol owns stdout.
func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

// engineOptions maps config onto engine options.
func engineOptions(cfg config.Config, log *slog.Logger) []algovision.Option {
	opts := []algovision.Option{
		algovision.WithLogger(log),
		algovision.WithMaxNodes(cfg.MaxNodes),
	}
	if cfg.SnapshotDB != "" {
		opts = append(opts, algovision.WithStore(cfg.SnapshotDB))
	}
	return opts
}
