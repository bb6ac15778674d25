// Package main provides the speclint binary entry point.
// Speclint validates bilingual Markdown specification documents:
// requirements, design and tasks trios with traceability checks.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/speclint/config"
	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/specset"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "speclint"
)

// errValidationFailed marks a run that completed but found invalid documents.
// The report is already printed when this is returned.
var errValidationFailed = errors.New("validation failed")

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions carries the persistent flag values and the configuration
// resolved from them, shared by every subcommand.
type globalOptions struct {
	configPath string
	language   string
	logLevel   string

	cfg *config.Config
}

// setup configures logging and loads the layered configuration. Called once
// from the root PersistentPreRunE before any subcommand runs.
func (g *globalOptions) setup() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(g.logLevel),
	}))
	slog.SetDefault(logger)

	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromFile(g.configPath)
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if g.language != "" {
		cfg.Specs.Language = g.language
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	g.cfg = cfg
	return nil
}

func parseLogLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Spec document validator",
		Long: `Speclint validates Markdown specification documents written in
Japanese or English.

It checks:
- Requirements documents (section structure, ID format, EARS compliance)
- Design documents (structure, requirement references)
- Tasks documents (structure, coverage, dependency cycles)

It also builds traceability matrices, measures EARS compliance over
arbitrary documents, checks implementation coverage annotations, watches
spec directories for changes, and serves validation over HTTP and NATS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.language, "language", "", "Document language (ja, en, auto)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		validateCmd(opts),
		traceCmd(opts),
		earsCmd(opts),
		implcheckCmd(opts),
		watchCmd(opts),
		serveCmd(opts),
	)

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading; version has no use for it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// resolveSets picks the documents a command operates on. Explicit path flags
// build a single set; otherwise sets are discovered under the positional
// directory or the configured specs directory.
func resolveSets(cfg *config.Config, args []string, requirementsPath, designPath, tasksPath string) ([]*specset.SpecSet, error) {
	if requirementsPath != "" || designPath != "" || tasksPath != "" {
		return []*specset.SpecSet{specset.New(requirementsPath, designPath, tasksPath, cfg.Language())}, nil
	}

	root := cfg.Specs.Dir
	if len(args) > 0 {
		root = args[0]
	}

	sets, err := specset.Discover(root, cfg.Specs.Patterns)
	if err != nil {
		return nil, fmt.Errorf("discover spec sets: %w", err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no spec sets found under %s", root)
	}

	if lang := cfg.Language(); lang != document.LanguageAuto {
		for _, s := range sets {
			s.Language = lang
		}
	}
	return sets, nil
}

// setDir names a set for multi-set output headers. Remote sets are named by
// their requirements URL.
func setDir(s *specset.SpecSet) string {
	for _, p := range []string{s.RequirementsPath, s.DesignPath, s.TasksPath} {
		if p == "" {
			continue
		}
		if specset.IsRemote(p) {
			return p
		}
		return filepath.Dir(p)
	}
	return "."
}
