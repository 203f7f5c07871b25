// Package cmd provides the CLI commands for custmatch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/custmatch/internal/config"
	cmerrors "github.com/Aman-CERP/custmatch/internal/errors"
	"github.com/Aman-CERP/custmatch/internal/fuzzy"
	"github.com/Aman-CERP/custmatch/internal/logging"
	"github.com/Aman-CERP/custmatch/internal/search"
	"github.com/Aman-CERP/custmatch/internal/store"
	"github.com/Aman-CERP/custmatch/pkg/version"
)

// Persistent flags shared by every subcommand.
var (
	configPath     string
	dbPath         string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the custmatch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custmatch",
		Short: "Match queries against customer records",
		Long: `custmatch resolves agent-typed queries (names, phone numbers, emails,
identifiers, payment cards) to customer records.

A query is classified into every shape it satisfies; each shape's match
strategy runs independently and the results are merged.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("custmatch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: built-in defaults)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the record database (overrides config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.custmatch/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRun = stopLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging initializes file logging; --debug lowers the level and
// mirrors log lines to stderr.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = debugMode
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging must never block the command itself.
		return nil
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// loadConfig resolves the effective configuration from the --config and
// --db flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	return cfg, nil
}

// openEngine builds the store, fuzzy index, and engine for one command
// invocation. The caller must invoke the returned closer.
func openEngine(cfg *config.Config) (*search.Engine, *store.SQLiteStore, func(), error) {
	s, err := store.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}

	idx := fuzzy.NewIndex(cfg.Fuzzy.Dir, search.FuzzyFields(cfg), s, cfg.Fuzzy.Tolerance)
	engine := search.NewEngine(cfg, s, idx)
	return engine, s, func() { _ = s.Close() }, nil
}

// openIndex builds just the fuzzy index for maintenance commands.
func openIndex(cfg *config.Config) (*fuzzy.Index, func(), error) {
	s, err := store.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, err
	}
	idx := fuzzy.NewIndex(cfg.Fuzzy.Dir, search.FuzzyFields(cfg), s, cfg.Fuzzy.Tolerance)
	return idx, func() { _ = s.Close() }, nil
}

// Execute runs the root command.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, cmerrors.FormatForCLI(err))
	}
	return err
}
