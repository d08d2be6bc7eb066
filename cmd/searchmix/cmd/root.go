// Package cmd implements the searchmix CLI.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/config"
	"github.com/searchmix/searchmix/internal/index"
	"github.com/searchmix/searchmix/internal/logging"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

var rootOpts rootOptions

// NewRootCmd builds the root command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchmix",
		Short: "Full-text search over Markdown document collections",
		Long: `searchmix indexes Markdown (and convertible) documents into an embedded
full-text index and answers ranked, accent-insensitive queries with
in-context snippets navigable through the document's heading hierarchy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rootOpts.configPath, "config", "searchmix.yaml", "Config file path")
	cmd.PersistentFlags().StringVar(&rootOpts.dbPath, "db", "", "Index database path (overrides config)")
	cmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newGetCmd(),
		newStatsCmd(),
		newRemoveCmd(),
		newClearCmd(),
		newServeCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// loadConfig resolves the effective configuration from file and flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return nil, err
	}
	if rootOpts.dbPath != "" {
		cfg.DBPath = rootOpts.dbPath
	}
	if rootOpts.logLevel != "" {
		cfg.Logging.Level = rootOpts.logLevel
	}
	return cfg, nil
}

// openManager loads config, installs logging, and opens the index. The
// returned cleanup closes both.
func openManager() (*index.Manager, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logCleanup, err := logging.SetupDefault(logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		WriteToStderr: cfg.Logging.FilePath == "",
	})
	if err != nil {
		return nil, nil, nil, err
	}

	mgr, err := index.New(cfg)
	if err != nil {
		logCleanup()
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = mgr.Close()
		logCleanup()
	}
	return mgr, cfg, cleanup, nil
}
