package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/agent-console/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	dataDir    string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agent-console",
	Short: "Supervise an AI coding worker and chat with it from the terminal",
	Long: `A terminal client for a long-lived AI coding worker process.

agent-console provisions the worker runtime on first use, spawns the worker
against your workspace, and turns its streamed output into an interactive,
persisted chat transcript.

Features:
  • Interactive chat with streamed worker output
  • Proposed file edits with accept / decline / preview
  • Context summary (included files, token usage, cost)
  • Sessions persisted locally and restorable across runs
  • Export transcripts in multiple formats (JSONL, Markdown, YAML, JSON)

Quick Start:
  agent-console chat [workspace]        # Start or resume a session
  agent-console list                    # List stored sessions
  agent-console export --format md      # Export transcripts as Markdown

For detailed usage, see: https://github.com/iksnae/agent-console`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Custom config file location")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Custom data directory (environment + session database)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads the config file and applies the --data-dir override.
func loadConfig() (internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// openStore opens the session database for the active config.
func openStore(cfg internal.Config) (*internal.Store, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	return internal.OpenStore(dbPath)
}
