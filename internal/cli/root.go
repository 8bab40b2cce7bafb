// Package cli implements the command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srcmirror/srcmirror/internal/config"
)

var (
	// Global flags
	configPath string
	dbPathFlag string

	// Resolved values
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "srcmirror",
	Short: "srcmirror - semantic block extraction and regeneration",
	Long: `srcmirror parses source files into language-agnostic semantic blocks,
stores them, and regenerates equivalent source from the block store alone.

Python, JavaScript, TypeScript, TSX, and Rust are supported.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "version", "completion", "help":
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPathFlag != "" {
			cfg.Store.Path = dbPathFlag
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "path to the block store database")
}
