// Package cli implements the commitward command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/commitward/commitward/internal/config"
)

// Exit codes. Rule failures and setup problems are distinct so CI can tell
// "bad commit" from "bad setup".
const (
	ExitOK       = 0
	ExitFail     = 1
	ExitBadInput = 2
)

var rootCmd = &cobra.Command{
	Use:   "commitward",
	Short: "Commit message policy checker and generator",
	Long: `commitward inspects a diff, classifies the change, resolves monorepo
scope, scans for leaked secrets, and validates or synthesizes a
conventional commit message against a declarative rule set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to configuration file")
	rootCmd.AddCommand(checkCmd, suggestCmd, scanCmd, previewCmd, serveCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// Default config file names searched in the repository root.
var configNames = []string{".commitward.yaml", "commitward.yaml"}

// loadConfig reads the configuration from --config, a default location, or
// falls back to the documented defaults. A malformed file exits with
// ExitBadInput.
func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitBadInput)
		}
		return cfg
	}

	root, err := gitRepoRoot()
	if err != nil {
		return config.Default()
	}
	for _, name := range configNames {
		candidate := root + "/" + name
		if _, statErr := os.Stat(candidate); statErr != nil {
			continue
		}
		cfg, err := config.Load(candidate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitBadInput)
		}
		return cfg
	}
	return config.Default()
}
