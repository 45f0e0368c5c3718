package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/riskmap/cli/internal/config"
)

func Execute(cfg *config.Config) error {
	fs := afero.NewOsFs()

	rootCmd := &cobra.Command{
		Use:   "riskmap",
		Short: "🗺️  Riskmap CLI - project context for your source tree",
		Long: `Riskmap attaches business, risk and SLO metadata to source trees and
resolves, for any file, the single context record that applies to it.

Context is loaded per workspace from the first available source:
a marker file (.riskmap.yaml), the riskmapctl export command, or a
ProjectContext resource in your cluster.

Quick Start:
  • Resolve a file:      riskmap resolve src/billing/charge.py
  • Validate a marker:   riskmap check
  • Watch for changes:   riskmap watch .`,
		Example: `  # Resolve the context for a file
  riskmap resolve --workspace ~/src/payments src/billing/charge.py

  # Validate the marker file in the current directory
  riskmap check

  # Reload context as marker files change
  riskmap watch ~/src/payments`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newResolveCommand(cfg, fs),
		newCheckCommand(cfg, fs),
		newWatchCommand(cfg),
		newVersionCommand(),
	)

	return rootCmd.Execute()
}
