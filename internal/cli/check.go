package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/riskmap/cli/internal/config"
	"github.com/riskmap/cli/internal/errors"
	"github.com/riskmap/cli/internal/riskmap"
)

func newCheckCommand(cfg *config.Config, fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "✅ Validate a workspace marker file",
		Long: `Parses the marker file in a directory and reports risks whose scope
patterns cannot be compiled. Uncompilable patterns never match any file,
so the risks they scope silently stop applying.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			markerPath, ok := riskmap.FindMarker(fs, dir)
			if !ok {
				return errors.ConfigErrorWithContext(
					fmt.Errorf("no marker file found in %s", dir),
					fmt.Sprintf("Create one of: %v", riskmap.MarkerFilenames),
				)
			}

			data, err := afero.ReadFile(fs, markerPath)
			if err != nil {
				return err
			}
			entry, err := riskmap.ParseMarker(data, markerPath)
			if err != nil {
				return errors.ConfigError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s parses as context %q (criticality %s)\n",
				markerPath, entry.Identifier, entry.Criticality)

			deadPatterns := 0
			for _, risk := range entry.Risks {
				for _, scope := range risk.Scope {
					if !riskmap.CompilePattern(scope).Compiled() {
						deadPatterns++
						fmt.Fprintf(cmd.OutOrStdout(), "⚠ risk %q: scope pattern %q does not compile and will never match\n",
							risk.Title, scope)
					}
				}
			}
			if deadPatterns == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d risk(s), all scope patterns compile\n", len(entry.Risks))
			}
			return nil
		},
	}
	return cmd
}
