package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/riskmap/cli/internal/config"
	"github.com/riskmap/cli/internal/riskmap"
)

func newWatchCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <root>...",
		Short: "👀 Reload context as marker files change",
		Long: `Runs the resolution engine with a filesystem watcher over the given
workspace roots. Marker file changes trigger a coalesced reload of the
workspace context and clear the resolution cache. Runs until
interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			resolver := riskmap.NewResolver(cfg, afero.NewOsFs())
			for _, root := range args {
				if _, err := resolver.AddWorkspace(root); err != nil {
					return err
				}
			}

			watcher, err := riskmap.NewWatcher(resolver)
			if err != nil {
				return err
			}
			watcher.OnReload = func(root string, entry *riskmap.ConfigEntry) {
				if entry == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s: no context\n", root)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s: %s (criticality %s, via %s)\n",
					root, entry.Identifier, entry.Criticality, entry.SourcePath)
			}

			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %d workspace(s), press Ctrl+C to stop\n", len(args))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	return cmd
}
