package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/riskmap/cli/internal/config"
	"github.com/riskmap/cli/internal/errors"
	"github.com/riskmap/cli/internal/riskmap"
	"github.com/riskmap/cli/internal/style"
)

func newResolveCommand(cfg *config.Config, fs afero.Fs) *cobra.Command {
	var (
		workspaces []string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "🔍 Resolve the project context applying to a file",
		Long: `Resolves the single context record that applies to a file, trying a
risk scope match first, then the nearest ancestor marker file, then the
workspace root context. "No context" is a normal outcome, not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if output != "text" && output != "json" {
				return errors.ValidationError(
					fmt.Errorf("unknown output format %q", output),
					"Supported formats: text, json",
				)
			}

			roots := workspaces
			if len(roots) == 0 {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				roots = []string{cwd}
			}

			resolver := riskmap.NewResolver(cfg, fs)
			for _, root := range roots {
				if _, err := resolver.AddWorkspace(root); err != nil {
					return errors.ValidationError(err, "Workspace roots must be resolvable paths")
				}
			}

			entry, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output == "json" {
				return printEntryJSON(cmd, entry)
			}
			printEntryText(cmd, args[0], entry)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&workspaces, "workspace", "w", nil, "Workspace root (repeatable, defaults to the current directory)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	return cmd
}

func printEntryJSON(cmd *cobra.Command, entry *riskmap.ConfigEntry) error {
	payload := struct {
		Context *riskmap.ConfigEntry `json:"context"`
		Source  string               `json:"source,omitempty"`
	}{Context: entry}
	if entry != nil {
		payload.Source = entry.SourcePath
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func printEntryText(cmd *cobra.Command, file string, entry *riskmap.ConfigEntry) {
	out := cmd.OutOrStdout()

	if entry == nil {
		fmt.Fprintf(out, "No context applies to %s\n", file)
		return
	}

	criticality := string(entry.Criticality)
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		criticality = style.ForCriticality(entry.Criticality).Render(criticality)
	}

	fmt.Fprintf(out, "Context: %s\n", entry.Identifier)
	fmt.Fprintf(out, "Criticality: %s\n", criticality)
	if entry.Owner != "" {
		fmt.Fprintf(out, "Owner: %s\n", entry.Owner)
	}
	fmt.Fprintf(out, "Source: %s\n", entry.SourcePath)

	if len(entry.Risks) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRIORITY\tTITLE\tSCOPE")
		for _, risk := range entry.Risks {
			scope := "-"
			if len(risk.Scope) > 0 {
				scope = risk.Scope[0]
				if len(risk.Scope) > 1 {
					scope = fmt.Sprintf("%s (+%d)", scope, len(risk.Scope)-1)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", risk.Priority, risk.Title, scope)
		}
		w.Flush()
	}

	if len(entry.Requirements) > 0 {
		fmt.Fprintln(out)
		for _, req := range entry.Requirements {
			fmt.Fprintf(out, "Requires %s >= %g\n", req.Name, req.Threshold)
		}
	}
}
