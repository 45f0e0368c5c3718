package riskmap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/riskmap/cli/internal/config"
	"github.com/riskmap/cli/internal/sentry"
)

// Source is one way a workspace ConfigEntry can be loaded. The variant
// set is closed: local file, external process, remote cluster API.
// Returning (nil, nil) means the variant had nothing for this workspace;
// returning an error means it failed and the chain moves on. Neither is
// ever surfaced to resolution callers.
type Source interface {
	Name() string
	Load(ctx context.Context, ws Workspace) (*ConfigEntry, error)
}

// Loader tries the source variants in fixed priority order and returns
// the first successful ConfigEntry. It is invoked once per workspace per
// load cycle, never per file query.
type Loader struct {
	sources []Source
	debug   io.Writer
}

// NewLoader builds the production chain: file, then process, then
// cluster.
func NewLoader(cfg *config.Config, fs afero.Fs) *Loader {
	debug := io.Discard
	if cfg.Debug {
		debug = os.Stderr
	}
	return &Loader{
		sources: []Source{
			newFileSource(fs),
			newProcessSource(cfg),
			newClusterSource(cfg),
		},
		debug: debug,
	}
}

// NewLoaderWithSources builds a chain from explicit variants, for tests
// and embedding.
func NewLoaderWithSources(sources ...Source) *Loader {
	return &Loader{sources: sources, debug: io.Discard}
}

// Load walks the chain once. Per-variant failures are swallowed as
// diagnostics; exhausting every variant yields nil, which is a valid
// "no configuration for this workspace" result, not an error.
func (l *Loader) Load(ctx context.Context, ws Workspace) *ConfigEntry {
	// One id per load cycle, so diagnostics from the three variants can
	// be correlated after the fact.
	cycle := uuid.NewString()

	for _, src := range l.sources {
		entry, err := src.Load(ctx, ws)
		if err != nil {
			l.diagnostic(cycle, ws, src.Name(), err)
			continue
		}
		if entry != nil {
			fmt.Fprintf(l.debug, "riskmap: [%s] loaded context %q for %s from %s source\n",
				cycle, entry.Identifier, ws.Root, src.Name())
			return entry
		}
	}
	fmt.Fprintf(l.debug, "riskmap: [%s] no context for %s\n", cycle, ws.Root)
	return nil
}

func (l *Loader) diagnostic(cycle string, ws Workspace, source string, err error) {
	fmt.Fprintf(l.debug, "riskmap: [%s] %s source failed for %s: %v\n", cycle, source, ws.Root, err)
	sentry.AddBreadcrumb("source", fmt.Sprintf("%s source failed", source), map[string]interface{}{
		"cycle":     cycle,
		"workspace": ws.Root,
		"error":     err.Error(),
	})
}
