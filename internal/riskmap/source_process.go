package riskmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/riskmap/cli/internal/config"
)

// runnerFunc executes a command and returns its standard output.
// Swappable in tests so the source can be exercised without a real
// riskmapctl on PATH.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// processSource asks the platform CLI to export the workspace context as
// JSON. A nonzero exit code, a timeout, or malformed output is a miss.
type processSource struct {
	command string
	timeout time.Duration
	run     runnerFunc
}

func newProcessSource(cfg *config.Config) *processSource {
	return &processSource{
		command: cfg.ExportCommand,
		timeout: cfg.ExportTimeout,
		run:     runCommand,
	}
}

func (s *processSource) Name() string { return "process" }

func (s *processSource) Load(ctx context.Context, ws Workspace) (*ConfigEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.run(ctx, s.command, "context", "export", "--root", ws.Root, "--output", "json")
	if err != nil {
		return nil, fmt.Errorf("%s context export: %w", s.command, err)
	}

	var entry ConfigEntry
	if err := json.Unmarshal(out, &entry); err != nil {
		return nil, fmt.Errorf("%s context export: decode output: %w", s.command, err)
	}
	if entry.Identifier == "" {
		return nil, fmt.Errorf("%s context export: missing identifier", s.command)
	}
	entry.SourcePath = s.command
	entry.LoadedAt = time.Now()
	return &entry, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
