package main

import (
	"fmt"
	"os"
	"time"

	"github.com/riskmap/cli/internal/cli"
	"github.com/riskmap/cli/internal/config"
	"github.com/riskmap/cli/internal/sentry"
	"github.com/riskmap/cli/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := sentry.Initialize(version.GetVersion()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: telemetry disabled: %v\n", err)
	}
	defer sentry.Flush(2 * time.Second)

	if err := cli.Execute(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		sentry.CaptureError(err, map[string]string{"command": "riskmap"}, nil)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}
