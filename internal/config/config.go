package config

import (
	"fmt"
	"os"
	"time"
)

const (
	// DefaultCacheTTL bounds how long a resolution result is served
	// without re-consulting the loaded context set.
	DefaultCacheTTL = 30 * time.Second

	// DefaultExportTimeout bounds the external export process call.
	DefaultExportTimeout = 30 * time.Second

	// DefaultExportCommand is the executable queried by the process source.
	DefaultExportCommand = "riskmapctl"

	// DefaultNamespace is the cluster namespace searched for
	// ProjectContext resources.
	DefaultNamespace = "default"
)

type Config struct {
	CacheTTL      time.Duration
	Namespace     string
	Kubeconfig    string // optional path to alternate cluster credentials
	ExportCommand string
	ExportTimeout time.Duration
	Debug         bool
}

// Load builds the engine configuration from the environment. Every
// setting is optional and has a documented default.
func Load() (*Config, error) {
	cfg := &Config{
		CacheTTL:      DefaultCacheTTL,
		Namespace:     DefaultNamespace,
		Kubeconfig:    os.Getenv("RISKMAP_KUBECONFIG"),
		ExportCommand: DefaultExportCommand,
		ExportTimeout: DefaultExportTimeout,
		Debug:         os.Getenv("RISKMAP_DEBUG") == "true",
	}

	if v := os.Getenv("RISKMAP_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RISKMAP_CACHE_TTL %q: %w", v, err)
		}
		cfg.CacheTTL = ttl
	}

	if v := os.Getenv("RISKMAP_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}

	if v := os.Getenv("RISKMAP_EXPORT_COMMAND"); v != "" {
		cfg.ExportCommand = v
	}

	if v := os.Getenv("RISKMAP_EXPORT_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RISKMAP_EXPORT_TIMEOUT %q: %w", v, err)
		}
		cfg.ExportTimeout = timeout
	}

	return cfg, nil
}
