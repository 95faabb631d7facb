package main

import (
	"fmt"
	"os"
	"path/filepath"

	"drover/internal/config"
	"drover/internal/logging"
	"drover/internal/tools"
	toolscore "drover/internal/tools/core"
	toolsresearch "drover/internal/tools/research"
	toolsshell "drover/internal/tools/shell"
	"drover/internal/trust"
)

// runtime bundles the long-lived components the CLI commands share.
type runtime struct {
	workspace string
	cfg       *config.Config
	registry  *tools.Registry
	trust     *trust.Store
}

// buildRuntime loads config, initializes logging, opens the trust store and
// registers the builtin tool surface. sink receives live shell output; nil
// discards it.
func buildRuntime(sink toolsshell.OutputSink) (*runtime, error) {
	ws := workspace
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace: %w", err)
		}
	}

	cfg, err := config.LoadWorkspace(ws)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if apiKey != "" {
		cfg.Model.APIKey = apiKey
	}

	if err := logging.Initialize(ws); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("drover starting (workspace=%s, model=%s)", ws, cfg.Model.Model)

	trustPath := cfg.Trust.DatabasePath
	if !filepath.IsAbs(trustPath) {
		trustPath = filepath.Join(ws, trustPath)
	}
	trustStore, err := trust.NewStore(trustPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trust store: %w", err)
	}

	registry := tools.NewRegistry()
	if err := toolscore.RegisterAll(registry); err != nil {
		return nil, fmt.Errorf("failed to register core tools: %w", err)
	}
	if _, err := toolsshell.RegisterAll(registry, cfg, sink); err != nil {
		return nil, fmt.Errorf("failed to register shell tools: %w", err)
	}
	if err := toolsresearch.RegisterAll(registry); err != nil {
		return nil, fmt.Errorf("failed to register research tools: %w", err)
	}

	return &runtime{workspace: ws, cfg: cfg, registry: registry, trust: trustStore}, nil
}

// Close releases runtime resources.
func (r *runtime) Close() {
	if r.trust != nil {
		_ = r.trust.Close()
	}
	logging.CloseAll()
}
