package shell

import (
	"drover/internal/config"
	"drover/internal/tools"
)

// RegisterAll registers all shell execution tools with the given registry.
// The returned Runner accepts config hot-reloads via ReplaceConfig.
func RegisterAll(registry *tools.Registry, cfg *config.Config, sink OutputSink) (*Runner, error) {
	runner := NewRunner(cfg, sink)

	allTools := []*tools.Tool{
		runner.RunCommandTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	return runner, nil
}
