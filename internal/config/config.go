package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all drover configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Model provider configuration
	Model ModelConfig `yaml:"model"`

	// Shell execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Tool trust settings
	Trust TrustConfig `yaml:"trust"`

	// Turn processing settings
	Turn TurnConfig `yaml:"turn"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig configures the model provider.
type ModelConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ExecutionConfig configures shell command execution.
type ExecutionConfig struct {
	// When non-empty, only these binaries may be invoked (strict allowlist mode)
	AllowedBinaries []string `yaml:"allowed_binaries"`

	// Default timeout for commands
	DefaultTimeout string `yaml:"default_timeout"`

	// Working directory for commands
	WorkingDirectory string `yaml:"working_directory"`

	// Environment variables to pass through to child processes
	AllowedEnvVars []string `yaml:"allowed_env_vars"`

	// Bytes inspected at the head of command output when deciding
	// whether the stream is binary
	BinarySniffBytes int `yaml:"binary_sniff_bytes"`

	// Minimum interval between streamed output updates
	OutputThrottle string `yaml:"output_throttle"`

	// Grace period between SIGTERM and SIGKILL on abort
	KillGrace string `yaml:"kill_grace"`
}

// TrustConfig configures the tool trust store.
type TrustConfig struct {
	// Path to the trust database, relative to the workspace
	DatabasePath string `yaml:"database_path"`

	// When true, every confirmation prompt is auto-approved (YOLO mode)
	AutoApprove bool `yaml:"auto_approve"`
}

// TurnConfig configures the turn processor.
type TurnConfig struct {
	// Maximum model round-trips within a single turn
	MaxToolPasses int `yaml:"max_tool_passes"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "drover",
		Version: "0.3.0",

		Model: ModelConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-pro",
			Timeout:  "120s",
		},

		Execution: ExecutionConfig{
			AllowedBinaries:  nil, // empty = permissive mode
			DefaultTimeout:   "30s",
			WorkingDirectory: ".",
			AllowedEnvVars:   []string{"PATH", "HOME", "LANG", "LC_ALL", "TERM"},
			BinarySniffBytes: 4096,
			OutputThrottle:   "1s",
			KillGrace:        "200ms",
		},

		Trust: TrustConfig{
			DatabasePath: filepath.Join(".drover", "trust.db"),
			AutoApprove:  false,
		},

		Turn: TurnConfig{
			MaxToolPasses: 24,
		},

		Logging: LoggingConfig{
			DebugMode: false,
		},
	}
}

// Path returns the config file path for a workspace.
func Path(workspaceDir string) string {
	return filepath.Join(workspaceDir, ".drover", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadWorkspace loads the configuration for a workspace directory.
func LoadWorkspace(workspaceDir string) (*Config, error) {
	return Load(Path(workspaceDir))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Model.APIKey = key
		c.Model.Provider = "gemini"
	}
	if key := os.Getenv("DROVER_API_KEY"); key != "" {
		c.Model.APIKey = key
	}
	if model := os.Getenv("DROVER_MODEL"); model != "" {
		c.Model.Model = model
	}
	if url := os.Getenv("DROVER_BASE_URL"); url != "" {
		c.Model.BaseURL = url
	}
	if path := os.Getenv("DROVER_TRUST_DB"); path != "" {
		c.Trust.DatabasePath = path
	}
	if v := os.Getenv("DROVER_AUTO_APPROVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trust.AutoApprove = b
		}
	}
	if v := os.Getenv("DROVER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// GetModelTimeout returns the model request timeout as a duration.
func (c *Config) GetModelTimeout() time.Duration {
	d, err := time.ParseDuration(c.Model.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetDefaultTimeout returns the default command timeout as a duration.
func (c *Config) GetDefaultTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetOutputThrottle returns the output throttle interval as a duration.
func (c *Config) GetOutputThrottle() time.Duration {
	d, err := time.ParseDuration(c.Execution.OutputThrottle)
	if err != nil {
		return time.Second
	}
	return d
}

// GetKillGrace returns the SIGTERM-to-SIGKILL grace period as a duration.
func (c *Config) GetKillGrace() time.Duration {
	d, err := time.ParseDuration(c.Execution.KillGrace)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

// GetBinarySniffBytes returns the binary detection window size.
func (c *Config) GetBinarySniffBytes() int {
	if c.Execution.BinarySniffBytes <= 0 {
		return 4096
	}
	return c.Execution.BinarySniffBytes
}
