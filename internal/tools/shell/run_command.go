// Package shell exposes validated shell command execution as a tool.
package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"drover/internal/config"
	"drover/internal/logging"
	"drover/internal/proc"
	shellval "drover/internal/shell"
	"drover/internal/tools"
)

// OutputSink receives live output from a running command. The chat layer
// plugs its display in here; a nil sink discards updates.
type OutputSink func(callID, text string)

// Runner binds the run_command tool to the execution settings in effect.
// The config can be swapped at runtime via ReplaceConfig, which is how the
// config watcher hot-reloads the allowlist.
type Runner struct {
	mu   sync.RWMutex
	cfg  *config.Config
	sink OutputSink
}

// NewRunner creates a Runner. sink may be nil.
func NewRunner(cfg *config.Config, sink OutputSink) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Runner{cfg: cfg, sink: sink}
}

// ReplaceConfig swaps the execution settings for subsequent commands.
// Commands already running keep the settings they started with.
func (r *Runner) ReplaceConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	logging.Shell("execution settings reloaded")
}

func (r *Runner) config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// RunCommandTool returns the tool for executing validated shell commands.
// Every call requires confirmation; the command string is shown verbatim so
// the user approves exactly what will run.
func (r *Runner) RunCommandTool() *tools.Tool {
	return &tools.Tool{
		Name:        "run_command",
		Description: "Execute a shell command and return its output",
		Category:    tools.CategoryShell,
		Priority:    70,
		Execute:     r.executeRunCommand,
		ValidateArgs: func(args map[string]any) error {
			command, err := tools.StringArg(args, "command")
			if err != nil {
				return err
			}
			if rej := r.validateCommand(command); rej != nil {
				return rej
			}
			return nil
		},
		Describe: func(args map[string]any) string {
			return tools.OptionalStringArg(args, "command", "?")
		},
		Confirm: func(args map[string]any) *tools.ConfirmationDetails {
			command := tools.OptionalStringArg(args, "command", "?")
			return &tools.ConfirmationDetails{
				Title:       "Run shell command",
				Description: fmt.Sprintf("Execute `%s` in the workspace", command),
				Command:     command,
			}
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory for the command",
				},
			},
		},
	}
}

func (r *Runner) validateCommand(command string) *shellval.Rejection {
	cfg := r.config()
	if len(cfg.Execution.AllowedBinaries) > 0 {
		return shellval.ValidateAllowlisted(command, cfg.Execution.AllowedBinaries)
	}
	return shellval.Validate(command)
}

func (r *Runner) executeRunCommand(ctx context.Context, args map[string]any) (tools.Output, error) {
	command, err := tools.StringArg(args, "command")
	if err != nil {
		return tools.Output{}, err
	}

	// Validation gates execution even when the scheduler path skipped
	// ValidateArgs; an unvalidated string never reaches the spawner.
	if rej := r.validateCommand(command); rej != nil {
		logging.ShellDebug("run_command rejected (%s): %s", rej.Category, command)
		return tools.Output{}, rej
	}

	cfg := r.config()
	workingDir := tools.OptionalStringArg(args, "working_dir", cfg.Execution.WorkingDirectory)
	callID := tools.OptionalStringArg(args, "call_id", "")

	logging.Shell("run_command: %s (dir=%s)", command, workingDir)

	onOutput := func(text string) {
		if r.sink != nil {
			r.sink(callID, text)
		}
	}
	var debugNotes []string
	onDebug := func(text string) {
		debugNotes = append(debugNotes, text)
	}

	res := proc.Execute(ctx, command, proc.Options{
		WorkingDir:       workingDir,
		SniffBytes:       cfg.GetBinarySniffBytes(),
		ThrottleInterval: cfg.GetOutputThrottle(),
		KillGrace:        cfg.GetKillGrace(),
	}, onOutput, onDebug)

	return renderResult(command, res, debugNotes)
}

// renderResult converts a process result into tool output the model can
// reason about. Failures come back as data, not as scheduler errors, except
// spawn errors which genuinely describe a broken environment.
func renderResult(command string, res *proc.Result, debugNotes []string) (tools.Output, error) {
	if res.Err != nil {
		return tools.Output{}, fmt.Errorf("failed to run command: %w", res.Err)
	}

	var b strings.Builder
	b.WriteString(res.Output)

	switch {
	case res.Aborted:
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.WriteString("[command cancelled]")
	case res.Signal != nil:
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[command terminated by signal: %s]", *res.Signal)
	case res.ExitCode != nil && *res.ExitCode != 0:
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[exit code %d]", *res.ExitCode)
	}

	for _, note := range debugNotes {
		b.WriteString("\n")
		b.WriteString(note)
	}

	content := b.String()
	if content == "" {
		content = fmt.Sprintf("Command completed with no output: %s", command)
	}
	return tools.Output{Content: content}, nil
}
