//go:build !windows

package shell

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drover/internal/config"
	shellval "drover/internal/shell"
	"drover/internal/tools"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Execution.WorkingDirectory = t.TempDir()
	cfg.Execution.OutputThrottle = "10ms"
	return cfg
}

func TestRunCommand_Success(t *testing.T) {
	runner := NewRunner(testConfig(t), nil)
	tool := runner.RunCommandTool()

	out, err := tool.Execute(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "hi")
}

func TestRunCommand_NonZeroExitReportedAsData(t *testing.T) {
	runner := NewRunner(testConfig(t), nil)
	tool := runner.RunCommandTool()

	out, err := tool.Execute(context.Background(), map[string]any{"command": "false"})
	require.NoError(t, err, "non-zero exit is a result, not a tool error")
	assert.Contains(t, out.Content, "exit code 1")
}

func TestRunCommand_RejectsUnsafeCommand(t *testing.T) {
	runner := NewRunner(testConfig(t), nil)
	tool := runner.RunCommandTool()

	_, err := tool.Execute(context.Background(), map[string]any{"command": "echo hi; rm -rf /"})
	require.Error(t, err)

	var rej *shellval.Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, shellval.RejectChaining, rej.Category)
}

func TestRunCommand_ValidateArgsMirrorsValidator(t *testing.T) {
	runner := NewRunner(testConfig(t), nil)
	tool := runner.RunCommandTool()

	assert.Error(t, tool.ValidateArgs(map[string]any{"command": "echo `whoami`"}))
	assert.NoError(t, tool.ValidateArgs(map[string]any{"command": "echo ok"}))
}

func TestRunCommand_AllowlistMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Execution.AllowedBinaries = []string{"echo"}
	runner := NewRunner(cfg, nil)
	tool := runner.RunCommandTool()

	out, err := tool.Execute(context.Background(), map[string]any{"command": "echo allowed"})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "allowed")

	_, err = tool.Execute(context.Background(), map[string]any{"command": "ls"})
	var rej *shellval.Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, shellval.RejectNotAllowlisted, rej.Category)
}

func TestRunCommand_AlwaysConfirms(t *testing.T) {
	runner := NewRunner(testConfig(t), nil)
	tool := runner.RunCommandTool()

	details := tool.ShouldConfirmExecute(map[string]any{"command": "git status"})
	require.NotNil(t, details)
	assert.Equal(t, "git status", details.Command)
	assert.Contains(t, details.Description, "git status")
}

func TestRunCommand_SinkReceivesOutput(t *testing.T) {
	var mu sync.Mutex
	var got []string
	sink := func(callID, text string) {
		mu.Lock()
		got = append(got, text)
		mu.Unlock()
	}

	runner := NewRunner(testConfig(t), sink)
	tool := runner.RunCommandTool()

	_, err := tool.Execute(context.Background(), map[string]any{"command": "echo streamed"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Contains(t, got[len(got)-1], "streamed")
}

func TestRegisterAll(t *testing.T) {
	reg := tools.NewRegistry()
	runner, err := RegisterAll(reg, testConfig(t), nil)
	require.NoError(t, err)
	require.NotNil(t, runner)
	assert.True(t, reg.Has("run_command"))
}

func TestReplaceConfigSwapsAllowlist(t *testing.T) {
	cfg := testConfig(t)
	runner := NewRunner(cfg, nil)

	require.Nil(t, runner.validateCommand("ls -la"))

	restricted := testConfig(t)
	restricted.Execution.AllowedBinaries = []string{"git"}
	runner.ReplaceConfig(restricted)

	require.NotNil(t, runner.validateCommand("ls -la"))
	require.Nil(t, runner.validateCommand("git status"))
}
