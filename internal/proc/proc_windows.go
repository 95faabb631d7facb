//go:build windows

package proc

import (
	"fmt"
	"os/exec"
	"time"

	"drover/internal/logging"
)

const shellName = "cmd.exe"

// buildShellCommand runs the validated command through cmd.exe. Windows has
// no pwd-drift wrapper; `cd` inside cmd.exe /c never outlives the process.
func buildShellCommand(command, workingDir string) (*exec.Cmd, string) {
	cmd := exec.Command("cmd.exe", "/c", command)
	cmd.Dir = workingDir
	return cmd, ""
}

func setupProcessGroup(cmd *exec.Cmd) {
	// Process trees are torn down with taskkill instead of group signals.
}

// terminate kills the process tree via taskkill; if that fails, falls back
// to killing the direct child.
func terminate(cmd *exec.Cmd, grace time.Duration, exited <-chan struct{}) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	kill := exec.Command("taskkill", "/T", "/PID", fmt.Sprintf("%d", pid))
	if err := kill.Run(); err != nil {
		logging.ProcWarn("taskkill of pid %d failed: %v", pid, err)
	}

	select {
	case <-exited:
		return
	case <-time.After(grace):
	}

	force := exec.Command("taskkill", "/T", "/F", "/PID", fmt.Sprintf("%d", pid))
	if err := force.Run(); err != nil {
		logging.ProcWarn("forced taskkill of pid %d failed, killing child directly: %v", pid, err)
		_ = cmd.Process.Kill()
	}
}

// classifyExit maps a Wait error to an exit code; Windows has no terminating
// signals.
func classifyExit(err error) (*int, *string) {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return nil, nil
	}
	code := exitErr.ExitCode()
	return &code, nil
}
