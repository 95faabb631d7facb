//go:build !windows

package proc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"drover/internal/logging"

	"github.com/google/uuid"
)

const shellName = "bash"

// buildShellCommand wraps the validated command so that, after it finishes,
// the shell records its final working directory to a private temp file. The
// wrapper preserves the command's own exit status.
func buildShellCommand(command, workingDir string) (*exec.Cmd, string) {
	pwdFile := filepath.Join(os.TempDir(), "drover-pwd-"+uuid.NewString())
	wrapped := fmt.Sprintf("{ %s\n}; __drover_rc=$?; pwd > %q; exit $__drover_rc", command, pwdFile)

	cmd := exec.Command("bash", "-c", wrapped)
	cmd.Dir = workingDir
	return cmd, pwdFile
}

// setupProcessGroup detaches the child into its own process group so the
// whole subtree can be signaled together.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminate sends SIGTERM to the process group, waits out the grace period,
// and escalates to SIGKILL if the process has not exited. If group signaling
// fails it falls back to killing only the direct child.
func terminate(cmd *exec.Cmd, grace time.Duration, exited <-chan struct{}) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	pgid, err := syscall.Getpgid(pid)
	if err != nil || pgid <= 0 {
		logging.ProcWarn("no process group for pid %d, killing child directly: %v", pid, err)
		_ = cmd.Process.Kill()
		return
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		logging.ProcWarn("SIGTERM to group %d failed, killing child directly: %v", pgid, err)
		_ = cmd.Process.Kill()
		return
	}

	select {
	case <-exited:
		return
	case <-time.After(grace):
	}

	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
		logging.ProcWarn("SIGKILL to group %d failed, killing child directly: %v", pgid, err)
		_ = cmd.Process.Kill()
	}
}

// classifyExit maps a Wait error to an exit code or terminating signal name.
func classifyExit(err error) (*int, *string) {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return nil, nil
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		code := exitErr.ExitCode()
		return &code, nil
	}
	if ws.Signaled() {
		name := ws.Signal().String()
		return nil, &name
	}
	code := ws.ExitStatus()
	return &code, nil
}
