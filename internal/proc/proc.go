// Package proc spawns, supervises, and tears down a single shell subprocess.
// Commands are expected to have passed through internal/shell validation
// before reaching this package; nothing here re-validates.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"drover/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one subprocess run. Exactly one of ExitCode,
// Signal, or Err describes why the process ended; Aborted may co-occur with
// a signal when termination was forced.
type Result struct {
	// RawOutput holds both streams concatenated in arrival order,
	// untouched (ANSI sequences and binary content included).
	RawOutput []byte

	// Output is the decoded, ANSI-stripped text view of RawOutput.
	Output string

	ExitCode *int
	Signal   *string
	Err      error
	Aborted  bool
}

// Options configures one Execute call. Zero values fall back to package
// defaults.
type Options struct {
	WorkingDir string

	// Extra environment entries appended to the inherited environment.
	Env []string

	// Bytes inspected at the head of combined output for binary detection.
	SniffBytes int

	// Minimum interval between live output callbacks.
	ThrottleInterval time.Duration

	// Grace period between graceful and forced termination.
	KillGrace time.Duration
}

const (
	defaultSniffBytes = 4096
	defaultThrottle   = time.Second
	defaultKillGrace  = 200 * time.Millisecond
)

// OutputFunc receives the cumulative displayable output (or, once binary
// content is detected, periodic progress messages).
type OutputFunc func(text string)

func (o *Options) fill() {
	if o.SniffBytes <= 0 {
		o.SniffBytes = defaultSniffBytes
	}
	if o.ThrottleInterval <= 0 {
		o.ThrottleInterval = defaultThrottle
	}
	if o.KillGrace <= 0 {
		o.KillGrace = defaultKillGrace
	}
	if o.WorkingDir == "" {
		o.WorkingDir = "."
	}
}

// Execute runs command through the platform shell, streaming output to
// onOutput and diagnostics to onDebug, and blocks until the process exits
// or ctx is cancelled. It always returns a Result, never panics the turn.
func Execute(ctx context.Context, command string, opts Options, onOutput, onDebug OutputFunc) *Result {
	opts.fill()
	if onOutput == nil {
		onOutput = func(string) {}
	}
	if onDebug == nil {
		onDebug = func(string) {}
	}

	res := &Result{}

	cmd, pwdFile := buildShellCommand(command, opts.WorkingDir)
	cmd.Env = append(os.Environ(), opts.Env...)
	setupProcessGroup(cmd)
	if pwdFile != "" {
		defer os.Remove(pwdFile)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		res.Err = fmt.Errorf("failed to open stdout pipe: %w", err)
		return res
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		res.Err = fmt.Errorf("failed to open stderr pipe: %w", err)
		return res
	}

	enc := detectEncoding()
	logging.ProcDebug("executing via %s (dir=%s, encoding=%s)", shellName, opts.WorkingDir, enc)

	if err := cmd.Start(); err != nil {
		res.Err = fmt.Errorf("failed to start command: %w", err)
		return res
	}

	col := &collector{
		opts:     opts,
		enc:      enc,
		onOutput: onOutput,
		throttle: newThrottle(opts.ThrottleInterval),
	}

	// Escalating termination on cancel. exited is closed after Wait returns
	// so the watcher never outlives the call.
	exited := make(chan struct{})
	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		select {
		case <-ctx.Done():
			logging.ProcWarn("cancel requested, terminating process group (pid=%d)", cmd.Process.Pid)
			terminate(cmd, opts.KillGrace, exited)
		case <-exited:
		}
	}()

	// Drain both pipes independently; bytes interleave into one record by
	// arrival time.
	var drain errgroup.Group
	drain.Go(func() error { return col.drain(stdout) })
	drain.Go(func() error { return col.drain(stderr) })
	drainErr := drain.Wait()

	waitErr := cmd.Wait()
	close(exited)
	watch.Wait()

	if drainErr != nil {
		logging.ProcDebug("output drain ended: %v", drainErr)
	}

	res.Aborted = ctx.Err() != nil
	res.RawOutput = col.rawBytes()
	res.Output = stripANSI(decode(res.RawOutput, enc))

	if waitErr != nil {
		code, sig := classifyExit(waitErr)
		switch {
		case sig != nil:
			res.Signal = sig
		case code != nil:
			res.ExitCode = code
		case !res.Aborted:
			res.Err = waitErr
		}
	} else {
		zero := 0
		res.ExitCode = &zero
	}

	col.finalFlush(res)

	if pwdFile != "" {
		reportDirectoryDrift(pwdFile, opts.WorkingDir, onDebug)
	}

	return res
}

// collector accumulates interleaved subprocess output and drives the live
// display callback, flipping to progress messages when the stream turns out
// to be binary.
type collector struct {
	opts     Options
	enc      string
	onOutput OutputFunc
	throttle *throttle

	mu         sync.Mutex
	raw        bytes.Buffer
	sniffed    bool
	streamToUi bool
}

func (c *collector) drain(r io.Reader) error {
	buf := make([]byte, 16*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.append(buf[:n])
		}
		if err != nil {
			return nil // EOF and closed-pipe errors both just end the drain
		}
	}
}

func (c *collector) append(chunk []byte) {
	c.mu.Lock()
	c.raw.Write(chunk)

	if !c.sniffed {
		if c.raw.Len() >= c.opts.SniffBytes {
			c.finishSniff()
		} else if looksBinary(c.raw.Bytes()) {
			// Don't wait for the full window if a NUL already showed up.
			c.finishSniff()
		} else {
			c.streamToUi = true
		}
	}

	streaming := c.streamToUi
	var payload string
	if streaming {
		payload = stripANSI(decode(c.raw.Bytes(), c.enc))
	} else {
		payload = fmt.Sprintf("[received %d bytes of binary output]", c.raw.Len())
	}
	emit := c.throttle.Allow()
	c.mu.Unlock()

	if emit {
		c.onOutput(payload)
	}
}

func (c *collector) finishSniff() {
	c.sniffed = true
	window := c.raw.Bytes()
	if len(window) > c.opts.SniffBytes {
		window = window[:c.opts.SniffBytes]
	}
	c.streamToUi = !looksBinary(window)
	if !c.streamToUi {
		logging.Proc("binary output detected, live streaming disabled")
	}
}

// finalFlush guarantees the last callback is never dropped by throttling.
func (c *collector) finalFlush(res *Result) {
	c.mu.Lock()
	streaming := c.streamToUi || c.raw.Len() == 0
	size := c.raw.Len()
	c.mu.Unlock()

	if streaming {
		c.onOutput(res.Output)
	} else {
		c.onOutput(fmt.Sprintf("[received %d bytes of binary output]", size))
	}
}

func (c *collector) rawBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, c.raw.Len())
	copy(out, c.raw.Bytes())
	return out
}

// looksBinary reports whether data appears to be non-text. A NUL byte is the
// strongest tell; failing that, a high share of control bytes.
func looksBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	control := 0
	for _, b := range data {
		if b < 0x08 || (b > 0x0d && b < 0x20) {
			control++
		}
	}
	return control*10 > len(data) // >10% control bytes
}

// reportDirectoryDrift reads the final working directory the wrapped command
// recorded and warns when it differs from where the command started. The
// execution environment is stateless between invocations, so the change will
// not persist.
func reportDirectoryDrift(pwdFile, workingDir string, onDebug OutputFunc) {
	data, err := os.ReadFile(pwdFile)
	if err != nil {
		return // command aborted before the wrapper ran, or never spawned
	}
	finalDir := strings.TrimSpace(string(data))
	if finalDir == "" {
		return
	}

	startDir, err := filepath.Abs(workingDir)
	if err != nil {
		return
	}
	if finalDir != startDir {
		onDebug(fmt.Sprintf("warning: the command changed the working directory to %s; this will not persist across commands", finalDir))
	}
}
