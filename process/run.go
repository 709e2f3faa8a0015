package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const defaultGracePeriod = 5 * time.Second

// Run executes a subprocess and waits for it to complete.
// If the context is canceled, SIGTERM is sent first, then SIGKILL after GracePeriod.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	c, err := build(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = teeStderr(&stderr, cmd.Stderr)
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	start := time.Now()
	err = c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode(c),
		Duration: time.Since(start),
	}
	return result, waitError(ctx, result, err)
}

// Handle is a running subprocess whose standard streams are pipes.
type Handle struct {
	cmd    *exec.Cmd
	ctx    context.Context
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr bytes.Buffer
	start  time.Time
}

// Start launches a subprocess with piped stdin and stdout. The caller must
// read Stdout to EOF and close Stdin before calling Wait.
func Start(ctx context.Context, cmd Command) (*Handle, error) {
	c, err := build(ctx, cmd)
	if err != nil {
		return nil, err
	}

	h := &Handle{cmd: c, ctx: ctx}
	c.Stderr = teeStderr(&h.stderr, cmd.Stderr)

	if h.stdin, err = c.StdinPipe(); err != nil {
		return nil, fmt.Errorf("process: stdin pipe: %w", err)
	}
	if h.stdout, err = c.StdoutPipe(); err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}

	h.start = time.Now()
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	return h, nil
}

// Stdin returns the write end of the process's standard input.
func (h *Handle) Stdin() io.WriteCloser { return h.stdin }

// Stdout returns the read end of the process's standard output.
func (h *Handle) Stdout() io.Reader { return h.stdout }

// Wait waits for the process to exit. A non-zero exit is reported both in
// the result and as an error.
func (h *Handle) Wait() (*Result, error) {
	err := h.cmd.Wait()
	result := &Result{
		Stderr:   h.stderr.Bytes(),
		ExitCode: exitCode(h.cmd),
		Duration: time.Since(h.start),
	}
	return result, waitError(h.ctx, result, err)
}

func build(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = defaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	// Use process group so we can kill the entire tree
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Don't let exec.CommandContext kill with SIGKILL immediately
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod
	return c, nil
}

func waitError(ctx context.Context, result *Result, err error) error {
	if err == nil {
		return nil
	}
	// Context cancellation is the expected way to kill a process
	if ctx.Err() != nil {
		return fmt.Errorf("process: killed by context: %w", ctx.Err())
	}
	return fmt.Errorf("process: exit code %d: %w", result.ExitCode, err)
}

func exitCode(c *exec.Cmd) int {
	if c.ProcessState == nil {
		return -1
	}
	return c.ProcessState.ExitCode()
}

func teeStderr(buf *bytes.Buffer, live io.Writer) io.Writer {
	if live == nil {
		return buf
	}
	return io.MultiWriter(buf, live)
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
