package internal

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// ProcessHandle is a running worker process as the supervisor sees it: its
// stdio streams, a way to wait for exit, and a way to kill it.
type ProcessHandle interface {
	Stdin() io.Writer
	Stdout() io.Reader
	Wait() error
	Kill() error
}

// Launcher spawns worker processes. Abstracting the single Spawn operation
// keeps platform executable-path handling out of the supervisor and lets
// tests substitute a scripted process.
type Launcher interface {
	Spawn(ctx context.Context, path string, args ...string) (ProcessHandle, error)
}

// ExecLauncher launches real processes with os/exec.
type ExecLauncher struct{}

// Spawn starts path with args and wires up its stdio pipes.
func (ExecLauncher) Spawn(ctx context.Context, path string, args ...string) (ProcessHandle, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", path, err)
	}

	return &execHandle{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
}

func (h *execHandle) Stdin() io.Writer  { return h.stdin }
func (h *execHandle) Stdout() io.Reader { return h.stdout }

func (h *execHandle) Wait() error {
	return h.cmd.Wait()
}

func (h *execHandle) Kill() error {
	_ = h.stdin.Close()
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}
