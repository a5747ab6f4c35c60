package docker

import (
	"bytes"
	"context"
	"os/exec"
)

const (
	// Maximum combined output captured per command to prevent memory
	// exhaustion on very chatty containers (4MB).
	maxOutputSize = 4 * 1024 * 1024
)

// CommandRunner executes an external command and returns its combined
// stdout+stderr, its exit code, and any invocation error. Non-zero exit is
// not an invocation error: callers get the partial output either way.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (output string, exitCode int, err error)
}

// execRunner implements CommandRunner using os/exec.
type execRunner struct{}

// NewCommandRunner returns the default os/exec-backed runner.
func NewCommandRunner() CommandRunner {
	return &execRunner{}
}

// Run executes the command, interleaving stdout and stderr into one capped
// buffer the way a terminal would.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var buf limitedBuffer
	buf.limit = maxOutputSize
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()
	output := buf.String()

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			// Command ran and exited non-zero; partial output is still usable.
			return output, exitErr.ExitCode(), nil
		}
		return output, -1, runErr
	}
	return output, 0, nil
}

// limitedBuffer discards writes past its limit so a runaway log stream
// cannot grow the buffer unbounded.
type limitedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 && b.Len() >= b.limit {
		return len(p), nil
	}
	remaining := b.limit - b.Len()
	if b.limit > 0 && remaining < len(p) {
		_, err := b.Buffer.Write(p[:remaining])
		return len(p), err
	}
	return b.Buffer.Write(p)
}
