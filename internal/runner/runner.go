// Package runner executes project shell commands (test suites, linters,
// doc builds) with captured output so targets can archive it as reports.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Result captures one command invocation.
type Result struct {
	Command  string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Succeeded reports whether the command exited zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// CombinedOutput returns stdout followed by stderr.
func (r Result) CombinedOutput() []byte {
	out := make([]byte, 0, len(r.Stdout)+len(r.Stderr))
	out = append(out, r.Stdout...)
	out = append(out, r.Stderr...)
	return out
}

// Runner executes shell commands in the project directory. Commands inherit
// the host environment plus any extra variables the target supplies, since
// project tooling (virtualenvs, PATH entries) lives in the user's shell.
type Runner struct {
	dir string
	env map[string]string
}

// New creates a runner rooted at the given directory.
func New(dir string) *Runner {
	return &Runner{dir: dir}
}

// WithEnv returns a runner that adds the given variables to every command.
func (r *Runner) WithEnv(env map[string]string) *Runner {
	clone := &Runner{dir: r.dir, env: map[string]string{}}
	for key, value := range r.env {
		clone.env[key] = value
	}
	for key, value := range env {
		clone.env[key] = value
	}
	return clone
}

// Dir returns the working directory commands run in.
func (r *Runner) Dir() string {
	return r.dir
}

// Run executes a shell command line and captures its output. A non-zero exit
// is not an error; callers inspect Result.ExitCode. Errors are reserved for
// failures to launch the command or context cancellation.
func (r *Runner) Run(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, fmt.Errorf("runner: command is empty")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.dir
	cmd.Env = r.environ()
	// Own process group so cancellation kills the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("runner: start %q: %w", command, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return Result{}, fmt.Errorf("runner: %q cancelled: %w", command, ctx.Err())
	case waitErr = <-done:
	}

	result := Result{
		Command: command,
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
	}
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return Result{}, fmt.Errorf("runner: run %q: %w", command, waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// RunAll executes commands in order and stops at the first non-zero exit.
// The returned slice holds every result produced, including the failing one.
func (r *Runner) RunAll(ctx context.Context, commands []string) ([]Result, error) {
	results := make([]Result, 0, len(commands))
	for _, command := range commands {
		result, err := r.Run(ctx, command)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if !result.Succeeded() {
			break
		}
	}
	return results, nil
}

func (r *Runner) environ() []string {
	env := os.Environ()
	for key, value := range r.env {
		env = append(env, key+"="+value)
	}
	return env
}
