package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// Option configures the built-in executors.
type Option func(*options)

type options struct {
	stdout io.Writer
	stderr io.Writer
	env    []string
}

// WithOutput redirects the child's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

func newOptions(opts []Option) options {
	o := options{stdout: os.Stdout, stderr: os.Stderr}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// ProcessExecutor starts Argv[0] directly, without a shell.
type ProcessExecutor struct {
	opts options
}

func NewProcessExecutor(opts ...Option) *ProcessExecutor {
	return &ProcessExecutor{opts: newOptions(opts)}
}

func (p *ProcessExecutor) Kind() string { return KindExec }

func (p *ProcessExecutor) Validate(spec Spec) error {
	return validateArgv(p.Kind(), spec)
}

func (p *ProcessExecutor) Execute(ctx context.Context, spec Spec) (int, error) {
	if err := p.Validate(spec); err != nil {
		return 0, err
	}
	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	return run(ctx, cmd, spec, p.opts)
}

// run starts cmd and waits for it. Start failures are classified into
// ErrNotFound / ErrNotExecutable; exit statuses are returned as codes.
func run(ctx context.Context, cmd *exec.Cmd, spec Spec, o options) (int, error) {
	cmd.Dir = spec.Dir
	cmd.Stdout = o.stdout
	cmd.Stderr = o.stderr
	if len(o.env) > 0 {
		cmd.Env = append(os.Environ(), o.env...)
	}

	if err := cmd.Start(); err != nil {
		return 0, classifyStartError(spec, err)
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return 0, fmt.Errorf("%s: %w", spec, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("wait %s: %w", spec, err)
}

func classifyStartError(spec Spec, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &StartError{Command: spec.String(), Kind: ErrNotFound, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &StartError{Command: spec.String(), Kind: ErrNotExecutable, Err: err}
	}
	return fmt.Errorf("start %s: %w", spec, err)
}

// StartError reports a command that could not be started.
// Kind is ErrNotFound or ErrNotExecutable.
type StartError struct {
	Command string
	Kind    error
	Err     error
}

func (e *StartError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Command, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Command, e.Kind, strings.TrimSpace(e.Err.Error()))
}

// Is lets errors.Is match both the classification and the cause.
func (e *StartError) Is(target error) bool { return target == e.Kind }

func (e *StartError) Unwrap() error { return e.Err }
