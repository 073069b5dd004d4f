package command

import (
	"context"
	"os/exec"
)

// Exit statuses POSIX shells use when the command word cannot be run.
const (
	shellExitNotExecutable = 126
	shellExitNotFound      = 127
)

// ShellExecutor runs the joined Argv through "sh -c" so routines can use
// pipes, redirections and variable expansion. Exit statuses 127 and 126 are
// start failures; see KindShell.
type ShellExecutor struct {
	opts  options
	shell string
}

func NewShellExecutor(opts ...Option) *ShellExecutor {
	return &ShellExecutor{opts: newOptions(opts), shell: "sh"}
}

func (s *ShellExecutor) Kind() string { return KindShell }

func (s *ShellExecutor) Validate(spec Spec) error {
	return validateArgv(s.Kind(), spec)
}

func (s *ShellExecutor) Execute(ctx context.Context, spec Spec) (int, error) {
	if err := s.Validate(spec); err != nil {
		return 0, err
	}
	cmd := exec.CommandContext(ctx, s.shell, "-c", spec.String())
	code, err := run(ctx, cmd, spec, s.opts)
	if err != nil {
		return code, err
	}
	switch code {
	case shellExitNotFound:
		return code, &StartError{Command: spec.String(), Kind: ErrNotFound}
	case shellExitNotExecutable:
		return code, &StartError{Command: spec.String(), Kind: ErrNotExecutable}
	}
	return code, nil
}
