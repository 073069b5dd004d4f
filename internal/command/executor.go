package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// KindExec is the default kind: Argv[0] is started directly with Argv[1:].
const KindExec = "exec"

// KindShell runs the joined Argv through "sh -c".
//
// The shell reports a missing command as exit status 127 and an
// unexecutable one as 126, so a shell routine that itself exits 127 or 126
// is treated as ErrNotFound or ErrNotExecutable and aborts the whole run
// rather than being recorded as a failure. Use KindExec for scripts that
// may legitimately return those codes.
const KindShell = "shell"

var (
	// ErrNotFound means the command could not be located.
	ErrNotFound = errors.New("command not found")
	// ErrNotExecutable means the command exists but may not be executed.
	ErrNotExecutable = errors.New("command not executable")
)

// Spec is the executable payload attached to a routine.
type Spec struct {
	Kind string   `json:"kind,omitempty"`
	Argv []string `json:"argv"`
	Dir  string   `json:"dir,omitempty"`
}

// String renders the command line for diagnostics.
func (s Spec) String() string {
	return strings.Join(s.Argv, " ")
}

// kind returns the effective kind, defaulting to KindExec.
func (s Spec) kind() string {
	if s.Kind == "" {
		return KindExec
	}
	return s.Kind
}

// Runner executes a command spec and reports its exit code.
//
// A non-zero exit code is not an error. Errors are reserved for commands
// that could not be started; ErrNotFound and ErrNotExecutable identify the
// two cases the engine treats as fatal.
type Runner interface {
	Execute(ctx context.Context, spec Spec) (int, error)
}

// Executor is the interface all command kinds must satisfy.
type Executor interface {
	// Kind returns the string key this executor is registered under.
	Kind() string
	// Execute runs the command and returns its exit code.
	Execute(ctx context.Context, spec Spec) (int, error)
	// Validate checks the spec at build time (called by dag.Build).
	Validate(spec Spec) error
}

func validateArgv(kind string, spec Spec) error {
	if len(spec.Argv) == 0 || strings.TrimSpace(spec.Argv[0]) == "" {
		return fmt.Errorf("%s: command is empty", kind)
	}
	return nil
}
