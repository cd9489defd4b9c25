package gitcmd

import (
	"errors"
	"fmt"
	"strings"
)

// CommandError is returned when a git subcommand exits non-zero or cannot be
// launched at all. ExitCode is -1 in the latter case.
type CommandError struct {
	// Command is the full command line, e.g. "git fetch upstream".
	Command string

	// Args are the arguments passed to git.
	Args []string

	// ExitCode is the process exit status.
	ExitCode int

	// Stdout and Stderr hold the captured output, trimmed.
	Stdout string
	Stderr string

	// Err is the underlying exec error.
	Err error
}

func newCommandError(program string, args []string, exitCode int, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command:  commandLine(program, args),
		Args:     append([]string(nil), args...),
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(stdout),
		Stderr:   strings.TrimSpace(stderr),
		Err:      err,
	}
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed (exit %d): %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitStatus returns the exit code carried by err if it is (or wraps) a
// CommandError.
func ExitStatus(err error) (int, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode, true
	}
	return 0, false
}

func commandLine(program string, args []string) string {
	if len(args) == 0 {
		return program
	}
	return program + " " + strings.Join(args, " ")
}
