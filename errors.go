package forksync

import (
	"context"
	"errors"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd"
)

// Common sentinel errors that can be checked with errors.Is().

// ErrConfiguration is returned when a required input is missing or invalid.
// It is always raised before any git state is mutated.
var ErrConfiguration = errors.New("invalid configuration")

// ErrRemoteConflict is returned when a remote of the requested name already
// exists and points at a different repository.
var ErrRemoteConflict = errors.New("fork remote URL mismatch")

// ErrBranchExists is returned when a branch the engine must create already
// exists locally or on the target remote.
var ErrBranchExists = errors.New("branch already exists")

// ErrInvalidRef is returned when a branch name is malformed according to
// git's reference naming rules.
var ErrInvalidRef = errors.New("invalid reference")

// GitCommandError is returned when a git subcommand exits non-zero or cannot
// be launched.
type GitCommandError = gitcmd.CommandError

// ConfigurationError reports a missing or invalid input.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid configuration"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// RemoteConflictError reports an existing remote whose URL differs from the
// requested one. The remote is never repointed.
type RemoteConflictError struct {
	Remote       string
	ExistingURL  string
	RequestedURL string
}

func (e *RemoteConflictError) Error() string {
	return fmt.Sprintf("fork remote URL mismatch: remote %q points at %s, not %s",
		e.Remote, e.ExistingURL, e.RequestedURL)
}

func (e *RemoteConflictError) Is(target error) bool {
	return target == ErrRemoteConflict
}

// BranchExistsError reports a branch that already exists. Remote is empty
// when the branch exists locally.
type BranchExistsError struct {
	Branch string
	Remote string
}

func (e *BranchExistsError) Error() string {
	if e.Remote == "" {
		return fmt.Sprintf("branch %q already exists", e.Branch)
	}
	return fmt.Sprintf("branch %q already exists on remote %q", e.Branch, e.Remote)
}

func (e *BranchExistsError) Is(target error) bool {
	return target == ErrBranchExists
}

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// ErrorCode classifies a failed run. Codes are strings for debuggability and
// stable log output.
type ErrorCode string

const (
	// CodeInvalidConfig indicates missing or invalid input.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeConflict indicates a remote already points at another repository.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeAlreadyExists indicates a branch that must be created already exists.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeExecutionFailed indicates a git command failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeCanceled indicates the run was cancelled between steps.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf returns the ErrorCode for err, or the empty code for nil.
func CodeOf(err error) ErrorCode {
	var cmdErr *GitCommandError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrInvalidRef):
		return CodeInvalidConfig
	case errors.Is(err, ErrRemoteConflict):
		return CodeConflict
	case errors.Is(err, ErrBranchExists):
		return CodeAlreadyExists
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.As(err, &cmdErr):
		return CodeExecutionFailed
	default:
		return CodeUnknown
	}
}

// Exit codes returned by ExitCode.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConflicts = 2
)

// ExitCode maps the result of a run to a process exit status.
func ExitCode(res *Result, err error) int {
	switch {
	case err != nil:
		return ExitFailure
	case res != nil && res.Conflicted():
		return ExitConflicts
	default:
		return ExitOK
	}
}
