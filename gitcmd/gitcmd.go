// Package gitcmd runs git subcommands against a working directory and returns
// their captured standard output. A non-zero exit or a launch failure is
// reported as a *CommandError carrying the exit code and stderr.
//
// Commands are never retried. A command that has started always runs to
// completion; the context is only consulted before launch, so callers can
// cancel between steps but never in the middle of a fetch, merge or push.
package gitcmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
	"go.uber.org/zap"
)

// DefaultProgram is the executable used when no other program is configured.
const DefaultProgram = "git"

// Gateway executes git subcommands in a working directory.
type Gateway interface {
	// Run executes git with args in dir and returns stdout with trailing
	// newlines removed.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// Options configures an Executor.
type Options struct {
	// Program is the git executable. Defaults to DefaultProgram.
	Program string

	// Env holds extra environment variables appended to the process
	// environment. They override the defaults below.
	Env map[string]string

	// StderrWriter, when set, receives a copy of every command's stderr.
	StderrWriter io.Writer

	// Logger receives one debug entry per command.
	Logger *zap.Logger
}

// Option is a function that modifies Options.
type Option func(*Options)

// defaultEnv disables credential prompts and pins the locale of stderr.
var defaultEnv = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"LC_ALL":              "C",
}

// DefaultOptions returns default execution options.
func DefaultOptions() *Options {
	return &Options{
		Program: DefaultProgram,
		Env:     make(map[string]string),
		Logger:  zap.NewNop(),
	}
}

// Executor is the Gateway backed by the git executable.
type Executor struct {
	options *Options
	env     map[string]string
	git     *executor.WrappedExecutor
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Program == "" {
		options.Program = DefaultProgram
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return &Executor{
		options: options,
		env:     mergeEnv(mergeEnv(nil, defaultEnv), options.Env),
		git:     executor.NewWrappedExecutor(options.Program),
	}
}

// Run implements Gateway.
func (e *Executor) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s not started: %w", commandLine(e.options.Program, args), err)
	}

	execOpts := []executor.Option{
		executor.WithWorkingDir(dir),
		e.withEnv,
	}
	if e.options.StderrWriter != nil {
		execOpts = append(execOpts, executor.WithStderrWriter(e.options.StderrWriter))
	}

	// Detached from cancellation: a started command is never killed.
	res, err := e.git.Command(args...).Execute(context.WithoutCancel(ctx), execOpts...)

	code := -1
	var stdout, stderr string
	if res != nil {
		code, stdout, stderr = res.ExitCode, res.Stdout, res.Stderr
		if res.Err != nil {
			err = res.Err
		}
	}

	e.options.Logger.Debug("git command finished",
		zap.String("dir", dir),
		zap.Strings("args", args),
		zap.Int("exit_code", code),
	)

	if err != nil {
		return "", newCommandError(e.options.Program, args, code, stdout, stderr, err)
	}
	return strings.TrimRight(stdout, "\n"), nil
}

// withEnv hands the command its own environment map. executor.WithEnv would
// write into the map shared by every command of the wrapped executor.
func (e *Executor) withEnv(o *executor.Options) {
	o.Env = e.env
}

// WithProgram sets the executable to run instead of git.
func WithProgram(program string) Option {
	return func(o *Options) {
		o.Program = program
	}
}

// WithEnv sets extra environment variables for every git command. Later
// calls override earlier keys.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = mergeEnv(o.Env, env)
	}
}

// WithEnvVar sets one extra environment variable.
func WithEnvVar(key, value string) Option {
	return WithEnv(map[string]string{key: value})
}

func mergeEnv(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WithStderrWriter copies the stderr of every command to w, for example to
// surface fetch and push progress.
func WithStderrWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StderrWriter = w
	}
}

// WithLogger sets the logger used for per-command debug entries.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
