package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/config"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd"
)

// globalFlags are shared by every subcommand and override configuration.
type globalFlags struct {
	configPath     string
	dir            string
	verbose        bool
	quiet          bool
	divergedFile   string
	ignoreFile     string
	ignore         []string
	upstreamRemote string
	upstreamBranch string
	upstreamURL    string
	localBranch    string
}

type app struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer

	// gateway replaces the git executable when set.
	gateway gitcmd.Gateway
	now     func() time.Time

	exitCode int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, now: time.Now}
}

// execute runs the command line and returns the process exit status.
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(a.stderr, renderError(err))
		if a.exitCode == forksync.ExitOK {
			a.exitCode = forksync.ExitFailure
		}
	}
	return a.exitCode
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "forksync",
		Short: "Keep a project in sync with its upstream template",
		Long: `Keep a project repository in sync with the template it was generated from.

Configuration is read from forksync.yaml (or .yml, .json, .toml) in the
repository, falling back to $XDG_CONFIG_HOME/forksync/config.yaml. Any key can
be overridden with a FORKSYNC_ environment variable or the flags below.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.flags.configPath, "config", "c", "", "configuration file (default: discovered)")
	f.StringVarP(&a.flags.dir, "dir", "C", "", "repository directory (default: current directory)")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log every git command")
	f.BoolVarP(&a.flags.quiet, "quiet", "q", false, "do not print progress")
	f.StringVar(&a.flags.divergedFile, "diverged-file", "", "report file for diverged paths")
	f.StringVar(&a.flags.ignoreFile, "ignore-file", "", "file with ignore patterns")
	f.StringArrayVar(&a.flags.ignore, "ignore", nil, "ignore pattern, repeatable; added before configured patterns")
	f.StringVar(&a.flags.upstreamRemote, "upstream-remote", "", "name of the upstream remote")
	f.StringVar(&a.flags.upstreamBranch, "upstream-branch", "", "upstream branch to sync with")
	f.StringVar(&a.flags.upstreamURL, "upstream-url", "", "URL the upstream remote must point at")
	f.StringVar(&a.flags.localBranch, "local-branch", "", "local branch (default: current branch)")

	root.AddCommand(a.divergedCommand(), a.pullUpstreamCommand(), a.pullForkCommand())
	return root
}

// env holds what every subcommand needs once flags are parsed.
type env struct {
	dir    string
	cfg    forksync.Config
	engine *forksync.Engine
	logger *zap.Logger
}

func (a *app) setup(ctx context.Context) (*env, error) {
	logger, err := a.newLogger()
	if err != nil {
		return nil, err
	}

	dir := a.flags.dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", a.flags.dir, err)
	}

	cfg, err := a.loadConfig(dir, logger)
	if err != nil {
		return nil, err
	}

	gateway := a.gateway
	if gateway == nil {
		gateway = gitcmd.New(gitcmd.WithLogger(logger))
	}
	version, err := gitcmd.CheckVersion(ctx, gateway)
	if err != nil {
		return nil, err
	}
	logger.Debug("git found", zap.Stringer("version", version))

	opts := []forksync.Option{
		forksync.WithLogger(logger),
		forksync.WithGateway(gateway),
		forksync.WithFilesystem(osfs.New(dir)),
		forksync.WithClock(a.now),
	}
	if !a.flags.quiet {
		opts = append(opts, forksync.WithObserver(newProgress(a.stderr)))
	}
	engine := forksync.New(opts...)

	if cfg.LocalBranch == "" {
		branch, err := engine.CurrentBranch(ctx, dir)
		if err != nil {
			return nil, err
		}
		cfg.LocalBranch = branch
	}

	return &env{dir: dir, cfg: cfg, engine: engine, logger: logger}, nil
}

func (a *app) loadConfig(dir string, logger *zap.Logger) (forksync.Config, error) {
	path := a.flags.configPath
	if path == "" {
		found, err := config.Discover(dir)
		switch {
		case err == nil:
			path = found
		case errors.Is(err, config.ErrNotFound):
			logger.Debug("no configuration file found, using defaults")
		default:
			return forksync.Config{}, err
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return forksync.Config{}, err
	}
	cfg := *loaded
	logger.Debug("configuration loaded", zap.String("path", path))

	if a.flags.divergedFile != "" {
		cfg.DivergedFile = a.flags.divergedFile
	}
	if a.flags.ignoreFile != "" {
		cfg.IgnoreFile = a.flags.ignoreFile
	}
	if len(a.flags.ignore) > 0 {
		cfg.IgnoreList = append(append([]string(nil), a.flags.ignore...), cfg.IgnoreList...)
	}
	if a.flags.upstreamRemote != "" {
		cfg.UpstreamRemote = a.flags.upstreamRemote
	}
	if a.flags.upstreamBranch != "" {
		cfg.UpstreamBranch = a.flags.upstreamBranch
	}
	if a.flags.upstreamURL != "" {
		cfg.UpstreamURL = a.flags.upstreamURL
	}
	if a.flags.localBranch != "" {
		cfg.LocalBranch = a.flags.localBranch
	}

	if cfg.DivergedFile, err = relativeTo(dir, cfg.DivergedFile); err != nil {
		return forksync.Config{}, err
	}
	if cfg.IgnoreFile, err = relativeTo(dir, cfg.IgnoreFile); err != nil {
		return forksync.Config{}, err
	}
	return cfg, nil
}

func (a *app) newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if a.flags.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// run executes a session and records the exit status.
func (a *app) run(ctx context.Context, e *env, wf forksync.Workflow) (*forksync.Result, error) {
	defer e.logger.Sync() //nolint:errcheck

	session, err := forksync.NewSession(e.dir, e.cfg, wf)
	if err != nil {
		return nil, err
	}

	res, err := e.engine.Run(ctx, session)
	a.exitCode = forksync.ExitCode(res, err)
	if err != nil {
		e.logger.Debug("run failed", zap.String("code", string(forksync.CodeOf(err))), zap.Error(err))
	}
	return res, err
}

// relativeTo makes an absolute path relative to the repository root, where
// the engine's filesystem is rooted.
func relativeTo(dir, path string) (string, error) {
	if path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path), nil
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", &forksync.ConfigurationError{Field: "path", Reason: path + " is not inside " + dir, Err: err}
	}
	return filepath.ToSlash(rel), nil
}
