package forksync

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/ignore"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/internal/report"
)

// Observer receives step notifications so a presentation layer can show
// progress. Implementations must not block.
type Observer interface {
	StepStarted(step string)
	StepFinished(step string, err error)
}

type nopObserver struct{}

func (nopObserver) StepStarted(string)         {}
func (nopObserver) StepFinished(string, error) {}

// Engine runs sync workflows against a repository. An Engine holds no
// per-run state and may be reused.
type Engine struct {
	git      gitcmd.Gateway
	fs       billy.Filesystem
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithGateway sets the git gateway. Defaults to gitcmd.New().
func WithGateway(g gitcmd.Gateway) Option {
	return func(e *Engine) {
		e.git = g
	}
}

// WithFilesystem sets the filesystem used for the ignore and report files,
// rooted at the repository. Defaults to the OS filesystem at Session.Dir.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(e *Engine) {
		e.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver sets the step observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   zap.NewNop(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.git == nil {
		e.git = gitcmd.New(gitcmd.WithLogger(e.logger))
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Report is the ordered list of diverged paths.
type Report []string

// FileSet is a membership-only set of repository-relative paths.
type FileSet map[string]struct{}

// NewFileSet builds a FileSet from paths.
func NewFileSet(paths ...string) FileSet {
	s := make(FileSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether path is in the set.
func (s FileSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Intersect returns the paths present in both sets.
func (s FileSet) Intersect(other FileSet) FileSet {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	out := make(FileSet)
	for p := range small {
		if large.Has(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Result is the structured outcome of a run.
type Result struct {
	Workflow Workflow

	// Report and ReportFile are set by DetectDivergence. ReportWritten is
	// false when the report was empty and the file was removed.
	Report        Report
	ReportFile    string
	ReportWritten bool

	// Pull is set by PullUpstream.
	Pull PullOutcome

	// Push is set by PullFork.
	Push *PushOutcome
}

// Conflicted reports whether the run halted on merge conflicts.
func (r *Result) Conflicted() bool {
	_, ok := r.Pull.(ConflictsPresent)
	return ok
}

// Run executes the session's workflow.
func (e *Engine) Run(ctx context.Context, s Session) (*Result, error) {
	run := *e
	run.logger = e.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("workflow", workflowName(s.Workflow)),
		zap.String("dir", s.Dir),
	)
	if run.fs == nil {
		run.fs = osfs.New(s.Dir)
	}

	run.logger.Info("starting sync run",
		zap.Stringer("local", s.Local),
		zap.Stringer("upstream", s.Upstream),
	)

	start := run.now()
	res, err := run.dispatch(ctx, s)
	elapsed := run.now().Sub(start)
	if err != nil {
		run.logger.Debug("sync run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	run.logger.Info("sync run finished", zap.Duration("elapsed", elapsed))
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, s Session) (*Result, error) {
	switch w := s.Workflow.(type) {
	case DetectDivergence:
		return e.runDetect(ctx, s, w)
	case PullUpstream:
		return e.runPullUpstream(ctx, s, w)
	case PullFork:
		return e.runPullFork(ctx, s, w)
	default:
		return nil, configError("workflow", fmt.Sprintf("unknown workflow %T", s.Workflow))
	}
}

func (e *Engine) runDetect(ctx context.Context, s Session, w DetectDivergence) (*Result, error) {
	var rules ignore.RuleSet
	err := e.step(ctx, "resolve ignore rules", func() error {
		var err error
		rules, err = ignore.Resolve(e.fs, s.IgnoreList, s.IgnoreFile)
		if err != nil {
			return &ConfigurationError{Field: "ignore", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	found, err := e.Detect(ctx, s.Dir, s.Local, s.Upstream, rules)
	if err != nil {
		return nil, err
	}

	var written bool
	err = e.step(ctx, "write report", func() error {
		var err error
		written, err = report.Write(e.fs, s.DivergedFile, found)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("divergence detected",
		zap.Int("files", len(found)),
		zap.String("report", s.DivergedFile),
		zap.Bool("written", written),
	)

	return &Result{
		Workflow:      w,
		Report:        found,
		ReportFile:    s.DivergedFile,
		ReportWritten: written,
	}, nil
}

func (e *Engine) runPullUpstream(ctx context.Context, s Session, w PullUpstream) (*Result, error) {
	outcome, err := e.Pull(ctx, s.Dir, s.Local, s.Upstream, w.WorkBranch)
	if err != nil {
		return nil, err
	}
	return &Result{Workflow: w, Pull: outcome}, nil
}

func (e *Engine) runPullFork(ctx context.Context, s Session, w PullFork) (*Result, error) {
	outcome, err := e.push(ctx, s.Dir, s.Local.BranchName, w.Fork, w.PRBranch, w.DryRun)
	if err != nil {
		return nil, err
	}
	return &Result{Workflow: w, Push: outcome}, nil
}

// CurrentBranch returns the branch checked out in dir. A detached HEAD is a
// configuration error since there is no local branch to sync.
func (e *Engine) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := e.git.Run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", WrapError(err, "failed to resolve current branch")
	}
	if out == "HEAD" || out == "" {
		return "", configError("local_branch", "HEAD is detached; check out a branch or set local_branch")
	}
	return out, nil
}

// step runs fn as a named step. The context is checked first so that a
// cancelled run stops between steps.
func (e *Engine) step(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return WrapErrorf(err, "%s", name)
	}

	e.observer.StepStarted(name)
	e.logger.Debug("step started", zap.String("step", name))

	err := fn()

	e.observer.StepFinished(name, err)
	if err != nil {
		e.logger.Debug("step failed", zap.String("step", name), zap.Error(err))
	} else {
		e.logger.Debug("step finished", zap.String("step", name))
	}
	return err
}

func (e *Engine) run(ctx context.Context, dir string, args ...string) (string, error) {
	return e.git.Run(ctx, dir, args...)
}

func workflowName(w Workflow) string {
	if w == nil {
		return "none"
	}
	return w.String()
}
