package forksync

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// PushOutcome describes a pull-fork run.
type PushOutcome struct {
	// Remote and RemoteURL identify the fork.
	Remote    string
	RemoteURL string

	// Branch is the PR branch; BaseBranch the fork branch a PR should target.
	Branch     string
	BaseBranch string
	FromBranch string

	RemoteAdded bool
	Pushed      bool
	DryRun      bool

	// Commits carried by the PR branch relative to the fork's base branch,
	// oldest first. Empty when the base branch is unknown locally.
	Commits        []CommitSummary
	SuggestedTitle string
}

// Push creates prBranch from fromBranch and pushes it to the fork. The fork
// remote is added when missing; an existing remote with a different URL fails
// with RemoteConflictError. A prBranch that already exists locally or on the
// fork fails with BranchExistsError. Pushes are never forced.
func (e *Engine) Push(
	ctx context.Context,
	dir, fromBranch string,
	fork ForkTarget,
	prBranch string,
) (*PushOutcome, error) {
	return e.push(ctx, dir, fromBranch, fork, prBranch, false)
}

// PlanPush runs every check Push performs without changing the repository.
func (e *Engine) PlanPush(
	ctx context.Context,
	dir, fromBranch string,
	fork ForkTarget,
	prBranch string,
) (*PushOutcome, error) {
	return e.push(ctx, dir, fromBranch, fork, prBranch, true)
}

func (e *Engine) push(
	ctx context.Context,
	dir, fromBranch string,
	fork ForkTarget,
	prBranch string,
	dryRun bool,
) (*PushOutcome, error) {
	if fork.Name == "" || fork.RemoteURL == "" || fork.Branch == "" {
		return nil, configError("fork", "no fork selected")
	}
	if fromBranch == "" {
		return nil, configError("local_branch", "required")
	}
	if err := validateBranchName(prBranch); err != nil {
		return nil, &ConfigurationError{Field: "pr_branch", Err: err}
	}

	outcome := &PushOutcome{
		Remote:     fork.Name,
		RemoteURL:  fork.RemoteURL,
		Branch:     prBranch,
		BaseBranch: fork.Branch,
		FromBranch: fromBranch,
		DryRun:     dryRun,
	}
	logger := e.logger.With(zap.String("remote", fork.Name), zap.String("branch", prBranch))

	var remoteExists bool
	if err := e.step(ctx, "verify remote "+fork.Name, func() error {
		var err error
		remoteExists, err = e.verifyRemote(ctx, dir, fork.Name, fork.RemoteURL)
		return err
	}); err != nil {
		return nil, err
	}

	if err := e.step(ctx, "check "+prBranch+" is free", func() error {
		return e.checkBranchFree(ctx, dir, fork, prBranch, remoteExists)
	}); err != nil {
		return nil, err
	}

	if dryRun {
		if remoteExists {
			e.summarize(ctx, dir, fork, fromBranch, outcome)
		}
		logger.Info("dry run: pull-fork checks passed")
		return outcome, nil
	}

	if !remoteExists {
		if err := e.step(ctx, "add remote "+fork.Name, func() error {
			return e.addRemote(ctx, dir, fork.Name, fork.RemoteURL)
		}); err != nil {
			return nil, err
		}
		outcome.RemoteAdded = true
	}

	if err := e.step(ctx, "fetch "+fork.Name, func() error {
		_, err := e.run(ctx, dir, "fetch", fork.Name)
		return WrapErrorf(err, "failed to fetch %s", fork.Name)
	}); err != nil {
		return nil, err
	}

	if err := e.step(ctx, "create "+prBranch, func() error {
		_, err := e.run(ctx, dir, "branch", prBranch, fromBranch)
		return WrapErrorf(err, "failed to create %s from %s", prBranch, fromBranch)
	}); err != nil {
		return nil, err
	}

	e.summarize(ctx, dir, fork, prBranch, outcome)

	if err := e.step(ctx, "push "+prBranch, func() error {
		_, err := e.run(ctx, dir, "push", fork.Name, prBranch)
		return WrapErrorf(err, "failed to push %s to %s", prBranch, fork.Name)
	}); err != nil {
		return nil, err
	}
	outcome.Pushed = true

	logger.Info("pushed PR branch", zap.Int("commits", len(outcome.Commits)))
	return outcome, nil
}

func (e *Engine) checkBranchFree(ctx context.Context, dir string, fork ForkTarget, prBranch string, remoteExists bool) error {
	local := RepositoryRef{BranchName: prBranch}.TrackingRef()
	exists, err := e.refExists(ctx, dir, local)
	if err != nil {
		return err
	}
	if exists {
		return &BranchExistsError{Branch: prBranch}
	}

	// Before the remote is added, ask the fork by URL.
	target := fork.RemoteURL
	if remoteExists {
		target = fork.Name
	}
	out, err := e.run(ctx, dir, "ls-remote", "--heads", target, local)
	if err != nil {
		return WrapErrorf(err, "failed to query %s for %s", fork.Name, prBranch)
	}
	if strings.TrimSpace(out) != "" {
		return &BranchExistsError{Branch: prBranch, Remote: fork.Name}
	}
	return nil
}

// summarize fills the commit summary from the fork's base branch when it is
// known locally. Failures only cost the summary.
func (e *Engine) summarize(ctx context.Context, dir string, fork ForkTarget, head string, outcome *PushOutcome) {
	base := fork.Ref()
	ok, err := e.refExists(ctx, dir, base.TrackingRef())
	if err != nil || !ok {
		e.logger.Debug("fork base branch unknown, skipping summary", zap.String("base", base.Rev()))
		return
	}

	out, err := e.run(ctx, dir, "log", "--reverse", "--format=%s", base.Rev()+".."+head)
	if err != nil {
		e.logger.Warn("failed to list PR commits", zap.Error(err))
		return
	}

	var headers []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			headers = append(headers, line)
		}
	}
	outcome.Commits = SummarizeCommits(headers)
	outcome.SuggestedTitle = SuggestTitle(outcome.Commits, head)
}
