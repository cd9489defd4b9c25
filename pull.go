package forksync

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd"
)

// PullOutcome is the result of Pull. It is one of UpToDate, FastForwarded,
// Merged or ConflictsPresent.
type PullOutcome interface {
	fmt.Stringer
	isPullOutcome()
}

// UpToDate means upstream had no commits missing from the local branch. No
// branch was created.
type UpToDate struct{}

// FastForwarded means the integration branch was fast-forwarded to upstream.
type FastForwarded struct {
	Branch  string
	Commits int
}

// Merged means upstream was merged into the integration branch with a merge
// commit.
type Merged struct {
	Branch  string
	Commits int
}

// ConflictsPresent means the merge stopped on conflicts. The repository is
// left mid-merge on Branch for the operator to resolve and commit.
type ConflictsPresent struct {
	Branch string
	Files  []string
}

func (UpToDate) String() string { return "up to date" }

func (o FastForwarded) String() string {
	return fmt.Sprintf("fast-forwarded %s by %d commit(s)", o.Branch, o.Commits)
}

func (o Merged) String() string {
	return fmt.Sprintf("merged %d upstream commit(s) into %s", o.Commits, o.Branch)
}

func (o ConflictsPresent) String() string {
	return fmt.Sprintf("conflicts in %d file(s) on %s", len(o.Files), o.Branch)
}

func (UpToDate) isPullOutcome()         {}
func (FastForwarded) isPullOutcome()    {}
func (Merged) isPullOutcome()           {}
func (ConflictsPresent) isPullOutcome() {}

// Pull brings upstream history into a new integration branch workBranch cut
// from local. Merge semantics are used so local commits keep their identity.
// Conflicts are reported as ConflictsPresent and never resolved.
func (e *Engine) Pull(
	ctx context.Context,
	dir string,
	local, upstream RepositoryRef,
	workBranch string,
) (PullOutcome, error) {
	if workBranch == "" {
		return nil, configError("work_branch", "required")
	}

	// Every check runs before the first mutation.
	addUpstream := false
	if upstream.RemoteURL != "" {
		if err := e.step(ctx, "verify remote "+upstream.RemoteName, func() error {
			exists, err := e.verifyRemote(ctx, dir, upstream.RemoteName, upstream.RemoteURL)
			addUpstream = !exists
			return err
		}); err != nil {
			return nil, err
		}
	}

	if err := e.step(ctx, "check "+workBranch, func() error {
		exists, err := e.refExists(ctx, dir, RepositoryRef{BranchName: workBranch}.TrackingRef())
		if err != nil {
			return err
		}
		if exists {
			return &BranchExistsError{Branch: workBranch}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if addUpstream {
		if err := e.step(ctx, "add remote "+upstream.RemoteName, func() error {
			return e.addRemote(ctx, dir, upstream.RemoteName, upstream.RemoteURL)
		}); err != nil {
			return nil, err
		}
	}

	if err := e.step(ctx, "fetch "+upstream.RemoteName, func() error {
		if _, err := e.run(ctx, dir, "fetch", upstream.RemoteName); err != nil {
			return WrapErrorf(err, "failed to fetch %s", upstream.RemoteName)
		}
		ok, err := e.refExists(ctx, dir, upstream.TrackingRef())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("upstream branch %s not found after fetch", upstream.Rev())
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := e.step(ctx, "checkout "+local.BranchName, func() error {
		_, err := e.run(ctx, dir, "checkout", local.BranchName)
		return WrapErrorf(err, "failed to check out %s", local.BranchName)
	}); err != nil {
		return nil, err
	}

	var ahead int
	if err := e.step(ctx, "count upstream commits", func() error {
		var err error
		ahead, err = e.countCommits(ctx, dir, local.Rev(), upstream.Rev())
		return err
	}); err != nil {
		return nil, err
	}
	if ahead == 0 {
		e.logger.Info("local branch already contains upstream", zap.String("branch", local.BranchName))
		return UpToDate{}, nil
	}

	if err := e.step(ctx, "create "+workBranch, func() error {
		_, err := e.run(ctx, dir, "checkout", "-b", workBranch, local.BranchName)
		return WrapErrorf(err, "failed to create %s", workBranch)
	}); err != nil {
		return nil, err
	}

	var outcome PullOutcome
	err := e.step(ctx, "merge "+upstream.Rev(), func() error {
		var err error
		outcome, err = e.merge(ctx, dir, local, upstream, workBranch, ahead)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("pulled upstream",
		zap.String("branch", workBranch),
		zap.Stringer("outcome", outcome),
	)
	return outcome, nil
}

func (e *Engine) merge(
	ctx context.Context,
	dir string,
	local, upstream RepositoryRef,
	workBranch string,
	ahead int,
) (PullOutcome, error) {
	_, err := e.run(ctx, dir, "merge-base", "--is-ancestor", local.Rev(), upstream.Rev())
	switch code, isCmdErr := gitcmd.ExitStatus(err); {
	case err == nil:
		if _, err := e.run(ctx, dir, "merge", "--ff-only", upstream.Rev()); err != nil {
			return nil, WrapErrorf(err, "failed to fast-forward %s", workBranch)
		}
		return FastForwarded{Branch: workBranch, Commits: ahead}, nil
	case isCmdErr && code == 1:
		// Histories diverged; a merge commit is needed.
	default:
		return nil, WrapError(err, "failed to compare histories")
	}

	_, mergeErr := e.run(ctx, dir, "merge", "--no-ff", "--no-edit", upstream.Rev())
	if mergeErr == nil {
		return Merged{Branch: workBranch, Commits: ahead}, nil
	}

	files, err := e.conflictedFiles(ctx, dir)
	if err != nil {
		return nil, WrapError(mergeErr, "merge failed and conflicts could not be listed")
	}
	if len(files) == 0 {
		return nil, WrapErrorf(mergeErr, "failed to merge %s", upstream.Rev())
	}

	e.logger.Warn("merge stopped on conflicts",
		zap.String("branch", workBranch),
		zap.Strings("files", files),
	)
	return ConflictsPresent{Branch: workBranch, Files: files}, nil
}

func (e *Engine) conflictedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := e.run(ctx, dir, "diff", "--name-only", "-z", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

func (e *Engine) countCommits(ctx context.Context, dir, from, to string) (int, error) {
	out, err := e.run(ctx, dir, "rev-list", "--count", from+".."+to)
	if err != nil {
		return 0, WrapErrorf(err, "failed to count commits in %s..%s", from, to)
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return n, nil
}

// refExists reports whether ref resolves. Exit status 1 from rev-parse
// --verify --quiet means the ref is absent; anything else is a failure.
func (e *Engine) refExists(ctx context.Context, dir, ref string) (bool, error) {
	_, err := e.run(ctx, dir, "rev-parse", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}
	if code, ok := gitcmd.ExitStatus(err); ok && code == 1 {
		return false, nil
	}
	return false, WrapErrorf(err, "failed to resolve %s", ref)
}
