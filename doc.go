// Package forksync keeps a downstream repository (a fork) aligned with the
// upstream template it was created from.
//
// Three workflows are supported, each selected by a Workflow value:
//
//   - DetectDivergence lists files tracked on both the local and the upstream
//     branch whose content differs, filtered by ignore rules, and writes them
//     to a report file. An empty report removes the file.
//   - PullUpstream fetches upstream and merges it into a fresh integration
//     branch cut from the local branch. Merge conflicts are reported, never
//     resolved.
//   - PullFork pushes the local branch to a configured fork on a new PR
//     branch, refusing to repoint remotes or overwrite branches.
//
// All repository access goes through a gitcmd.Gateway, so the engine can be
// driven by the git executable or by a scripted fake in tests.
//
// # Basic Usage
//
//	engine := forksync.New(forksync.WithLogger(logger))
//
//	cfg.ApplyDefaults()
//	cfg.LocalBranch, err = engine.CurrentBranch(ctx, dir)
//
//	session, err := forksync.NewSession(dir, cfg, forksync.DetectDivergence{})
//	if err != nil {
//	    return err
//	}
//
//	res, err := engine.Run(ctx, session)
//	if err != nil {
//	    return err
//	}
//	for _, path := range res.Report {
//	    fmt.Println(path)
//	}
//
// # Errors
//
// Failures are typed and can be matched with errors.As or, through their
// sentinels, with errors.Is:
//
//   - *GitCommandError for any failing git command
//   - *ConfigurationError (ErrConfiguration) for missing or invalid input
//   - *RemoteConflictError (ErrRemoteConflict) when a remote points elsewhere
//   - *BranchExistsError (ErrBranchExists) when a branch to create exists
//
// CodeOf maps any error to a stable ErrorCode for logs and tooling.
//
// Merge conflicts are not an error: Pull returns ConflictsPresent and
// Result.Conflicted reports true.
package forksync
