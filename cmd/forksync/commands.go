package main

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
)

func (a *app) divergedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diverged",
		Short: "List files that differ between the local and upstream branches",
		Long: `Fetch the upstream remote and write every file tracked on both branches
whose content differs to the diverged file, one path per line. Ignored paths
are left out. The file is removed when nothing has diverged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.run(cmd.Context(), e, forksync.DetectDivergence{})
			if err != nil {
				return err
			}
			renderReport(a.stdout, res)
			return nil
		},
	}
}

func (a *app) pullUpstreamCommand() *cobra.Command {
	var workBranch string

	cmd := &cobra.Command{
		Use:   "pull-upstream",
		Short: "Merge the upstream branch into a new work branch",
		Long: `Fetch the upstream remote, create a work branch from the local branch and
merge the upstream branch into it. Nothing is pushed. When the merge stops on
conflicts the conflicted files are listed and the exit status is 2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			branch := workBranch
			if branch == "" {
				branch = forksync.DefaultWorkBranch(a.now())
			}
			res, err := a.run(cmd.Context(), e, forksync.PullUpstream{WorkBranch: branch})
			if err != nil {
				return err
			}
			renderPull(a.stdout, res, e.cfg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workBranch, "branch", "b", "", "work branch to create (default: sync-upstream-<timestamp>)")
	return cmd
}

func (a *app) pullForkCommand() *cobra.Command {
	var (
		forkName string
		prBranch string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "pull-fork",
		Short: "Push the local branch to a fork on a new PR branch",
		Long: `Create a PR branch from the local branch and push it to one of the forks
listed in the configuration, adding the fork remote when it is missing. The
fork must be named with --fork when more than one is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			fork, err := forksync.SelectFork(e.cfg.Forks, forkName)
			if err != nil {
				return err
			}
			branch := prBranch
			if branch == "" {
				branch = forksync.DefaultPRBranch(a.now())
			}
			res, err := a.run(cmd.Context(), e, forksync.PullFork{Fork: fork, PRBranch: branch, DryRun: dryRun})
			if err != nil {
				return err
			}
			renderPush(a.stdout, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&forkName, "fork", "f", "", "fork to push to (required with several forks)")
	f.StringVarP(&prBranch, "pr-branch", "b", "", "branch to create on the fork (default: pr-branch-<timestamp>)")
	f.BoolVarP(&dryRun, "dry-run", "n", false, "check the fork and show what would be pushed")
	return cmd
}
