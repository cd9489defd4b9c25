package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	dimStyle  = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// progress prints one line per engine step to w.
type progress struct {
	w io.Writer
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w}
}

func (p *progress) StepStarted(step string) {
	fmt.Fprintln(p.w, dimStyle.Render("→ "+step))
}

func (p *progress) StepFinished(step string, err error) {
	if err != nil {
		fmt.Fprintln(p.w, errStyle.Render("✗ "+step))
	}
}

func renderReport(w io.Writer, res *forksync.Result) {
	if len(res.Report) == 0 {
		fmt.Fprintln(w, okStyle.Render("No diverged files."))
		if res.ReportFile != "" {
			fmt.Fprintln(w, dimStyle.Render("Removed "+res.ReportFile+" if present."))
		}
		return
	}

	fmt.Fprintln(w, titleStyle.Render("Diverged files"))
	for _, p := range res.Report {
		fmt.Fprintln(w, "  ./"+p)
	}
	fmt.Fprintf(w, "\n%s written to %s\n", plural(len(res.Report), "file"), boldStyle.Render(res.ReportFile))
}

func renderPull(w io.Writer, res *forksync.Result, cfg forksync.Config) {
	upstream := cfg.UpstreamRemote + "/" + cfg.UpstreamBranch

	switch o := res.Pull.(type) {
	case forksync.UpToDate:
		fmt.Fprintln(w, okStyle.Render(cfg.LocalBranch+" is up to date with "+upstream+"."))
	case forksync.FastForwarded:
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("Fast-forwarded %s by %s from %s.", o.Branch, plural(o.Commits, "commit"), upstream)))
		fmt.Fprintln(w, dimStyle.Render("Review the branch, then push it and open a pull request."))
	case forksync.Merged:
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("Merged %s from %s into %s.", plural(o.Commits, "commit"), upstream, o.Branch)))
		fmt.Fprintln(w, dimStyle.Render("Review the branch, then push it and open a pull request."))
	case forksync.ConflictsPresent:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Merging %s into %s stopped on conflicts:", upstream, o.Branch)))
		for _, f := range o.Files {
			fmt.Fprintln(w, "  ./"+f)
		}
		fmt.Fprintln(w, dimStyle.Render("\nResolve the conflicts, commit, then push the branch."))
	}
}

func renderPush(w io.Writer, res *forksync.Result) {
	o := res.Push
	if o == nil {
		return
	}

	target := o.Remote + "/" + o.Branch
	switch {
	case o.DryRun:
		fmt.Fprintln(w, titleStyle.Render("Dry run: nothing was changed"))
		fmt.Fprintf(w, "Would push %s to %s (%s).\n", o.FromBranch, target, o.RemoteURL)
	case o.Pushed:
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("Pushed %s to %s.", o.FromBranch, target)))
		if o.RemoteAdded {
			fmt.Fprintln(w, dimStyle.Render("Added remote "+o.Remote+" → "+o.RemoteURL))
		}
	}

	if len(o.Commits) > 0 {
		fmt.Fprintf(w, "\n%s ahead of %s/%s:\n", plural(len(o.Commits), "commit"), o.Remote, o.BaseBranch)
		for _, c := range o.Commits {
			fmt.Fprintln(w, "  "+c.Header)
		}
	}
	fmt.Fprintf(w, "\nOpen a pull request from %s into %s\n", boldStyle.Render(o.Branch), boldStyle.Render(o.BaseBranch))
	if o.SuggestedTitle != "" {
		fmt.Fprintln(w, dimStyle.Render("Suggested title: ")+o.SuggestedTitle)
	}
}

func renderError(err error) string {
	var b strings.Builder
	b.WriteString(errStyle.Render("Error: " + err.Error()))

	var exists *forksync.BranchExistsError
	var conflict *forksync.RemoteConflictError
	switch {
	case errors.As(err, &exists):
		b.WriteString("\n" + dimStyle.Render("Choose another name with --pr-branch or --branch."))
	case errors.As(err, &conflict):
		b.WriteString("\n" + dimStyle.Render("Fix the remote with 'git remote set-url' or update the configuration."))
	case errors.Is(err, forksync.ErrConfiguration):
		b.WriteString("\n" + dimStyle.Render("Check forksync.yaml and the command flags."))
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
