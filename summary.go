package forksync

import (
	"fmt"
	"sort"
	"strings"

	cc "github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
)

// CommitSummary is the parsed header of a commit carried by a PR branch.
type CommitSummary struct {
	Header string
	// Type, Scope and Breaking are only set for conventional commits.
	Type         string
	Scope        string
	Breaking     bool
	Conventional bool
}

// SummarizeCommits parses commit headers as conventional commits. Headers
// that do not follow the convention are kept with Conventional unset.
func SummarizeCommits(headers []string) []CommitSummary {
	if len(headers) == 0 {
		return nil
	}

	machine := parser.NewMachine(cc.WithTypes(cc.TypesConventional))
	out := make([]CommitSummary, 0, len(headers))
	for _, h := range headers {
		summary := CommitSummary{Header: h}

		msg, err := machine.Parse([]byte(h))
		if commit, ok := msg.(*cc.ConventionalCommit); err == nil && ok && commit != nil && commit.Type != "" {
			summary.Conventional = true
			summary.Type = commit.Type
			if commit.Scope != nil {
				summary.Scope = *commit.Scope
			}
			summary.Breaking = commit.IsBreakingChange()
		}
		out = append(out, summary)
	}
	return out
}

// SuggestTitle proposes a pull request title. A single commit lends its
// header; several commits are counted by type, e.g. "sync: 2 feat, 1 fix".
func SuggestTitle(commits []CommitSummary, branch string) string {
	switch len(commits) {
	case 0:
		return "Sync " + branch
	case 1:
		return commits[0].Header
	}

	counts := make(map[string]int)
	breaking := false
	for _, c := range commits {
		typ := c.Type
		if !c.Conventional {
			typ = "other"
		}
		counts[typ]++
		breaking = breaking || c.Breaking
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})

	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%d %s", counts[t], t)
	}

	title := "sync: " + strings.Join(parts, ", ")
	if breaking {
		title += " (breaking)"
	}
	return title
}
