// Package ignore resolves the ordered rule set used to keep paths out of sync
// operations and filters path lists against it.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/gobwas/glob"
)

// CommentPrefix starts a comment line in an ignore file.
const CommentPrefix = "#"

// Rule is a single compiled ignore pattern.
type Rule struct {
	pattern string
	base    string
	glob    glob.Glob
	rootTo  glob.Glob
}

// Pattern returns the pattern as written.
func (r Rule) Pattern() string {
	return r.pattern
}

// Match reports whether path is covered by the rule. A plain pattern matches
// a path equal to it or any path below it. A glob must match the whole path.
func (r Rule) Match(path string) bool {
	path = strings.TrimPrefix(path, "./")
	if r.base != "" && (path == r.base || strings.HasPrefix(path, r.base+"/")) {
		return true
	}
	if r.glob == nil {
		return false
	}
	return r.glob.Match(path) || (r.rootTo != nil && r.rootTo.Match(path))
}

// RuleSet is an ordered, read-only sequence of rules.
type RuleSet struct {
	rules []Rule
}

// New compiles patterns into a RuleSet, preserving order. Blank patterns are
// skipped.
func New(patterns ...string) (RuleSet, error) {
	rs := RuleSet{rules: make([]Rule, 0, len(patterns))}
	for _, p := range patterns {
		rule, ok, err := compile(p)
		if err != nil {
			return RuleSet{}, err
		}
		if ok {
			rs.rules = append(rs.rules, rule)
		}
	}
	return rs, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(patterns ...string) RuleSet {
	rs, err := New(patterns...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Resolve merges explicit patterns with those read from ignoreFile. Explicit
// patterns come first. An empty ignoreFile or a file that does not exist
// contributes nothing.
func Resolve(fsys billy.Filesystem, explicit []string, ignoreFile string) (RuleSet, error) {
	patterns := append([]string(nil), explicit...)

	if ignoreFile != "" {
		filePatterns, err := readFile(fsys, ignoreFile)
		if err != nil {
			return RuleSet{}, err
		}
		patterns = append(patterns, filePatterns...)
	}

	return New(patterns...)
}

// Len returns the number of rules.
func (rs RuleSet) Len() int {
	return len(rs.rules)
}

// Patterns returns the patterns in merge order.
func (rs RuleSet) Patterns() []string {
	out := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.pattern
	}
	return out
}

// Match returns the first rule, in merge order, matching path.
func (rs RuleSet) Match(path string) (string, bool) {
	for _, r := range rs.rules {
		if r.Match(path) {
			return r.pattern, true
		}
	}
	return "", false
}

// Exclude returns paths not matched by any rule, in input order.
func Exclude(paths []string, rules RuleSet) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := rules.Match(p); !ok {
			out = append(out, p)
		}
	}
	return out
}

func compile(raw string) (Rule, bool, error) {
	pattern := strings.TrimSpace(raw)
	if pattern == "" {
		return Rule{}, false, nil
	}

	base := strings.TrimPrefix(pattern, "./")
	base = strings.TrimPrefix(base, "/")
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return Rule{}, false, nil
	}

	rule := Rule{pattern: pattern}
	if !hasMeta(base) {
		rule.base = base
		return rule, true, nil
	}

	g, err := glob.Compile(base, '/')
	if err != nil {
		return Rule{}, false, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
	}
	rule.glob = g

	// "**/x" also matches "x" at the repository root.
	if rest, ok := strings.CutPrefix(base, "**/"); ok && rest != "" {
		rootTo, err := glob.Compile(rest, '/')
		if err != nil {
			return Rule{}, false, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		rule.rootTo = rootTo
	}

	return rule, true, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{\`)
}

func readFile(fsys billy.Filesystem, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ignore file %s: %w", name, err)
	}
	defer f.Close() //nolint:errcheck

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file %s: %w", name, err)
	}
	return patterns, nil
}
