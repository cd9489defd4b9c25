package gitcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MinimumVersion is the oldest git release whose porcelain output the engine
// understands. `git remote get-url` first shipped in 2.7.
const MinimumVersion = "2.7.0"

// Version asks g for the git version. Vendor suffixes such as
// "2.39.3 (Apple Git-146)" or "2.45.1.windows.1" are dropped.
func Version(ctx context.Context, g Gateway) (*semver.Version, error) {
	out, err := g.Run(ctx, "", "version")
	if err != nil {
		return nil, fmt.Errorf("failed to query git version: %w", err)
	}
	return ParseVersion(out)
}

// ParseVersion parses the output of `git version`.
func ParseVersion(out string) (*semver.Version, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(out), "git version"))
	if len(fields) == 0 {
		return nil, fmt.Errorf("unexpected git version output %q", out)
	}

	parts := strings.Split(fields[0], ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, fmt.Errorf("invalid git version %q: %w", fields[0], err)
	}
	return v, nil
}

// CheckVersion fails when the git behind g is older than MinimumVersion.
func CheckVersion(ctx context.Context, g Gateway) (*semver.Version, error) {
	v, err := Version(ctx, g)
	if err != nil {
		return nil, err
	}

	constraint, err := semver.NewConstraint(">= " + MinimumVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum version: %w", err)
	}
	if !constraint.Check(v) {
		return v, fmt.Errorf("git %s is too old, %s or newer is required", v, MinimumVersion)
	}
	return v, nil
}
