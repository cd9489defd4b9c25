package forksync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/ignore"
)

// Detect returns the files tracked on both local and upstream whose content
// differs between the two, minus those matched by rules. Paths keep the order
// git reports them in.
//
// Only committed trees are compared; the working tree is never consulted.
// The upstream remote is fetched first and a failed fetch aborts detection.
func (e *Engine) Detect(
	ctx context.Context,
	dir string,
	local, upstream RepositoryRef,
	rules ignore.RuleSet,
) (Report, error) {
	if err := e.step(ctx, "fetch "+upstream.RemoteName, func() error {
		_, err := e.run(ctx, dir, "fetch", upstream.RemoteName)
		return WrapErrorf(err, "failed to fetch %s", upstream.RemoteName)
	}); err != nil {
		return nil, err
	}

	var upstreamFiles, localFiles FileSet
	if err := e.step(ctx, "list tracked files", func() error {
		var err error
		if upstreamFiles, err = e.trackedFiles(ctx, dir, upstream.Rev()); err != nil {
			return err
		}
		localFiles, err = e.trackedFiles(ctx, dir, local.Rev())
		return err
	}); err != nil {
		return nil, err
	}

	common := upstreamFiles.Intersect(localFiles)
	e.logger.Debug("tracked files listed",
		zap.Int("upstream", len(upstreamFiles)),
		zap.Int("local", len(localFiles)),
		zap.Int("common", len(common)),
	)

	var changed []string
	if err := e.step(ctx, "diff branches", func() error {
		var err error
		changed, err = e.changedFiles(ctx, dir, local.Rev(), upstream.Rev())
		return err
	}); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(changed))
	diverged := make([]string, 0, len(changed))
	for _, p := range changed {
		if _, dup := seen[p]; dup || !common.Has(p) {
			continue
		}
		seen[p] = struct{}{}
		diverged = append(diverged, p)
	}

	kept := ignore.Exclude(diverged, rules)
	if dropped := len(diverged) - len(kept); dropped > 0 {
		e.logger.Debug("ignored diverged files", zap.Int("count", dropped))
	}
	return Report(kept), nil
}

func (e *Engine) trackedFiles(ctx context.Context, dir, rev string) (FileSet, error) {
	out, err := e.run(ctx, dir, "ls-tree", "-r", "-z", "--name-only", rev)
	if err != nil {
		return nil, WrapErrorf(err, "failed to list files of %s", rev)
	}
	return NewFileSet(splitNUL(out)...), nil
}

func (e *Engine) changedFiles(ctx context.Context, dir, from, to string) ([]string, error) {
	out, err := e.run(ctx, dir, "diff", "--name-only", "-z", "--no-renames", from, to, "--")
	if err != nil {
		return nil, WrapErrorf(err, "failed to diff %s and %s", from, to)
	}
	return splitNUL(out), nil
}

// splitNUL splits -z output. Paths are taken verbatim, without the quoting
// git applies to unusual names in newline-separated output.
func splitNUL(out string) []string {
	out = strings.TrimRight(out, "\x00\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\x00")
}
