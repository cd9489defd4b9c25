package forksync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/internal/remoteurl"
)

// lookupRemote returns the URL of the named remote and whether it exists.
func (e *Engine) lookupRemote(ctx context.Context, dir, name string) (string, bool, error) {
	out, err := e.run(ctx, dir, "remote")
	if err != nil {
		return "", false, WrapError(err, "failed to list remotes")
	}

	found := false
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			found = true
			break
		}
	}
	if !found {
		return "", false, nil
	}

	url, err := e.run(ctx, dir, "remote", "get-url", name)
	if err != nil {
		return "", false, WrapErrorf(err, "failed to read URL of remote %s", name)
	}
	return strings.TrimSpace(url), true, nil
}

// verifyRemote checks that an existing remote named name addresses url. It
// reports whether the remote exists. A remote pointing elsewhere is never
// repointed.
func (e *Engine) verifyRemote(ctx context.Context, dir, name, url string) (bool, error) {
	existing, ok, err := e.lookupRemote(ctx, dir, name)
	if err != nil || !ok {
		return false, err
	}
	if !remoteurl.Equal(existing, url) {
		return true, &RemoteConflictError{Remote: name, ExistingURL: existing, RequestedURL: url}
	}
	return true, nil
}

func (e *Engine) addRemote(ctx context.Context, dir, name, url string) error {
	if _, err := e.run(ctx, dir, "remote", "add", name, url); err != nil {
		return WrapErrorf(err, "failed to add remote %s", name)
	}
	e.logger.Info("added remote", zap.String("remote", name), zap.String("url", url))
	return nil
}
