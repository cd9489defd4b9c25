package forksync_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"go.uber.org/zap/zaptest"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd/gitcmdtest"
)

const testDir = "/repo"

var (
	testLocal    = forksync.RepositoryRef{BranchName: "main"}
	testUpstream = forksync.RepositoryRef{RemoteName: "upstream", BranchName: "development"}
	testFork     = forksync.ForkTarget{Name: "fork", RemoteURL: "https://new", Branch: "main"}
	testNow      = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
)

// recorder is an Observer collecting step events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) StepStarted(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "start "+step)
}

func (r *recorder) StepFinished(step string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.events = append(r.events, "fail "+step)
		return
	}
	r.events = append(r.events, "done "+step)
}

func newTestEngine(t *testing.T, fake *gitcmdtest.Fake, opts ...forksync.Option) (*forksync.Engine, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	base := []forksync.Option{
		forksync.WithGateway(fake),
		forksync.WithFilesystem(fs),
		forksync.WithLogger(zaptest.NewLogger(t)),
		forksync.WithClock(func() time.Time { return testNow }),
	}
	return forksync.New(append(base, opts...)...), fs
}

func nul(paths ...string) string {
	out := ""
	for _, p := range paths {
		out += p + "\x00"
	}
	return out
}

// scriptDetect scripts the git traffic of a divergence run.
func scriptDetect(fake *gitcmdtest.Fake, upstreamFiles, localFiles, diff []string) {
	fake.On("", "fetch", "upstream").
		On(nul(upstreamFiles...), "ls-tree", "-r", "-z", "--name-only", "upstream/development").
		On(nul(localFiles...), "ls-tree", "-r", "-z", "--name-only", "main").
		On(nul(diff...), "diff", "--name-only", "-z", "--no-renames", "main", "upstream/development", "--")
}
