// Package fixture builds on-disk git repositories for integration tests.
// Repositories are created with go-git so tests need the git executable only
// for the code under test.
package fixture

import (
	"os/exec"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// Identity is the author used for fixture commits and, through Env, for
// commits created by git itself.
var Identity = object.Signature{
	Name:  "Fixture",
	Email: "fixture@example.com",
	When:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
}

// Env returns environment variables that give git a fixed identity and keep
// user configuration out of the tests.
func Env() map[string]string {
	return map[string]string{
		"GIT_AUTHOR_NAME":     Identity.Name,
		"GIT_AUTHOR_EMAIL":    Identity.Email,
		"GIT_COMMITTER_NAME":  Identity.Name,
		"GIT_COMMITTER_EMAIL": Identity.Email,
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_CONFIG_GLOBAL":   "/dev/null",
	}
}

// RequireGit skips t when the git executable is not available.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git not available: %v", err)
	}
}

// Repo is a git repository in a temporary directory.
type Repo struct {
	Dir  string
	Repo *git.Repository
	t    testing.TB
}

// Init creates an empty repository whose HEAD points at branch.
func Init(t testing.TB, branch string) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	require.NoError(t, err, "failed to initialize fixture repository")

	return &Repo{Dir: dir, Repo: repo, t: t}
}

// InitBare creates an empty bare repository.
func InitBare(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, true)
	require.NoError(t, err, "failed to initialize bare fixture repository")

	return &Repo{Dir: dir, Repo: repo, t: t}
}

// Clone clones r into a new directory. The origin remote is named remote and
// branch is checked out.
func (r *Repo) Clone(remote, branch string) *Repo {
	r.t.Helper()

	dir := r.t.TempDir()
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:           r.Dir,
		RemoteName:    remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  false,
	})
	require.NoError(r.t, err, "failed to clone fixture repository")

	return &Repo{Dir: dir, Repo: repo, t: r.t}
}

// CloneBare clones r into a new bare repository.
func (r *Repo) CloneBare() *Repo {
	r.t.Helper()

	dir := r.t.TempDir()
	repo, err := git.PlainClone(dir, true, &git.CloneOptions{URL: r.Dir})
	require.NoError(r.t, err, "failed to clone bare fixture repository")

	return &Repo{Dir: dir, Repo: repo, t: r.t}
}

// Commit writes files into the worktree, removes deletions, stages the result
// and commits.
func (r *Repo) Commit(msg string, files map[string]string, deletions ...string) plumbing.Hash {
	r.t.Helper()

	wt := r.worktree()
	for _, name := range sortedKeys(files) {
		if dir := path.Dir(name); dir != "." {
			require.NoError(r.t, wt.Filesystem.MkdirAll(dir, 0o755))
		}
		require.NoError(r.t, util.WriteFile(wt.Filesystem, name, []byte(files[name]), 0o644),
			"failed to write %s", name)
		_, err := wt.Add(name)
		require.NoError(r.t, err, "failed to stage %s", name)
	}
	for _, name := range deletions {
		_, err := wt.Remove(name)
		require.NoError(r.t, err, "failed to remove %s", name)
	}

	sig := Identity
	hash, err := wt.Commit(msg, &git.CommitOptions{Author: &sig, Committer: &sig, AllowEmptyCommits: true})
	require.NoError(r.t, err, "failed to commit %q", msg)
	return hash
}

// WriteUntracked writes a file without staging it.
func (r *Repo) WriteUntracked(name, content string) {
	r.t.Helper()
	require.NoError(r.t, util.WriteFile(r.worktree().Filesystem, name, []byte(content), 0o644))
}

// Checkout switches to branch, creating it from HEAD when create is set.
func (r *Repo) Checkout(branch string, create bool) {
	r.t.Helper()

	err := r.worktree().Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	require.NoError(r.t, err, "failed to check out %s", branch)
}

// AddRemote registers a remote.
func (r *Repo) AddRemote(name, url string) {
	r.t.Helper()

	_, err := r.Repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	require.NoError(r.t, err, "failed to add remote %s", name)
}

// RemoteURL returns the first URL of the named remote.
func (r *Repo) RemoteURL(name string) string {
	r.t.Helper()

	remote, err := r.Repo.Remote(name)
	require.NoError(r.t, err, "remote %s should exist", name)
	return remote.Config().URLs[0]
}

// HasBranch reports whether the local branch exists.
func (r *Repo) HasBranch(name string) bool {
	r.t.Helper()

	_, err := r.Repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// BranchHash returns the commit the branch points at.
func (r *Repo) BranchHash(name string) plumbing.Hash {
	r.t.Helper()

	ref, err := r.Repo.Reference(plumbing.NewBranchReferenceName(name), true)
	require.NoError(r.t, err, "branch %s should exist", name)
	return ref.Hash()
}

// CurrentBranch returns the short name of the checked out branch.
func (r *Repo) CurrentBranch() string {
	r.t.Helper()

	head, err := r.Repo.Head()
	require.NoError(r.t, err, "failed to read HEAD")
	return head.Name().Short()
}

// ReadFile returns the content of a worktree file.
func (r *Repo) ReadFile(name string) string {
	r.t.Helper()

	data, err := util.ReadFile(r.worktree().Filesystem, name)
	require.NoError(r.t, err, "failed to read %s", name)
	return string(data)
}

// Exists reports whether a worktree file exists.
func (r *Repo) Exists(name string) bool {
	_, err := r.worktree().Filesystem.Stat(name)
	return err == nil
}

// Subjects returns the subject lines of the commits reachable from branch,
// newest first.
func (r *Repo) Subjects(branch string) []string {
	r.t.Helper()

	iter, err := r.Repo.Log(&git.LogOptions{From: r.BranchHash(branch)})
	require.NoError(r.t, err)

	var subjects []string
	err = iter.ForEach(func(c *object.Commit) error {
		subjects = append(subjects, c.Message)
		return nil
	})
	require.NoError(r.t, err)
	return subjects
}

func (r *Repo) worktree() *git.Worktree {
	r.t.Helper()

	wt, err := r.Repo.Worktree()
	require.NoError(r.t, err, "failed to open worktree")
	return wt
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
