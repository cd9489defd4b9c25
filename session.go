package forksync

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultUpstreamRemote = "upstream"
	DefaultUpstreamBranch = "development"
	DefaultDivergedFile   = "diverged.txt"

	prBranchPrefix   = "pr-branch-"
	workBranchPrefix = "sync-upstream-"
	branchTimeLayout = "20060102-150405"
)

// RepositoryRef addresses a branch, optionally on a remote. The zero
// RemoteName denotes a local branch.
type RepositoryRef struct {
	RemoteName string
	BranchName string
	RemoteURL  string
}

// Rev returns the revision git resolves for the ref: "remote/branch" for
// remote refs, "branch" for local ones.
func (r RepositoryRef) Rev() string {
	if r.RemoteName == "" {
		return r.BranchName
	}
	return r.RemoteName + "/" + r.BranchName
}

// TrackingRef returns the fully qualified ref name.
func (r RepositoryRef) TrackingRef() string {
	if r.RemoteName == "" {
		return plumbing.NewBranchReferenceName(r.BranchName).String()
	}
	return plumbing.NewRemoteReferenceName(r.RemoteName, r.BranchName).String()
}

func (r RepositoryRef) String() string {
	return r.Rev()
}

// ForkTarget is a configured push destination.
type ForkTarget struct {
	Name      string `mapstructure:"name" validate:"required"`
	RemoteURL string `mapstructure:"remote_url" validate:"required"`
	Branch    string `mapstructure:"branch" validate:"required"`
}

// Ref returns the fork's base branch as a RepositoryRef.
func (f ForkTarget) Ref() RepositoryRef {
	return RepositoryRef{RemoteName: f.Name, BranchName: f.Branch, RemoteURL: f.RemoteURL}
}

// Config is the resolved configuration input.
type Config struct {
	DivergedFile   string       `mapstructure:"diverged_file" validate:"required"`
	IgnoreFile     string       `mapstructure:"ignore_file"`
	IgnoreList     []string     `mapstructure:"ignore_list"`
	UpstreamRemote string       `mapstructure:"upstream_remote" validate:"required"`
	UpstreamBranch string       `mapstructure:"upstream_branch" validate:"required"`
	UpstreamURL    string       `mapstructure:"upstream_url"`
	LocalBranch    string       `mapstructure:"local_branch"`
	Forks          []ForkTarget `mapstructure:"forks" validate:"unique=Name,dive"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.UpstreamRemote == "" {
		c.UpstreamRemote = DefaultUpstreamRemote
	}
	if c.UpstreamBranch == "" {
		c.UpstreamBranch = DefaultUpstreamBranch
	}
	if c.DivergedFile == "" {
		c.DivergedFile = DefaultDivergedFile
	}
}

// Workflow selects what a run does. It is one of DetectDivergence,
// PullUpstream or PullFork.
type Workflow interface {
	fmt.Stringer
	isWorkflow()
}

// DetectDivergence lists files that differ between the local and upstream
// branches and writes the diverged file.
type DetectDivergence struct{}

// PullUpstream merges upstream history into a new integration branch cut from
// the local branch.
type PullUpstream struct {
	// WorkBranch is the integration branch to create.
	WorkBranch string
}

// PullFork pushes the local branch to a fork on a new PR branch.
type PullFork struct {
	Fork     ForkTarget
	PRBranch string
	// DryRun validates every precondition without mutating the repository.
	DryRun bool
}

func (DetectDivergence) String() string { return "diverged" }
func (PullUpstream) String() string     { return "pull-upstream" }
func (PullFork) String() string         { return "pull-fork" }

func (DetectDivergence) isWorkflow() {}
func (PullUpstream) isWorkflow()     {}
func (PullFork) isWorkflow()         {}

// Session is the immutable input of one run.
type Session struct {
	Dir          string
	Workflow     Workflow
	Local        RepositoryRef
	Upstream     RepositoryRef
	DivergedFile string
	IgnoreFile   string
	IgnoreList   []string
}

// NewSession validates cfg and builds the session for wf. LocalBranch must be
// resolved beforehand (see Engine.CurrentBranch).
func NewSession(dir string, cfg Config, wf Workflow) (Session, error) {
	if strings.TrimSpace(dir) == "" {
		return Session{}, configError("dir", "working directory is required")
	}
	if wf == nil {
		return Session{}, configError("workflow", "no workflow selected")
	}
	if cfg.UpstreamRemote == "" {
		return Session{}, configError("upstream_remote", "required")
	}
	if cfg.UpstreamBranch == "" {
		return Session{}, configError("upstream_branch", "required")
	}
	if cfg.LocalBranch == "" {
		return Session{}, configError("local_branch", "required")
	}
	if err := validateBranchName(cfg.LocalBranch); err != nil {
		return Session{}, &ConfigurationError{Field: "local_branch", Err: err}
	}
	if err := validateBranchName(cfg.UpstreamBranch); err != nil {
		return Session{}, &ConfigurationError{Field: "upstream_branch", Err: err}
	}

	switch w := wf.(type) {
	case DetectDivergence:
		if cfg.DivergedFile == "" {
			return Session{}, configError("diverged_file", "required")
		}
	case PullUpstream:
		if w.WorkBranch == "" {
			return Session{}, configError("work_branch", "required")
		}
		if err := validateBranchName(w.WorkBranch); err != nil {
			return Session{}, &ConfigurationError{Field: "work_branch", Err: err}
		}
	case PullFork:
		if w.Fork.Name == "" || w.Fork.RemoteURL == "" || w.Fork.Branch == "" {
			return Session{}, configError("fork", "no fork selected")
		}
		if w.PRBranch == "" {
			return Session{}, configError("pr_branch", "required")
		}
		if err := validateBranchName(w.PRBranch); err != nil {
			return Session{}, &ConfigurationError{Field: "pr_branch", Err: err}
		}
	default:
		return Session{}, configError("workflow", fmt.Sprintf("unknown workflow %T", wf))
	}

	return Session{
		Dir:      dir,
		Workflow: wf,
		Local:    RepositoryRef{BranchName: cfg.LocalBranch},
		Upstream: RepositoryRef{
			RemoteName: cfg.UpstreamRemote,
			BranchName: cfg.UpstreamBranch,
			RemoteURL:  cfg.UpstreamURL,
		},
		DivergedFile: cfg.DivergedFile,
		IgnoreFile:   cfg.IgnoreFile,
		IgnoreList:   append([]string(nil), cfg.IgnoreList...),
	}, nil
}

// SelectFork picks the fork named name. Without a name exactly one fork must
// be configured.
func SelectFork(forks []ForkTarget, name string) (ForkTarget, error) {
	if name != "" {
		for _, f := range forks {
			if f.Name == name {
				return f, nil
			}
		}
		return ForkTarget{}, configError("fork", fmt.Sprintf("fork %q is not configured", name))
	}

	switch len(forks) {
	case 0:
		return ForkTarget{}, configError("forks", "no valid forks found in the config file")
	case 1:
		return forks[0], nil
	default:
		names := make([]string, len(forks))
		for i, f := range forks {
			names[i] = f.Name
		}
		return ForkTarget{}, configError("fork",
			fmt.Sprintf("%d forks configured (%s); choose one explicitly", len(forks), strings.Join(names, ", ")))
	}
}

// DefaultPRBranch returns the PR branch name used when none is given.
func DefaultPRBranch(now time.Time) string {
	return prBranchPrefix + now.UTC().Format(branchTimeLayout)
}

// DefaultWorkBranch returns the integration branch name used when none is
// given.
func DefaultWorkBranch(now time.Time) string {
	return workBranchPrefix + now.UTC().Format(branchTimeLayout)
}

func validateBranchName(name string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "branch name cannot be empty")
	}
	if err := plumbing.NewBranchReferenceName(name).Validate(); err != nil {
		return WrapErrorf(ErrInvalidRef, "invalid branch name %q (%v)", name, err)
	}
	return nil
}
