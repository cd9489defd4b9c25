package forksync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd/gitcmdtest"
)

func TestCurrentBranch(t *testing.T) {
	tests := []struct {
		name      string
		script    func(f *gitcmdtest.Fake)
		want      string
		wantErrIs error
	}{
		{
			name:   "on branch",
			script: func(f *gitcmdtest.Fake) { f.On("feature/x\n", "rev-parse", "--abbrev-ref", "HEAD") },
			want:   "feature/x",
		},
		{
			name:      "detached head",
			script:    func(f *gitcmdtest.Fake) { f.On("HEAD", "rev-parse", "--abbrev-ref", "HEAD") },
			wantErrIs: forksync.ErrConfiguration,
		},
		{
			name: "not a repository",
			script: func(f *gitcmdtest.Fake) {
				f.Fail(128, "fatal: not a git repository", "rev-parse", "--abbrev-ref", "HEAD")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := gitcmdtest.NewFake()
			tt.script(fake)
			engine, _ := newTestEngine(t, fake)

			got, err := engine.CurrentBranch(context.Background(), testDir)
			if tt.want == "" {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunUnknownWorkflow(t *testing.T) {
	fake := gitcmdtest.NewFake()
	engine, _ := newTestEngine(t, fake)

	_, err := engine.Run(context.Background(), forksync.Session{Dir: testDir})
	require.ErrorIs(t, err, forksync.ErrConfiguration)
	assert.Empty(t, fake.Calls())
}

func TestRunLogsRunID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fake := gitcmdtest.NewFake()
	scriptDetect(fake, []string{"a"}, []string{"a"}, nil)
	engine, _ := newTestEngine(t, fake, forksync.WithLogger(zap.New(core)))

	session, err := forksync.NewSession(testDir, baseConfig(), forksync.DetectDivergence{})
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), session)
	require.NoError(t, err)

	entries := logs.FilterMessage("sync run finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "diverged", fields["workflow"])
	assert.NotEmpty(t, fields["run_id"])

	started := logs.FilterMessage("starting sync run").All()
	require.Len(t, started, 1)
	assert.Equal(t, fields["run_id"], started[0].ContextMap()["run_id"])
}

func TestRunObserverSeesFailure(t *testing.T) {
	fake := gitcmdtest.NewFake().Fail(128, "fatal: unable to access", "fetch", "upstream")
	obs := &recorder{}
	engine, _ := newTestEngine(t, fake, forksync.WithObserver(obs))

	session, err := forksync.NewSession(testDir, baseConfig(), forksync.DetectDivergence{})
	require.NoError(t, err)

	res, err := engine.Run(context.Background(), session)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, forksync.ExitFailure, forksync.ExitCode(res, err))
	assert.Equal(t, []string{
		"start resolve ignore rules",
		"done resolve ignore rules",
		"start fetch upstream",
		"fail fetch upstream",
	}, obs.events)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, forksync.ExitOK, forksync.ExitCode(&forksync.Result{}, nil))
	assert.Equal(t, forksync.ExitOK, forksync.ExitCode(&forksync.Result{Pull: forksync.UpToDate{}}, nil))
	assert.Equal(t, forksync.ExitConflicts, forksync.ExitCode(&forksync.Result{
		Pull: forksync.ConflictsPresent{Files: []string{"a"}},
	}, nil))
	assert.Equal(t, forksync.ExitFailure, forksync.ExitCode(nil, errors.New("boom")))
	assert.Equal(t, forksync.ExitOK, forksync.ExitCode(nil, nil))
}

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "configuration",
			err:      &forksync.ConfigurationError{Field: "forks", Reason: "no valid forks found in the config file"},
			sentinel: forksync.ErrConfiguration,
			message:  "invalid configuration: forks: no valid forks found in the config file",
		},
		{
			name:     "remote conflict",
			err:      &forksync.RemoteConflictError{Remote: "fork", ExistingURL: "https://old", RequestedURL: "https://new"},
			sentinel: forksync.ErrRemoteConflict,
			message:  `fork remote URL mismatch: remote "fork" points at https://old, not https://new`,
		},
		{
			name:     "branch exists locally",
			err:      &forksync.BranchExistsError{Branch: "pr-1"},
			sentinel: forksync.ErrBranchExists,
			message:  `branch "pr-1" already exists`,
		},
		{
			name:     "branch exists on remote",
			err:      &forksync.BranchExistsError{Branch: "pr-1", Remote: "fork"},
			sentinel: forksync.ErrBranchExists,
			message:  `branch "pr-1" already exists on remote "fork"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())

			wrapped := forksync.WrapErrorf(tt.err, "step %d", 3)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.True(t, errors.Is(fmt.Errorf("outer: %w", wrapped), tt.sentinel))
		})
	}
}

func TestConfigurationErrorUnwrap(t *testing.T) {
	cause := errors.New("bad glob")
	err := &forksync.ConfigurationError{Field: "ignore", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, forksync.ErrConfiguration)
	assert.Equal(t, "invalid configuration: ignore: bad glob", err.Error())
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, forksync.WrapError(nil, "context"))
	assert.NoError(t, forksync.WrapErrorf(nil, "context %d", 1))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want forksync.ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "configuration", err: &forksync.ConfigurationError{Field: "fork"}, want: forksync.CodeInvalidConfig},
		{name: "invalid ref", err: forksync.WrapError(forksync.ErrInvalidRef, "bad"), want: forksync.CodeInvalidConfig},
		{name: "remote conflict", err: &forksync.RemoteConflictError{Remote: "fork"}, want: forksync.CodeConflict},
		{name: "branch exists", err: forksync.WrapError(&forksync.BranchExistsError{Branch: "b"}, "create b"), want: forksync.CodeAlreadyExists},
		{name: "cancelled", err: forksync.WrapError(context.Canceled, "fetch upstream"), want: forksync.CodeCanceled},
		{name: "git", err: forksync.WrapError(&forksync.GitCommandError{Command: "git fetch", ExitCode: 128}, "fetch"), want: forksync.CodeExecutionFailed},
		{name: "other", err: errors.New("boom"), want: forksync.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, forksync.CodeOf(tt.err))
		})
	}
}
