// Package gitcmdtest provides a scripted gitcmd.Gateway for tests.
package gitcmdtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd"
)

// Call records a single invocation of the fake.
type Call struct {
	Dir  string
	Args []string
}

// String returns the arguments joined by spaces.
func (c Call) String() string {
	return strings.Join(c.Args, " ")
}

type response struct {
	stdout   string
	exitCode int
	stderr   string
}

// Fake is a gitcmd.Gateway that answers from a script keyed by the
// space-joined argument list. Unscripted commands fail with exit code 128
// so tests notice unexpected git traffic.
type Fake struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     []Call
}

var _ gitcmd.Gateway = (*Fake)(nil)

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: make(map[string][]response)}
}

// On scripts a successful response for args. Repeated calls for the same args
// queue responses; the last one is reused once the queue drains.
func (f *Fake) On(stdout string, args ...string) *Fake {
	return f.push(strings.Join(args, " "), response{stdout: stdout})
}

// Fail scripts a non-zero exit for args.
func (f *Fake) Fail(exitCode int, stderr string, args ...string) *Fake {
	return f.push(strings.Join(args, " "), response{exitCode: exitCode, stderr: stderr})
}

func (f *Fake) push(key string, r response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = append(f.responses[key], r)
	return f
}

// Run implements gitcmd.Gateway.
func (f *Fake) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("git %s not started: %w", strings.Join(args, " "), err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Dir: dir, Args: append([]string(nil), args...)})

	key := strings.Join(args, " ")
	queue, ok := f.responses[key]
	if !ok || len(queue) == 0 {
		return "", &gitcmd.CommandError{
			Command:  "git " + key,
			Args:     args,
			ExitCode: 128,
			Stderr:   "unscripted command: git " + key,
			Err:      fmt.Errorf("exit status 128"),
		}
	}

	r := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}

	if r.exitCode != 0 {
		return "", &gitcmd.CommandError{
			Command:  "git " + key,
			Args:     args,
			ExitCode: r.exitCode,
			Stderr:   r.stderr,
			Err:      fmt.Errorf("exit status %d", r.exitCode),
		}
	}
	return strings.TrimRight(r.stdout, "\n"), nil
}

// Calls returns every recorded invocation in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Commands returns the space-joined args of every invocation in order.
func (f *Fake) Commands() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Called reports whether args were invoked at least once.
func (f *Fake) Called(args ...string) bool {
	key := strings.Join(args, " ")
	for _, c := range f.Calls() {
		if c.String() == key {
			return true
		}
	}
	return false
}

// CalledWithPrefix reports whether any invocation starts with prefix.
func (f *Fake) CalledWithPrefix(prefix ...string) bool {
	key := strings.Join(prefix, " ")
	for _, c := range f.Calls() {
		if strings.HasPrefix(c.String(), key) {
			return true
		}
	}
	return false
}

// AssertNotCalled fails t if args were invoked.
func (f *Fake) AssertNotCalled(t testing.TB, args ...string) {
	t.Helper()
	if f.Called(args...) {
		t.Errorf("unexpected git %s", strings.Join(args, " "))
	}
}
