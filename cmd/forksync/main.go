// Command forksync keeps a project repository in sync with the template it
// was generated from.
//
// Usage:
//
//	forksync diverged                 list files that differ from upstream
//	forksync pull-upstream            merge upstream into a new branch
//	forksync pull-fork --fork name    push local work to a fork on a PR branch
//
// Exit status is 0 on success, 1 on error and 2 when pull-upstream stopped on
// merge conflicts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
