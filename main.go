// Package main
package main

import (
	"caselaw/packages/cli"
	"context"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.ExecuteContext(ctx)
}
