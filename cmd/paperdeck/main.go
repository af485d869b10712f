package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/paperdeck/paperdeck/cmd/paperdeck/cmd"
)

const (
	exitCodeError       = 1
	exitCodeInterrupted = 130 // 128 + SIGINT, mirrors shell convention
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
			return exitCodeInterrupted
		}
		return exitCodeError
	}
	return 0
}
