package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/root"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.NewCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
