package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"telcosync/internal/config"
	"telcosync/internal/services"
)

func main() {
	config.RestrictUmask()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "telcosync:", err)
		}
		os.Exit(services.ExitCode(err))
	}
}
