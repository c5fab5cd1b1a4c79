package main

import (
	"context"
	"os"
	"os/signal"

	"famreg/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Default().Error("famreport failed", "error", err)
		stop()
		os.Exit(1)
	}
}
