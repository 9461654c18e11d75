package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/validator-ranker/app/ranker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := ranker.Initialize(ctx)

	app.Start(ctx)
}
