package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sibi-seeni/credit-churn-deploy/internal/presentation/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli.Execute(ctx)
}
