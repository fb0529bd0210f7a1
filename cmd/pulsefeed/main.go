// Command pulsefeed is the feed connector entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/seclane/pulsefeed/internal/cli"
)

// version is injected at build time:
//
//	go build -ldflags "-X main.version=v1.2.3" ./cmd/pulsefeed
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
