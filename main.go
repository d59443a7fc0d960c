// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"pitchmidi/cmd"
	applog "pitchmidi/internal/log"
	"pitchmidi/pkg/build"
)

func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	// Interrupts cancel in-flight transcriptions and stop a publishing server.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		applog.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
