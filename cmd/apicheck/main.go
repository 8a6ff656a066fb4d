// Command apicheck runs end-to-end checks against a running chatbot API and
// provisions the account those checks sign in with.
//
// Usage:
//
//	apicheck run [suite...] [flags]
//	apicheck list
//	apicheck seed [flags]
//
// Examples:
//
//	# Provision test@example.com in the database, then run every suite
//	apicheck seed --database-url postgres://localhost:5432/chatbot
//	apicheck run
//
//	# Run only the auth suite against a staging deployment
//	apicheck run auth --base-url https://staging.example.com
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
