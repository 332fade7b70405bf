// Package main runs a single executor pass and prints the summary as JSON.
// Stdout carries only the JSON document; logs go to stderr.
// Exits 1 when the pass cannot run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"xrpl-amm-bot/internal/app"
)

func main() {
	// Load .env file if exists
	app.LoadEnvFile(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one pass and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("runonce", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, finish := app.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.LogOutput = stderr

	logger := cfg.NewLogger("runonce")

	if err := finish(); err != nil {
		logger.Print(err)
		return 2
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Printf("Failed to build executor: %v", err)
		writeError(stdout, err)
		return 1
	}

	summary, err := a.Runner.RunPass(ctx)
	a.Close()
	if err != nil {
		logger.Printf("Pass failed: %v", err)
		writeError(stdout, err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Printf("Encode summary: %v", err)
		return 1
	}
	return 0
}

func writeError(w io.Writer, err error) {
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

