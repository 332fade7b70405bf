// Package main runs the executor service:
// - Scheduler: one pass per interval tick
// - HTTP: POST /run trigger, /health, /status, /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"xrpl-amm-bot/internal/app"
	"xrpl-amm-bot/internal/executor"
	"xrpl-amm-bot/internal/httpapi"
)

func main() {
	// Load .env file if exists
	app.LoadEnvFile(".env")

	cfg, finish := app.RegisterFlags(flag.CommandLine)
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP address for trigger/health/metrics")
	interval := flag.Duration("interval", time.Minute, "Scheduled pass interval (0 disables the scheduler)")
	flag.Parse()

	logger := cfg.NewLogger("server")

	if err := finish(); err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build executor: %v", err)
	}
	defer a.Close()

	api := httpapi.New(httpapi.Options{
		Runner:      a.Runner,
		Bots:        a.Stores.Bots,
		Trades:      a.Stores.Trades,
		Attempts:    a.Stores.Attempts,
		BaseContext: ctx,
		Logger:      cfg.NewLogger("http"),
	})
	srv := &http.Server{
		Addr:              *httpAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, finishing current attempt...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(90 * time.Second):
			logger.Println("Graceful shutdown timed out after 90s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("Starting HTTP server on %s", *httpAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	if *interval > 0 {
		runScheduler(ctx, a.Runner, *interval, logger)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	stop()
	wg.Wait()
	close(done)

	logger.Println("Shutdown complete")
}

// runScheduler runs a pass immediately and then on every tick until ctx is done.
// Ticks missed during a long pass collapse into one.
func runScheduler(ctx context.Context, runner *executor.Runner, interval time.Duration, logger *log.Logger) {
	logger.Printf("Starting scheduler (interval: %v)...", interval)

	runPass(ctx, runner, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runPass(ctx, runner, logger)
		}
	}
}

func runPass(ctx context.Context, runner *executor.Runner, logger *log.Logger) {
	summary, err := runner.RunPass(ctx)
	switch {
	case errors.Is(err, executor.ErrPassInProgress):
		logger.Println("Pass already in progress, skipping tick")
	case err != nil:
		logger.Printf("Pass error: %v", err)
	default:
		logger.Printf("Pass %s: %d attempted, %d succeeded, %d failed, %d skipped",
			summary.RunID, summary.Attempted, summary.Succeeded, summary.Failed, summary.Skipped)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
