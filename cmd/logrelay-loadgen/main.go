// Command logrelay-loadgen emits synthetic log records as ingest
// datagrams at a configurable rate, for exercising a running logrelay
// instance without a real fleet of log-producing processes behind it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/logrelay/logrelay/internal/loadgen"
)

func main() {
	cfg := loadgen.ParseFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("logrelay-loadgen starting",
		"addr", cfg.Addr,
		"rate", cfg.Rate,
		"duration", cfg.Duration,
	)

	sender, err := loadgen.NewSender(cfg.Addr)
	if err != nil {
		slog.Error("failed to create sender", "error", err)
		os.Exit(1)
	}
	defer sender.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	gen := loadgen.NewGenerator(cfg)

	if err := run(ctx, gen, sender, cfg); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		slog.Error("generator error", "error", err)
		os.Exit(1)
	}

	stats := sender.Stats()
	slog.Info("generation complete",
		"total_records", stats.TotalLogs,
		"errors", stats.Errors,
		"duration", time.Since(stats.StartTime).Round(time.Millisecond),
	)
}

func run(ctx context.Context, gen *loadgen.Generator, sender *loadgen.Sender, cfg loadgen.Config) error {
	interval := time.Second / time.Duration(cfg.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rec := gen.Next()
			if err := sender.Send(ctx, rec); err != nil {
				slog.Warn("send failed", "error", err)
			}
		}
	}
}
