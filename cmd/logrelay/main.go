// Command logrelay is the CLI entrypoint: it parses flags, wires
// the application, and waits for a shutdown signal.
//
// Flag parsing and process wiring are external-collaborator concerns
// per the core's own boundary, but this binary is the reproducible
// integration point the core expects: it hands the ingestion plane a
// live store, ports, and optional file paths, and forwards OS signals
// to the RPC server's shutdown path.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logrelay/logrelay/internal/app"
)

func main() {
	var (
		udpPort       int
		httpPort      int
		dbPath        string
		tailPaths     []string
		tailNames     []string
		certFile      string
		keyFile       string
		legacyConsole bool
	)

	root := &cobra.Command{
		Use:          "logrelay",
		Short:        "Multi-source log aggregation service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown argument: %s", args[0])
			}

			if legacyConsole {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			} else {
				slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
					Level: slog.LevelInfo,
				})))
			}

			cfg := app.Config{
				DBPath:    dbPath,
				UDPPort:   udpPort,
				HTTPAddr:  fmt.Sprintf(":%d", httpPort),
				CertFile:  certFile,
				KeyFile:   keyFile,
				TailPaths: tailPaths,
				TailNames: tailNames,
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("start application: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			slog.Info("shutdown signal received")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return a.Shutdown(shutdownCtx)
		},
	}

	flags := root.Flags()
	flags.IntVar(&udpPort, "udp-port", 9999, "ingest datagram port")
	flags.IntVar(&httpPort, "http-port", 8080, "transport port")
	flags.StringVar(&dbPath, "db", "logrelay.db", "store path")
	flags.StringArrayVar(&tailPaths, "tail", nil, "register a file tailer at start (repeatable)")
	flags.StringArrayVar(&tailNames, "tail-name", nil, "display name for the preceding --tail (repeatable, paired by position)")
	flags.StringVar(&certFile, "cert", "", "TLS certificate path")
	flags.StringVar(&keyFile, "key", "", "TLS key path")
	flags.BoolVar(&legacyConsole, "legacy-console", false, "use the default stdout/stderr sink instead of a terminal UI")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
