// animad is the engine daemon: it creates both shared-memory regions,
// bootstraps or restores the graph, and runs the tick loop until it is
// signaled to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"anima/internal/config"
	"anima/pkg/anima"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("ANIMA_CONFIG"), "path to anima.yaml (optional)")
	runID := flag.String("run-id", "", "override run id")
	storeKind := flag.String("store", "", "override store backend: memory|sqlite")
	dbPath := flag.String("db-path", "", "override sqlite database path")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *runID != "" {
		cfg.RunID = *runID
	}
	if *storeKind != "" {
		cfg.Store.Kind = *storeKind
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system, err := anima.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer system.Close()

	log.Printf("animad started: run=%s tick=%v rx=%s tx=%s store=%s",
		cfg.RunID, cfg.TickInterval(), cfg.InboundPath(), cfg.OutboundPath(), cfg.Store.Kind)

	if err := system.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("animad stopped at tick %d", system.Tick())
	return nil
}
