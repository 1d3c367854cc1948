// animactl is the operator CLI: it inspects persisted snapshots and tick
// statistics, injects frames into a running engine, and tails engine output.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anima/internal/bridge"
	"anima/internal/config"
	"anima/internal/graph"
	"anima/internal/storage"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "stats":
		return runStats(ctx, args[1:])
	case "snapshot":
		return runSnapshot(ctx, args[1:])
	case "inject":
		return runInject(ctx, args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("ANIMA_CONFIG"), "path to anima.yaml (optional)")
	limit := fs.Int("limit", 20, "max tick rows to print, newest last")
	jsonOut := fs.Bool("json", false, "emit stats as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	cfg, store, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(store)

	rows, ok, err := store.GetTickStats(ctx, cfg.RunID)
	if err != nil {
		return err
	}
	if !ok || len(rows) == 0 {
		fmt.Println("no tick stats recorded")
		return nil
	}
	if len(rows) > *limit {
		rows = rows[len(rows)-*limit:]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, row := range rows {
		fmt.Printf("tick=%d nodes=%d edges=%d frames_in=%d frames_out=%d mean_activation=%.6f\n",
			row.Tick, row.Nodes, row.Edges, row.FramesIn, row.FramesOut, row.MeanActivation)
	}
	return nil
}

func runSnapshot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("ANIMA_CONFIG"), "path to anima.yaml (optional)")
	jsonOut := fs.Bool("json", false, "emit full snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, store, err := openStore(ctx, *configPath)
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(store)

	snapshot, ok, err := store.GetSnapshot(ctx, cfg.RunID)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no snapshot recorded")
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	layers := map[uint8]int{}
	var activationSum float64
	for _, n := range snapshot.Nodes {
		layers[n.Layer]++
		activationSum += n.A
	}
	mean := 0.0
	if len(snapshot.Nodes) > 0 {
		mean = activationSum / float64(len(snapshot.Nodes))
	}
	fmt.Printf("run=%s tick=%d nodes=%d/%d edges=%d/%d mean_activation=%.6f\n",
		snapshot.ID, snapshot.Tick,
		len(snapshot.Nodes), snapshot.NodeCapacity,
		len(snapshot.Edges), snapshot.EdgeCapacity, mean)
	for layer := uint8(0); layer < 4; layer++ {
		fmt.Printf("layer %-9s nodes=%d\n", graph.Layer(layer), layers[layer])
	}
	return nil
}

func runInject(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("inject", flag.ContinueOnError)
	shmDir := fs.String("shm-dir", bridge.DefaultDir, "directory holding the shared-memory regions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inject expects exactly one text argument, e.g. animactl inject \"3+4=\"")
	}
	text := fs.Arg(0)
	if len(text) > bridge.PayloadSize {
		return fmt.Errorf("text exceeds payload size %d", bridge.PayloadSize)
	}

	// This writes the same region animasense writes; run inject while the
	// collector daemon is stopped, or accept interleaved sequence numbers.
	inbound, err := bridge.AttachRegion(bridge.RegionPath(*shmDir, bridge.InboundName))
	if err != nil {
		return err
	}
	defer inbound.Close()

	if err := inbound.Ring().WriteFrame(bridge.TextFrame(bridge.SourceUser, 1, text)); err != nil {
		return err
	}
	fmt.Printf("injected %d bytes at seq %d\n", len(text), inbound.Ring().WriteSeq())
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	shmDir := fs.String("shm-dir", bridge.DefaultDir, "directory holding the shared-memory regions")
	count := fs.Int("count", 0, "stop after this many frames (0 = until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	outbound, err := bridge.AttachRegion(bridge.RegionPath(*shmDir, bridge.OutboundName))
	if err != nil {
		return err
	}
	defer outbound.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cursor := outbound.Ring().NewCursor()
	seen := 0
	for {
		f, ok := outbound.Ring().TryReadFrame(cursor)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		fmt.Printf("src=%d sub=%d ts=%d %s\n", f.Source, f.Subtype, f.Timestamp, f.Text())
		seen++
		if *count > 0 && seen >= *count {
			return nil
		}
	}
}

func openStore(ctx context.Context, configPath string) (config.Config, storage.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	store, err := storage.NewStore(cfg.StoreOptions())
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := store.Init(ctx); err != nil {
		storage.CloseIfSupported(store)
		return config.Config{}, nil, err
	}
	return cfg, store, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: animactl <stats|snapshot|inject|watch> [flags]", msg)
}
