// animasense is the telemetry daemon: it attaches to the inbound region
// animad created, runs the host collectors under a supervisor, and streams
// their frames into the ring. It is the sole writer of the inbound region.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"anima/internal/bridge"
	"anima/internal/collector"
	"anima/internal/platform"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// lockedWriter serializes collector goroutines onto the single-writer ring.
type lockedWriter struct {
	mu   sync.Mutex
	ring *bridge.Ring
}

func (w *lockedWriter) WriteFrame(f bridge.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ring.WriteFrame(f)
}

func run() error {
	shmDir := flag.String("shm-dir", bridge.DefaultDir, "directory holding the shared-memory regions")
	syslogPath := flag.String("syslog", "/var/log/syslog", "system log file to tail")
	kernlogPath := flag.String("kernlog", "/var/log/kern.log", "kernel log file to tail")
	watch := flag.Bool("watch", false, "also print frames the engine emits on the outbound region")
	flag.Parse()

	log.SetFlags(log.LstdFlags)

	inbound, err := bridge.AttachRegion(bridge.RegionPath(*shmDir, bridge.InboundName))
	if err != nil {
		if errors.Is(err, bridge.ErrRegionUnavailable) {
			return err
		}
		return fmt.Errorf("attach inbound region: %w", err)
	}
	defer inbound.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer := &lockedWriter{ring: inbound.Ring()}

	sup := platform.NewSupervisorWithHooks(platform.SupervisorPolicy{}, platform.SupervisorHooks{
		OnTaskRestart: func(name string, cause error, restarts int) {
			log.Printf("collector %s restarting (attempt %d): %v", name, restarts, cause)
		},
		OnTaskPermanentFailure: func(name string, cause error, restarts int) {
			log.Printf("collector %s gave up after %d restarts: %v", name, restarts, cause)
		},
	})

	collectors := []collector.Collector{
		collector.NewProc(),
		collector.NewNet(),
		collector.NewLog(*syslogPath, bridge.LogJournal),
		collector.NewLog(*kernlogPath, bridge.LogKernel),
	}
	for _, c := range collectors {
		c := c
		if err := sup.Start(c.Name(), func(ctx context.Context) error {
			return collector.Run(ctx, c, writer)
		}); err != nil {
			return fmt.Errorf("start collector %s: %w", c.Name(), err)
		}
	}
	log.Printf("animasense started: region=%s collectors=%d", inbound.Path(), len(collectors))

	if *watch {
		go watchOutbound(ctx, *shmDir)
	}

	<-ctx.Done()
	sup.Stop()
	log.Printf("animasense stopped")
	return nil
}

// watchOutbound tails the engine's output region and prints every frame.
// Attachment is retried because animad may recreate the region on restart.
func watchOutbound(ctx context.Context, shmDir string) {
	path := bridge.RegionPath(shmDir, bridge.OutboundName)
	for ctx.Err() == nil {
		outbound, err := bridge.AttachRegion(path)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		cursor := outbound.Ring().NewCursor()
		for ctx.Err() == nil {
			f, ok := outbound.Ring().TryReadFrame(cursor)
			if !ok {
				select {
				case <-ctx.Done():
					outbound.Close()
					return
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			log.Printf("engine: %s", f.Text())
		}
		outbound.Close()
	}
}
