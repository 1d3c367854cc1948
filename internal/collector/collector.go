// Package collector implements the telemetry emitters that feed the engine.
// A collector formats one unit of observed OS state into a tagged text
// payload and hands it to a frame writer; it owns no state inside the
// engine. Each collector polls at its own cadence and only intra-collector
// FIFO order is guaranteed on the shared inbound ring.
package collector

import (
	"context"
	"fmt"
	"time"

	"anima/internal/bridge"
)

// FrameWriter is the single entry point a collector emits through.
type FrameWriter interface {
	WriteFrame(bridge.Frame) error
}

type Collector interface {
	Name() string
	Interval() time.Duration
	// Collect formats the current observation into zero or more frames.
	Collect(ctx context.Context) ([]bridge.Frame, error)
}

// Run polls one collector at its cadence until the context ends. A failed
// write aborts that poll cycle only; the collector keeps running.
func Run(ctx context.Context, c Collector, w FrameWriter) error {
	ticker := time.NewTicker(c.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		frames, err := c.Collect(ctx)
		if err != nil {
			return fmt.Errorf("%s collect: %w", c.Name(), err)
		}
		for _, frame := range frames {
			if err := w.WriteFrame(frame); err != nil {
				break
			}
		}
	}
}

// truncatePayload keeps a text payload within the frame bound.
func truncatePayload(text string) string {
	if len(text) > bridge.PayloadSize {
		return text[:bridge.PayloadSize]
	}
	return text
}
