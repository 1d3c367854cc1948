// Package platform wires the subsystems into running processes: the engine
// runtime (graph, bridge, tick loop, snapshots) and the supervisor that
// keeps collector loops alive.
package platform

import (
	"context"
	"fmt"
	"time"

	"anima/internal/bootstrap"
	"anima/internal/bridge"
	"anima/internal/config"
	"anima/internal/engine"
	"anima/internal/graph"
	"anima/internal/model"
	"anima/internal/storage"
)

// feedbackGain is the weak implicit feedback: each emitted output class is
// re-injected into its own symbol encoder at this strength.
const feedbackGain = 0.3

// emitThreshold is the output activation below which no frame is emitted.
const emitThreshold = 0.6

// Runtime owns the engine process state: graph, network handles, the two
// shared-memory regions, and the persistence store. Single-threaded by
// construction; only the tick loop touches the graph.
type Runtime struct {
	cfg   config.Config
	store storage.Store

	g   *graph.Graph
	net *bootstrap.Network
	eng *engine.Engine

	inbound  *bridge.Region
	outbound *bridge.Region
	inCursor *bridge.Cursor

	stats     []model.TickStats
	framesIn  uint64
	framesOut uint64
}

// NewRuntime builds or restores the graph, creates both shared-memory
// regions, and prepares the engine. The caller must Close the runtime on
// every exit path so the mappings are released.
func NewRuntime(ctx context.Context, cfg config.Config, store storage.Store) (*Runtime, error) {
	if cfg.Graph.NodeCapacity < bootstrap.MinNodeCapacity() {
		return nil, fmt.Errorf("node capacity %d below bootstrap minimum %d",
			cfg.Graph.NodeCapacity, bootstrap.MinNodeCapacity())
	}

	g, net, err := buildOrRestore(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(g, cfg.EngineConfig())
	if err != nil {
		return nil, err
	}

	inbound, err := bridge.CreateRegion(cfg.InboundPath(), cfg.Bridge.Capacity)
	if err != nil {
		return nil, err
	}
	outbound, err := bridge.CreateRegion(cfg.OutboundPath(), cfg.Bridge.Capacity)
	if err != nil {
		inbound.Close()
		return nil, err
	}

	return &Runtime{
		cfg:      cfg,
		store:    store,
		g:        g,
		net:      net,
		eng:      eng,
		inbound:  inbound,
		outbound: outbound,
		inCursor: inbound.Ring().NewCursor(),
	}, nil
}

// buildOrRestore loads the run's last snapshot when one exists; otherwise it
// bootstraps a fresh topology and persists it. Bootstrap node indices are
// deterministic, so the network handles are recomputed from a scratch build
// and remain valid against the restored graph.
func buildOrRestore(ctx context.Context, cfg config.Config, store storage.Store) (*graph.Graph, *bootstrap.Network, error) {
	scratch, err := graph.New(cfg.Graph.NodeCapacity, cfg.Graph.EdgeCapacity)
	if err != nil {
		return nil, nil, err
	}
	net, err := bootstrap.Build(scratch)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}

	snapshot, ok, err := store.GetSnapshot(ctx, cfg.RunID)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	if ok && len(snapshot.Nodes) >= bootstrap.MinNodeCapacity() {
		g, err := storage.RestoreGraph(snapshot)
		if err != nil {
			return nil, nil, fmt.Errorf("restore snapshot %s: %w", cfg.RunID, err)
		}
		return g, net, nil
	}

	if err := store.SaveSnapshot(ctx, storage.SnapshotGraph(scratch, cfg.RunID)); err != nil {
		return nil, nil, fmt.Errorf("save bootstrap snapshot: %w", err)
	}
	return scratch, net, nil
}

// Run executes the cooperative tick loop until the context is canceled:
// drain inbound frames, propagate, learn, run the gates, emit output. A
// final snapshot is taken on the way out.
func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.persist(context.Background())
		case <-ticker.C:
		}

		tick := r.RunTick()
		if r.cfg.SnapshotEvery > 0 && tick%r.cfg.SnapshotEvery == 0 {
			if err := r.persist(ctx); err != nil {
				return err
			}
		}
	}
}

// RunTick performs exactly one tick synchronously. Exposed so tests and the
// public API can drive the loop without the wall clock.
func (r *Runtime) RunTick() uint64 {
	r.drainInbound()
	tick := r.eng.Step()
	r.emitOutbound()
	r.record(tick)
	return tick
}

// drainInbound consumes every frame currently available and stimulates the
// semantic encoders matching the payload bytes. Unknown bytes are ignored;
// unknown source tags still contribute whatever symbols they carry.
func (r *Runtime) drainInbound() {
	ring := r.inbound.Ring()
	for {
		frame, ok := ring.TryReadFrame(r.inCursor)
		if !ok {
			return
		}
		r.framesIn++
		for _, b := range frame.Payload {
			if id, ok := r.net.SymbolFor(b); ok {
				r.eng.Stimulate(id, 1.0)
			}
		}
	}
}

// emitOutbound publishes the decoded output class when one stands out, and
// feeds it back into its own encoder as weak implicit feedback.
func (r *Runtime) emitOutbound() {
	class, activation := r.net.StrongestOutput(r.g)
	if activation < emitThreshold {
		return
	}
	text := fmt.Sprintf("out:class %d a=%.4f tick=%d", class, activation, r.g.Tick())
	if err := r.outbound.Ring().WriteFrame(bridge.TextFrame(bridge.SourceCtrl, 1, text)); err != nil {
		return
	}
	r.framesOut++

	digit := byte('0' + class)
	if id, ok := r.net.SymbolFor(digit); ok {
		r.eng.Stimulate(id, feedbackGain)
	}
}

func (r *Runtime) record(tick uint64) {
	nodes := r.g.Nodes()
	sum := 0.0
	for i := range nodes {
		sum += nodes[i].A
	}
	mean := 0.0
	if len(nodes) > 0 {
		mean = sum / float64(len(nodes))
	}
	r.stats = append(r.stats, model.TickStats{
		Tick:           tick,
		Nodes:          r.g.NodeCount(),
		Edges:          r.g.EdgeCount(),
		FramesIn:       r.framesIn,
		FramesOut:      r.framesOut,
		MeanActivation: mean,
	})
	// The ledger is a sliding window: a daemon ticking indefinitely keeps
	// only the most recent StatsHistory rows in memory and in the store.
	if max := r.cfg.StatsHistory; max > 0 && len(r.stats) > max {
		r.stats = r.stats[len(r.stats)-max:]
	}
}

func (r *Runtime) persist(ctx context.Context) error {
	if err := r.store.SaveSnapshot(ctx, storage.SnapshotGraph(r.g, r.cfg.RunID)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := r.store.SaveTickStats(ctx, r.cfg.RunID, r.stats); err != nil {
		return fmt.Errorf("save tick stats: %w", err)
	}
	return nil
}

func (r *Runtime) Graph() *graph.Graph { return r.g }

func (r *Runtime) Network() *bootstrap.Network { return r.net }

// Stats returns the telemetry rows recorded so far.
func (r *Runtime) Stats() []model.TickStats {
	out := make([]model.TickStats, len(r.stats))
	copy(out, r.stats)
	return out
}

// Close releases both shared-memory mappings. Safe on every exit path and
// idempotent; the region files are unlinked so stale readers cannot attach
// to a dead engine.
func (r *Runtime) Close() error {
	var firstErr error
	for _, region := range []*bridge.Region{r.inbound, r.outbound} {
		if region == nil {
			continue
		}
		if err := region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := region.Unlink(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.inbound, r.outbound = nil, nil
	return firstErr
}
