// Package anima is the embedding API for the substrate: it owns the store,
// the bootstrap graph, and the shared-memory bridge, and exposes the tick
// loop for daemons and tests.
package anima

import (
	"context"
	"fmt"

	"anima/internal/config"
	"anima/internal/model"
	"anima/internal/platform"
	"anima/internal/storage"
)

// System is one live engine instance. It is not safe for concurrent use:
// the engine is single-threaded by design and exactly one goroutine may
// drive it.
type System struct {
	cfg     config.Config
	store   storage.Store
	runtime *platform.Runtime
}

// Open initializes the store, builds or restores the graph, and creates the
// shared-memory regions. Callers must Close the system on every exit path.
func Open(ctx context.Context, cfg config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := storage.NewStore(cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	runtime, err := platform.NewRuntime(ctx, cfg, store)
	if err != nil {
		storage.CloseIfSupported(store)
		return nil, err
	}
	return &System{cfg: cfg, store: store, runtime: runtime}, nil
}

// Run drives the tick loop at the configured cadence until ctx ends.
func (s *System) Run(ctx context.Context) error {
	return s.runtime.Run(ctx)
}

// Step executes n ticks synchronously and returns the final tick number.
func (s *System) Step(n int) uint64 {
	var tick uint64
	for i := 0; i < n; i++ {
		tick = s.runtime.RunTick()
	}
	return tick
}

// Tick returns the engine's current tick counter.
func (s *System) Tick() uint64 {
	return s.runtime.Graph().Tick()
}

// Decode returns the currently strongest output class and its activation.
func (s *System) Decode() (int, float64) {
	return s.runtime.Network().StrongestOutput(s.runtime.Graph())
}

// Snapshot copies the full graph state.
func (s *System) Snapshot() model.GraphSnapshot {
	return storage.SnapshotGraph(s.runtime.Graph(), s.cfg.RunID)
}

// Stats returns the per-tick telemetry recorded so far.
func (s *System) Stats() []model.TickStats {
	return s.runtime.Stats()
}

// Close persists nothing extra; it releases the shared-memory mappings and
// the store. Idempotent.
func (s *System) Close() error {
	var firstErr error
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			firstErr = err
		}
	}
	if s.store != nil {
		if err := storage.CloseIfSupported(s.store); err != nil && firstErr == nil {
			firstErr = err
		}
		s.store = nil
	}
	return firstErr
}
