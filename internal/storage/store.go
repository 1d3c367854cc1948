package storage

import (
	"context"

	"anima/internal/model"
)

// Store persists graph snapshots and per-run tick telemetry.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot model.GraphSnapshot) error
	GetSnapshot(ctx context.Context, id string) (model.GraphSnapshot, bool, error)
	SaveTickStats(ctx context.Context, runID string, stats []model.TickStats) error
	GetTickStats(ctx context.Context, runID string) ([]model.TickStats, bool, error)
}
