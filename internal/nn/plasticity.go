package nn

import (
	"fmt"

	"anima/internal/graph"
)

// HebbianConfig bounds the only weight-update rule in the system.
type HebbianConfig struct {
	Eta   float64
	WMin  float64
	WMax  float64
	Decay float64
}

func (cfg HebbianConfig) Validate() error {
	if cfg.Eta < 0 {
		return fmt.Errorf("eta must be >= 0: %v", cfg.Eta)
	}
	if cfg.WMax < cfg.WMin {
		return fmt.Errorf("weight bounds inverted: [%v, %v]", cfg.WMin, cfg.WMax)
	}
	if cfg.Decay < 0 {
		return fmt.Errorf("decay must be >= 0: %v", cfg.Decay)
	}
	return nil
}

// DefaultHebbianConfig matches the canonical normalized multiplier range.
func DefaultHebbianConfig() HebbianConfig {
	return HebbianConfig{Eta: 0.01, WMin: 0, WMax: 2}
}

// ApplyHebbian runs one post-propagation learning pass over every edge, in
// creation order: delta = eta * src.APrev * dst.A, clamped to [WMin, WMax].
// There is no error signal and no credit assignment; correlation is the whole
// rule. Edges with out-of-range endpoints are skipped, not fatal.
func ApplyHebbian(g *graph.Graph, cfg HebbianConfig) {
	edges := g.Edges()
	for i := range edges {
		e := &edges[i]
		if !g.ValidNode(e.Src) || !g.ValidNode(e.Dst) {
			continue
		}
		pre := g.Node(e.Src).APrev
		post := g.Node(e.Dst).A
		next := e.Weight + cfg.Eta*pre*post
		if cfg.Decay > 0 {
			next -= cfg.Decay * e.Weight
		}
		e.Weight = Sat(next, cfg.WMax, cfg.WMin)
	}
}
