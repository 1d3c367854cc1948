// Package engine executes discrete ticks over the graph store: synchronous
// activation propagation, the Hebbian learning pass, and the periodic
// structural-plasticity gates.
package engine

import (
	"fmt"

	"anima/internal/graph"
	"anima/internal/nn"
)

// Config tunes the tick rules. Zero values fall back to defaults.
type Config struct {
	// GatePeriod is the tick modulus for structural gates; splice and fork
	// are only considered on ticks divisible by it.
	GatePeriod uint64
	// GateThreshold is the activation a Splice/Fork node needs to fire.
	GateThreshold float64
	// ActiveThreshold marks a node as a live splice candidate.
	ActiveThreshold float64
	// SpliceWeight is the initial weight of a spliced edge.
	SpliceWeight float64
	Hebbian      nn.HebbianConfig
}

func DefaultConfig() Config {
	return Config{
		GatePeriod:      8,
		GateThreshold:   0.5,
		ActiveThreshold: 0.5,
		SpliceWeight:    0.1,
		Hebbian:         nn.DefaultHebbianConfig(),
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.GatePeriod == 0 {
		cfg.GatePeriod = def.GatePeriod
	}
	if cfg.GateThreshold <= 0 {
		cfg.GateThreshold = def.GateThreshold
	}
	if cfg.ActiveThreshold <= 0 {
		cfg.ActiveThreshold = def.ActiveThreshold
	}
	if cfg.SpliceWeight <= 0 {
		cfg.SpliceWeight = def.SpliceWeight
	}
	if cfg.Hebbian == (nn.HebbianConfig{}) {
		cfg.Hebbian = def.Hebbian
	}
	return cfg
}

type Engine struct {
	g    *graph.Graph
	cfg  Config
	soma []float64
}

func New(g *graph.Graph, cfg Config) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Hebbian.Validate(); err != nil {
		return nil, fmt.Errorf("hebbian config: %w", err)
	}
	return &Engine{
		g:    g,
		cfg:  cfg,
		soma: make([]float64, g.NodeCapacity()),
	}, nil
}

func (e *Engine) Graph() *graph.Graph { return e.g }

// Stimulate drives an input node's activation directly, clamped to [0,1].
// The value takes part in the next tick's propagation.
func (e *Engine) Stimulate(id graph.NodeID, value float64) {
	if !e.g.ValidNode(id) {
		return
	}
	e.g.Node(id).A = nn.SatUnit(value)
}

// Step executes one tick: snapshot activations, accumulate each node's soma
// from incoming edges in creation order, apply the universal sigmoid rule,
// run the Hebbian pass, then evaluate the structural gates. Every node runs
// the identical activation rule regardless of its op tag; Splice and Fork
// nodes additionally trigger graph growth when their gate fires.
func (e *Engine) Step() uint64 {
	tick := e.g.AdvanceTick()
	nodes := e.g.Nodes()

	for i := range nodes {
		nodes[i].APrev = nodes[i].A
		e.soma[i] = 0
	}

	for _, edge := range e.g.Edges() {
		if edge.Src < 0 || edge.Src >= len(nodes) || edge.Dst < 0 || edge.Dst >= len(nodes) {
			continue
		}
		e.soma[edge.Dst] += edge.Weight * nodes[edge.Src].APrev
	}

	for i := range nodes {
		nodes[i].A = nn.Sigmoid(e.soma[i] - nodes[i].Theta)
	}

	nn.ApplyHebbian(e.g, e.cfg.Hebbian)

	if tick%e.cfg.GatePeriod == 0 {
		e.runGates()
	}
	return tick
}

func (e *Engine) runGates() {
	nodes := e.g.Nodes()
	for i := range nodes {
		if nodes[i].A <= e.cfg.GateThreshold {
			continue
		}
		switch nodes[i].Op {
		case graph.OpSplice:
			e.fireSplice()
		case graph.OpFork:
			e.fireFork()
		}
	}
}

// fireSplice creates at most one edge between currently-active nodes in
// adjacent layers, scanning in index order so repeated runs make identical
// choices. The layering discipline itself lives in graph.Splice.
func (e *Engine) fireSplice() {
	if e.spliceBetween(graph.LayerSemantic, graph.LayerOperation) {
		return
	}
	e.spliceBetween(graph.LayerOperation, graph.LayerOutput)
}

func (e *Engine) spliceBetween(from, to graph.Layer) bool {
	nodes := e.g.Nodes()
	for src := range nodes {
		if nodes[src].Layer != from || nodes[src].A <= e.cfg.ActiveThreshold {
			continue
		}
		for dst := range nodes {
			if nodes[dst].Layer != to || nodes[dst].A <= e.cfg.ActiveThreshold {
				continue
			}
			if e.g.HasEdge(src, dst) {
				continue
			}
			if _, err := e.g.Splice(src, dst, e.cfg.SpliceWeight); err == nil {
				return true
			}
		}
	}
	return false
}

// fireFork grows one operation-layer neuron wired from the most active
// semantic node to the most active output node. At capacity the fork is
// absorbed silently.
func (e *Engine) fireFork() {
	src, okSrc := e.mostActive(graph.LayerSemantic)
	dst, okDst := e.mostActive(graph.LayerOutput)
	if !okSrc || !okDst {
		return
	}
	e.g.Fork(0, graph.OpNeuron, graph.LayerOperation,
		[]graph.EdgeSpec{{Peer: src, Weight: e.cfg.SpliceWeight}},
		[]graph.EdgeSpec{{Peer: dst, Weight: e.cfg.SpliceWeight}})
}

// mostActive returns the highest-activation node of a layer above the
// candidate threshold, lowest index winning ties.
func (e *Engine) mostActive(layer graph.Layer) (graph.NodeID, bool) {
	nodes := e.g.Nodes()
	best, bestA, found := 0, e.cfg.ActiveThreshold, false
	for i := range nodes {
		if nodes[i].Layer != layer {
			continue
		}
		if nodes[i].A > bestA {
			best, bestA, found = i, nodes[i].A, true
		}
	}
	return best, found
}
