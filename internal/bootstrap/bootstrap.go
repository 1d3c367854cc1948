// Package bootstrap constructs the fixed initial topology once, before the
// tick loop begins. It is a pure construction function over the graph API:
// no internal state, trivially reproducible, testable in isolation.
package bootstrap

import (
	"fmt"

	"anima/internal/graph"
	"anima/internal/nn"
)

// Symbols is the fixed input alphabet, one semantic encoder node each.
// Order matters: node indices follow it, keeping builds reproducible.
const Symbols = "0123456789+-="

// OutputClasses is the number of discrete result classes the decoder fans
// out to (one per digit).
const OutputClasses = 10

// Parameter constants carried as memory nodes. Their activation is the
// constant itself, encoded in theta, so downstream wiring can read
// configuration the same way it reads any other signal.
var parameters = []struct {
	name  string
	value float64
}{
	{"eta", 0.01},
	{"gate_threshold", 0.5},
	{"splice_weight", 0.1},
	{"goal_drive", 0.9},
}

// Network names the handles into the bootstrap topology that the runtime
// needs: where to inject symbols and where to read decoded classes.
type Network struct {
	Params  map[string]graph.NodeID
	Goal    graph.NodeID
	Symbols map[byte]graph.NodeID
	Sum     graph.NodeID
	Compare graph.NodeID
	Decoder graph.NodeID
	Outputs []graph.NodeID
	Splicer graph.NodeID
	Forker  graph.NodeID
}

// Build wires the initial graph: parameter and goal nodes, one semantic
// encoder per symbol, the operation subgraphs, the result decoder fanout,
// and the two structural creator nodes. It never wires a semantic node
// straight to an output node; the decoder stage always sits in between,
// mirroring the splice discipline.
func Build(g *graph.Graph) (*Network, error) {
	net := &Network{
		Params:  make(map[string]graph.NodeID, len(parameters)),
		Symbols: make(map[byte]graph.NodeID, len(Symbols)),
	}

	for _, p := range parameters {
		id, err := g.CreateNode(nn.ThetaForConstant(p.value), graph.OpMemory, graph.LayerInternal)
		if err != nil {
			return nil, fmt.Errorf("parameter node %s: %w", p.name, err)
		}
		net.Params[p.name] = id
	}

	// The goal node idles high and provides a steady drive for the
	// structural creators.
	goal, err := g.CreateNode(-4, graph.OpNeuron, graph.LayerInternal)
	if err != nil {
		return nil, fmt.Errorf("goal node: %w", err)
	}
	net.Goal = goal

	// Symbol encoders sit quiet (theta 2) until a frame stimulates them.
	for i := 0; i < len(Symbols); i++ {
		sym := Symbols[i]
		id, err := g.CreateNode(2, graph.OpNeuron, graph.LayerSemantic)
		if err != nil {
			return nil, fmt.Errorf("symbol node %q: %w", sym, err)
		}
		net.Symbols[sym] = id
	}

	// Summation subgraph: an accumulator with theta 0 fed by unit-weight
	// edges, so two inputs at 1.0 push its soma to 2.0.
	sum, err := g.CreateNode(0, graph.OpNeuron, graph.LayerOperation)
	if err != nil {
		return nil, fmt.Errorf("sum node: %w", err)
	}
	net.Sum = sum
	for i := byte('0'); i <= '9'; i++ {
		if _, err := g.CreateEdge(net.Symbols[i], sum, 1.0); err != nil {
			return nil, fmt.Errorf("wire %q->sum: %w", i, err)
		}
	}

	// Comparison subgraph driven by the operator symbols.
	compare, err := g.CreateNode(1, graph.OpNeuron, graph.LayerOperation)
	if err != nil {
		return nil, fmt.Errorf("compare node: %w", err)
	}
	net.Compare = compare
	for _, sym := range []byte{'+', '-', '='} {
		if _, err := g.CreateEdge(net.Symbols[sym], compare, 1.0); err != nil {
			return nil, fmt.Errorf("wire %q->compare: %w", sym, err)
		}
	}

	// Result decoder: a single aggregation node fanning out to the output
	// classes with uniform learnable weights. Hebbian updates are expected
	// to reshape the fanout into a selective mapping over time.
	decoder, err := g.CreateNode(0.5, graph.OpNeuron, graph.LayerOperation)
	if err != nil {
		return nil, fmt.Errorf("decoder node: %w", err)
	}
	net.Decoder = decoder
	if _, err := g.CreateEdge(sum, decoder, 1.0); err != nil {
		return nil, fmt.Errorf("wire sum->decoder: %w", err)
	}
	if _, err := g.CreateEdge(compare, decoder, 1.0); err != nil {
		return nil, fmt.Errorf("wire compare->decoder: %w", err)
	}
	for class := 0; class < OutputClasses; class++ {
		out, err := g.CreateNode(1, graph.OpNeuron, graph.LayerOutput)
		if err != nil {
			return nil, fmt.Errorf("output class %d: %w", class, err)
		}
		net.Outputs = append(net.Outputs, out)
		if _, err := g.CreateEdge(decoder, out, 0.5); err != nil {
			return nil, fmt.Errorf("wire decoder->class %d: %w", class, err)
		}
	}

	// Structural creators, driven by the goal node.
	splicer, err := g.CreateNode(0, graph.OpSplice, graph.LayerInternal)
	if err != nil {
		return nil, fmt.Errorf("splicer node: %w", err)
	}
	net.Splicer = splicer
	if _, err := g.CreateEdge(goal, splicer, 0.5); err != nil {
		return nil, fmt.Errorf("wire goal->splicer: %w", err)
	}

	forker, err := g.CreateNode(2, graph.OpFork, graph.LayerInternal)
	if err != nil {
		return nil, fmt.Errorf("forker node: %w", err)
	}
	net.Forker = forker
	if _, err := g.CreateEdge(goal, forker, 0.5); err != nil {
		return nil, fmt.Errorf("wire goal->forker: %w", err)
	}

	return net, nil
}

// MinNodeCapacity is the smallest node arena Build fits in.
func MinNodeCapacity() int {
	return len(parameters) + 1 + len(Symbols) + 3 + OutputClasses + 2
}

// SymbolFor resolves a payload byte to its encoder node.
func (n *Network) SymbolFor(b byte) (graph.NodeID, bool) {
	id, ok := n.Symbols[b]
	return id, ok
}

// StrongestOutput returns the output class with the highest activation and
// that activation, lowest class winning ties.
func (n *Network) StrongestOutput(g *graph.Graph) (int, float64) {
	best, bestA := 0, -1.0
	for class, id := range n.Outputs {
		if !g.ValidNode(id) {
			continue
		}
		if a := g.Node(id).A; a > bestA {
			best, bestA = class, a
		}
	}
	return best, bestA
}
