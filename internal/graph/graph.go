// Package graph holds the arena-backed node/edge store that every other
// component mutates through. Nodes and edges are addressed by stable integer
// indices; nothing is ever physically removed. A node retires by losing all
// incident edges, not by deallocation.
package graph

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExceeded = errors.New("graph capacity exceeded")
	ErrInvalidIndex     = errors.New("invalid node index")
	ErrForbiddenLink    = errors.New("forbidden layer link")
)

// Op tags the activation behavior of a node. Only OpSplice and OpFork are
// treated specially by the engine; every other tag runs the uniform sigmoid
// rule and any semantic difference is carried by wiring and weights alone.
type Op uint8

const (
	OpNeuron Op = iota
	OpSplice
	OpFork
	OpMemory
)

func (op Op) String() string {
	switch op {
	case OpNeuron:
		return "neuron"
	case OpSplice:
		return "splice"
	case OpFork:
		return "fork"
	case OpMemory:
		return "memory"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Layer places a node in the splice discipline. Splice may wire
// semantic->operation and operation->output; semantic->output never.
type Layer uint8

const (
	LayerInternal Layer = iota
	LayerSemantic
	LayerOperation
	LayerOutput
)

func (l Layer) String() string {
	switch l {
	case LayerInternal:
		return "internal"
	case LayerSemantic:
		return "semantic"
	case LayerOperation:
		return "operation"
	case LayerOutput:
		return "output"
	default:
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
}

type NodeID = int

type EdgeID = int

type Node struct {
	A     float64
	APrev float64
	Theta float64
	Op    Op
	Layer Layer
}

type Edge struct {
	Src    NodeID
	Dst    NodeID
	Weight float64
}

// EdgeSpec names one endpoint and a weight for Fork's minimal wiring.
type EdgeSpec struct {
	Peer   NodeID
	Weight float64
}

// Graph is the sole owner of graph state. It is single-threaded by contract:
// only the engine goroutine touches it after bootstrap.
type Graph struct {
	nodes []Node
	edges []Edge

	nodeCap int
	edgeCap int
	tick    uint64

	// (src,dst) -> edge index, for duplicate suppression.
	edgeIndex map[[2]NodeID]EdgeID
}

func New(nodeCap, edgeCap int) (*Graph, error) {
	if nodeCap <= 0 || edgeCap <= 0 {
		return nil, fmt.Errorf("capacities must be > 0: nodes=%d edges=%d", nodeCap, edgeCap)
	}
	return &Graph{
		nodes:     make([]Node, 0, nodeCap),
		edges:     make([]Edge, 0, edgeCap),
		nodeCap:   nodeCap,
		edgeCap:   edgeCap,
		edgeIndex: make(map[[2]NodeID]EdgeID),
	}, nil
}

func (g *Graph) CreateNode(theta float64, op Op, layer Layer) (NodeID, error) {
	if len(g.nodes) >= g.nodeCap {
		return 0, ErrCapacityExceeded
	}
	g.nodes = append(g.nodes, Node{Theta: theta, Op: op, Layer: layer})
	return len(g.nodes) - 1, nil
}

// CreateEdge adds src->dst with the given weight. Creating an edge that
// already exists is a no-op returning the existing edge index.
func (g *Graph) CreateEdge(src, dst NodeID, weight float64) (EdgeID, error) {
	if !g.ValidNode(src) || !g.ValidNode(dst) {
		return 0, fmt.Errorf("%w: src=%d dst=%d count=%d", ErrInvalidIndex, src, dst, len(g.nodes))
	}
	key := [2]NodeID{src, dst}
	if id, ok := g.edgeIndex[key]; ok {
		return id, nil
	}
	if len(g.edges) >= g.edgeCap {
		return 0, ErrCapacityExceeded
	}
	g.edges = append(g.edges, Edge{Src: src, Dst: dst, Weight: weight})
	id := len(g.edges) - 1
	g.edgeIndex[key] = id
	return id, nil
}

func (g *Graph) ValidNode(id NodeID) bool {
	return id >= 0 && id < len(g.nodes)
}

func (g *Graph) HasEdge(src, dst NodeID) bool {
	_, ok := g.edgeIndex[[2]NodeID{src, dst}]
	return ok
}

func (g *Graph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

// Edges exposes the live edge array in creation order. Propagation and
// learning iterate it directly so their visit order is stable across runs.
func (g *Graph) Edges() []Edge {
	return g.edges
}

func (g *Graph) Edge(id EdgeID) *Edge {
	return &g.edges[id]
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) NodeCapacity() int { return g.nodeCap }

func (g *Graph) EdgeCapacity() int { return g.edgeCap }

func (g *Graph) Tick() uint64 { return g.tick }

// AdvanceTick increments the global tick counter and returns the new value.
func (g *Graph) AdvanceTick() uint64 {
	g.tick++
	return g.tick
}

func (g *Graph) SetTick(tick uint64) { g.tick = tick }

// Nodes exposes the live node array. Callers must not append to it.
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// RestoreNode overwrites node state at id, used when loading a snapshot.
func (g *Graph) RestoreNode(id NodeID, n Node) error {
	if !g.ValidNode(id) {
		return fmt.Errorf("%w: node=%d count=%d", ErrInvalidIndex, id, len(g.nodes))
	}
	g.nodes[id] = n
	return nil
}
