package graph

import "fmt"

// allowedSplice encodes the layering discipline: a spliced edge must route
// through the operation layer. Direct semantic->output wiring is rejected
// unconditionally, independent of how strongly the endpoints correlate.
func allowedSplice(src, dst Layer) bool {
	switch {
	case src == LayerSemantic && dst == LayerOperation:
		return true
	case src == LayerOperation && dst == LayerOutput:
		return true
	default:
		return false
	}
}

// Splice creates src->dst under the layering discipline. Duplicate pairs are
// suppressed by CreateEdge's no-op contract.
func (g *Graph) Splice(src, dst NodeID, weight float64) (EdgeID, error) {
	if !g.ValidNode(src) || !g.ValidNode(dst) {
		return 0, fmt.Errorf("%w: src=%d dst=%d count=%d", ErrInvalidIndex, src, dst, len(g.nodes))
	}
	srcLayer := g.nodes[src].Layer
	dstLayer := g.nodes[dst].Layer
	if !allowedSplice(srcLayer, dstLayer) {
		return 0, fmt.Errorf("%w: %s->%s", ErrForbiddenLink, srcLayer, dstLayer)
	}
	return g.CreateEdge(src, dst, weight)
}

// Fork allocates a new node and wires the caller-supplied minimal connection
// set. At node capacity it is a silent no-op: growth pressure beyond the
// arena bound is absorbed, never escalated. Edge wiring to an invalid peer is
// skipped; edge capacity exhaustion mid-wiring leaves the edges created so
// far in place.
func (g *Graph) Fork(theta float64, op Op, layer Layer, inbound, outbound []EdgeSpec) (NodeID, bool) {
	id, err := g.CreateNode(theta, op, layer)
	if err != nil {
		return 0, false
	}
	for _, spec := range inbound {
		if !g.ValidNode(spec.Peer) {
			continue
		}
		if _, err := g.CreateEdge(spec.Peer, id, spec.Weight); err != nil {
			break
		}
	}
	for _, spec := range outbound {
		if !g.ValidNode(spec.Peer) {
			continue
		}
		if _, err := g.CreateEdge(id, spec.Peer, spec.Weight); err != nil {
			break
		}
	}
	return id, true
}
