package storage

import (
	"fmt"

	"anima/internal/graph"
	"anima/internal/model"
)

// SnapshotGraph copies the full graph state into a persistable record.
func SnapshotGraph(g *graph.Graph, id string) model.GraphSnapshot {
	snapshot := model.GraphSnapshot{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
		ID:           id,
		Tick:         g.Tick(),
		NodeCapacity: g.NodeCapacity(),
		EdgeCapacity: g.EdgeCapacity(),
	}
	for _, n := range g.Nodes() {
		snapshot.Nodes = append(snapshot.Nodes, model.NodeState{
			A: n.A, APrev: n.APrev, Theta: n.Theta,
			Op: uint8(n.Op), Layer: uint8(n.Layer),
		})
	}
	for _, e := range g.Edges() {
		snapshot.Edges = append(snapshot.Edges, model.EdgeState{
			Src: e.Src, Dst: e.Dst, Weight: e.Weight,
		})
	}
	return snapshot
}

// RestoreGraph rebuilds a graph from a snapshot, preserving node and edge
// creation order so propagation and learning behave identically after a
// restart.
func RestoreGraph(snapshot model.GraphSnapshot) (*graph.Graph, error) {
	g, err := graph.New(snapshot.NodeCapacity, snapshot.EdgeCapacity)
	if err != nil {
		return nil, err
	}
	for i, n := range snapshot.Nodes {
		id, err := g.CreateNode(n.Theta, graph.Op(n.Op), graph.Layer(n.Layer))
		if err != nil {
			return nil, fmt.Errorf("restore node %d: %w", i, err)
		}
		if err := g.RestoreNode(id, graph.Node{
			A: n.A, APrev: n.APrev, Theta: n.Theta,
			Op: graph.Op(n.Op), Layer: graph.Layer(n.Layer),
		}); err != nil {
			return nil, err
		}
	}
	for i, e := range snapshot.Edges {
		if _, err := g.CreateEdge(e.Src, e.Dst, e.Weight); err != nil {
			return nil, fmt.Errorf("restore edge %d: %w", i, err)
		}
	}
	g.SetTick(snapshot.Tick)
	return g, nil
}
