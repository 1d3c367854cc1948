package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GraphSnapshot is a full copy of graph state at a tick boundary, the unit
// of persistence and restart.
type GraphSnapshot struct {
	VersionedRecord
	ID           string      `json:"id"`
	Tick         uint64      `json:"tick"`
	NodeCapacity int         `json:"node_capacity"`
	EdgeCapacity int         `json:"edge_capacity"`
	Nodes        []NodeState `json:"nodes"`
	Edges        []EdgeState `json:"edges"`
}

type NodeState struct {
	A     float64 `json:"a"`
	APrev float64 `json:"a_prev"`
	Theta float64 `json:"theta"`
	Op    uint8   `json:"op"`
	Layer uint8   `json:"layer"`
}

type EdgeState struct {
	Src    int     `json:"src"`
	Dst    int     `json:"dst"`
	Weight float64 `json:"weight"`
}

// TickStats is one row of per-tick run telemetry.
type TickStats struct {
	Tick           uint64  `json:"tick"`
	Nodes          int     `json:"nodes"`
	Edges          int     `json:"edges"`
	FramesIn       uint64  `json:"frames_in"`
	FramesOut      uint64  `json:"frames_out"`
	MeanActivation float64 `json:"mean_activation"`
}
