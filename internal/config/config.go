// Package config loads the daemon configuration. A missing file is not an
// error: every field has a default tuned for a small edge deployment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"anima/internal/bridge"
	"anima/internal/engine"
	"anima/internal/nn"
	"anima/internal/storage"
)

type Config struct {
	RunID          string         `yaml:"run_id"`
	TickIntervalMS int            `yaml:"tick_interval_ms"`
	SnapshotEvery  uint64         `yaml:"snapshot_every"`
	StatsHistory   int            `yaml:"stats_history"`
	Graph          GraphConfig    `yaml:"graph"`
	Learning       LearningConfig `yaml:"learning"`
	Plasticity     GateConfig     `yaml:"plasticity"`
	Bridge         BridgeConfig   `yaml:"bridge"`
	Store          StoreConfig    `yaml:"store"`
}

type GraphConfig struct {
	NodeCapacity int `yaml:"node_capacity"`
	EdgeCapacity int `yaml:"edge_capacity"`
}

type LearningConfig struct {
	Eta   float64 `yaml:"eta"`
	WMin  float64 `yaml:"w_min"`
	WMax  float64 `yaml:"w_max"`
	Decay float64 `yaml:"decay"`
}

type GateConfig struct {
	GatePeriod      uint64  `yaml:"gate_period"`
	GateThreshold   float64 `yaml:"gate_threshold"`
	ActiveThreshold float64 `yaml:"active_threshold"`
	SpliceWeight    float64 `yaml:"splice_weight"`
}

type BridgeConfig struct {
	Dir      string `yaml:"dir"`
	Inbound  string `yaml:"inbound"`
	Outbound string `yaml:"outbound"`
	Capacity uint32 `yaml:"capacity"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		RunID:          "anima",
		TickIntervalMS: 50,
		SnapshotEvery:  1000,
		StatsHistory:   20000,
		Graph:          GraphConfig{NodeCapacity: 4096, EdgeCapacity: 65536},
		Learning:       LearningConfig{Eta: 0.01, WMin: 0, WMax: 2},
		Plasticity:     GateConfig{GatePeriod: 8, GateThreshold: 0.5, ActiveThreshold: 0.5, SpliceWeight: 0.1},
		Bridge: BridgeConfig{
			Dir:      bridge.DefaultDir,
			Inbound:  bridge.InboundName,
			Outbound: bridge.OutboundName,
			Capacity: 4080,
		},
		Store: StoreConfig{Kind: storage.KindMemory, Path: "anima.db"},
	}
}

// Load reads path when it exists, otherwise returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.RunID == "" {
		c.RunID = def.RunID
	}
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = def.TickIntervalMS
	}
	if c.StatsHistory <= 0 {
		c.StatsHistory = def.StatsHistory
	}
	if c.Graph.NodeCapacity <= 0 {
		c.Graph.NodeCapacity = def.Graph.NodeCapacity
	}
	if c.Graph.EdgeCapacity <= 0 {
		c.Graph.EdgeCapacity = def.Graph.EdgeCapacity
	}
	if c.Learning.Eta == 0 {
		c.Learning.Eta = def.Learning.Eta
	}
	if c.Learning.WMax == 0 {
		c.Learning.WMax = def.Learning.WMax
	}
	if c.Plasticity.GatePeriod == 0 {
		c.Plasticity.GatePeriod = def.Plasticity.GatePeriod
	}
	if c.Plasticity.GateThreshold == 0 {
		c.Plasticity.GateThreshold = def.Plasticity.GateThreshold
	}
	if c.Plasticity.ActiveThreshold == 0 {
		c.Plasticity.ActiveThreshold = def.Plasticity.ActiveThreshold
	}
	if c.Plasticity.SpliceWeight == 0 {
		c.Plasticity.SpliceWeight = def.Plasticity.SpliceWeight
	}
	if c.Bridge.Dir == "" {
		c.Bridge.Dir = def.Bridge.Dir
	}
	if c.Bridge.Inbound == "" {
		c.Bridge.Inbound = def.Bridge.Inbound
	}
	if c.Bridge.Outbound == "" {
		c.Bridge.Outbound = def.Bridge.Outbound
	}
	if c.Bridge.Capacity == 0 {
		c.Bridge.Capacity = def.Bridge.Capacity
	}
	if c.Store.Kind == "" {
		c.Store.Kind = def.Store.Kind
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
}

func (c Config) Validate() error {
	if c.Learning.WMax < c.Learning.WMin {
		return fmt.Errorf("learning bounds inverted: [%v, %v]", c.Learning.WMin, c.Learning.WMax)
	}
	if c.Learning.Eta < 0 {
		return fmt.Errorf("eta must be >= 0: %v", c.Learning.Eta)
	}
	if c.Bridge.Inbound == c.Bridge.Outbound {
		return fmt.Errorf("inbound and outbound regions must differ: %s", c.Bridge.Inbound)
	}
	switch c.Store.Kind {
	case storage.KindMemory, storage.KindSQLite:
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Kind)
	}
	return nil
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// EngineConfig maps the file sections onto the engine's tick rules.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		GatePeriod:      c.Plasticity.GatePeriod,
		GateThreshold:   c.Plasticity.GateThreshold,
		ActiveThreshold: c.Plasticity.ActiveThreshold,
		SpliceWeight:    c.Plasticity.SpliceWeight,
		Hebbian: nn.HebbianConfig{
			Eta:   c.Learning.Eta,
			WMin:  c.Learning.WMin,
			WMax:  c.Learning.WMax,
			Decay: c.Learning.Decay,
		},
	}
}

// StoreOptions maps the store section onto the storage factory.
func (c Config) StoreOptions() storage.Options {
	return storage.Options{Kind: c.Store.Kind, Path: c.Store.Path}
}

// InboundPath and OutboundPath resolve the shared-memory region locations.
func (c Config) InboundPath() string {
	return bridge.RegionPath(c.Bridge.Dir, c.Bridge.Inbound)
}

func (c Config) OutboundPath() string {
	return bridge.RegionPath(c.Bridge.Dir, c.Bridge.Outbound)
}
