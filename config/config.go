// Package config loads and validates the on-disk simulation configuration
// consumed by cmd/pdessim to construct an engine.Engine and a
// topology.Topology. Serialized with gopkg.in/yaml.v3, the library
// github.com/iti/mrnes uses throughout desc-topo.go/trace.go for every
// on-disk structure.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level simulation configuration document.
type Config struct {
	MinTimeJumpNs int64  `yaml:"minTimeJumpNs"`
	EndTimeNs     int64  `yaml:"endTimeNs"`
	NWorkers      int    `yaml:"nWorkers"`
	TopologyPath  string `yaml:"topologyPath"`
	Seed          uint64 `yaml:"seed"`
}

// LoadConfig reads and parses a Config from path. It does not validate;
// callers should call Validate before using the result.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}

// Validate enforces the constraints spec.md §6 places on engine
// parameters and is the only place ConfigInvalid is raised.
func (c Config) Validate() error {
	if c.MinTimeJumpNs <= 0 {
		return fmt.Errorf("config: minTimeJumpNs must be > 0, got %d", c.MinTimeJumpNs)
	}
	if c.EndTimeNs <= 0 {
		return fmt.Errorf("config: endTimeNs must be > 0, got %d", c.EndTimeNs)
	}
	if c.NWorkers < 0 {
		return fmt.Errorf("config: nWorkers must be >= 0, got %d", c.NWorkers)
	}
	if c.TopologyPath == "" {
		return fmt.Errorf("config: topologyPath must be set")
	}
	return nil
}
