package timing

import (
	"encoding/json"
	"fmt"
	"os"
)

// Geometry describes one cache.
type Geometry struct {
	// Size in bytes.
	Size int `json:"size"`
	// Associativity is the number of ways.
	Associativity int `json:"associativity"`
	// BlockSize is the line size in bytes.
	BlockSize int `json:"block_size"`
}

// Config holds the modeled cache geometries.
type Config struct {
	L1I Geometry `json:"l1i"`
	L1D Geometry `json:"l1d"`
}

// DefaultConfig models the split L1 of a generic contemporary ARM64
// application core: 64KB 4-way instruction and data caches with 64B
// lines.
func DefaultConfig() Config {
	return Config{
		L1I: Geometry{Size: 64 * 1024, Associativity: 4, BlockSize: 64},
		L1D: Geometry{Size: 64 * 1024, Associativity: 4, BlockSize: 64},
	}
}

// LoadConfig reads a configuration from a JSON file. Omitted fields
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read timing config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse timing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	for _, g := range []Geometry{c.L1I, c.L1D} {
		if g.Size <= 0 || g.Associativity <= 0 || g.BlockSize <= 0 {
			return fmt.Errorf("cache geometry fields must be positive")
		}
		if g.Size%(g.Associativity*g.BlockSize) != 0 {
			return fmt.Errorf("cache size %d is not divisible into %d-way sets of %dB lines",
				g.Size, g.Associativity, g.BlockSize)
		}
	}
	return nil
}
