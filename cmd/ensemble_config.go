package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ensemble-sim/ensemble-sim/comms"
)

// EnsembleConfig describes the negotiated record schema and the sampling
// bounds for the demo generator.
type EnsembleConfig struct {
	Fields []string  `yaml:"fields"`
	Lower  []float64 `yaml:"lower"`
	Upper  []float64 `yaml:"upper"`
}

// DefaultEnsembleConfig covers the built-in six-hump camel objective.
func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		Fields: []string{"x0", "x1"},
		Lower:  []float64{-3, -2},
		Upper:  []float64{3, 2},
	}
}

// LoadEnsembleConfig reads and validates a YAML ensemble config.
func LoadEnsembleConfig(path string) (EnsembleConfig, error) {
	var cfg EnsembleConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the schema and bounds for consistency.
func (c EnsembleConfig) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("config: fields must name at least one schema field")
	}
	if len(c.Lower) != len(c.Fields) || len(c.Upper) != len(c.Fields) {
		return fmt.Errorf("config: lower/upper bounds must match %d fields", len(c.Fields))
	}
	for i := range c.Lower {
		if c.Lower[i] > c.Upper[i] {
			return fmt.Errorf("config: field %q: lower bound %v above upper bound %v",
				c.Fields[i], c.Lower[i], c.Upper[i])
		}
	}
	return nil
}

// Schema returns the ordered record schema.
func (c EnsembleConfig) Schema() comms.Schema {
	return comms.Schema(c.Fields)
}
