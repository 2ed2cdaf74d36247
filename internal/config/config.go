// Package config loads the CLI's TOML configuration file: the knowledge-
// graph backend address and credentials, the solver timeout, and batch
// settings (worker count, staging and output directories).
// It reuses the teacher's TOML library (toml.go's manifest/lock
// (de)serialization), generalized from a project manifest to a small
// flat settings file.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// KG holds the knowledge-graph backend connection settings.
type KG struct {
	BoltAddress string `toml:"bolt_address"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

// Solver holds resolver/SAT tuning knobs.
type Solver struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Batch holds batch-CLI-mode settings.
type Batch struct {
	Workers    int    `toml:"workers"`
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
}

// Config is the full, decoded pyenvinfer.toml.
type Config struct {
	KG     KG     `toml:"kg"`
	Solver Solver `toml:"solver"`
	Batch  Batch  `toml:"batch"`
}

// Default returns the built-in configuration used when no config file is
// given, matching the values a single-process local run needs.
func Default() *Config {
	return &Config{
		KG: KG{BoltAddress: "bolt://127.0.0.1:7687"},
		Solver: Solver{
			TimeoutSeconds: 30,
		},
		Batch: Batch{
			Workers:    4,
			StagingDir: ".pyenvinfer-stage",
			OutputDir:  ".",
		},
	}
}

// SolverTimeout is Solver.TimeoutSeconds as a time.Duration.
func (c *Config) SolverTimeout() time.Duration {
	return time.Duration(c.Solver.TimeoutSeconds) * time.Second
}

// Load reads and decodes a TOML config file at path, applying it on top
// of Default() so an omitted table keeps its default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return c, nil
}
