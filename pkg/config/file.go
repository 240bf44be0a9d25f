package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Simulation configures the in-process simulated medium.
type Simulation struct {
	// Nodes is the number of simulated nodes.
	Nodes int `yaml:"nodes"`

	// Duration limits the run; zero runs until interrupted.
	Duration time.Duration `yaml:"duration"`

	// TimeScale divides every radio interval, speeding up the simulation.
	TimeScale int `yaml:"time_scale"`
}

// DefaultSimulation returns the default simulation settings.
func DefaultSimulation() Simulation {
	return Simulation{Nodes: 8, TimeScale: 1}
}

// File is the top-level YAML configuration document.
type File struct {
	Coordinator Coordinator `yaml:"coordinator"`
	Node        Node        `yaml:"node"`
	Simulation  Simulation  `yaml:"simulation"`
}

// rawFile mirrors File with the broadcast block at top level, where it is
// shared by both roles.
type rawFile struct {
	Broadcast   *Broadcast  `yaml:"broadcast"`
	Coordinator Coordinator `yaml:"coordinator"`
	Node        Node        `yaml:"node"`
	Simulation  Simulation  `yaml:"simulation"`
}

// Default returns the default configuration document.
func Default() File {
	return File{
		Coordinator: DefaultCoordinator(),
		Node:        DefaultNode(),
		Simulation:  DefaultSimulation(),
	}
}

// Parse decodes a YAML document over the defaults. Keys absent from the
// document keep their default values.
func Parse(data []byte) (File, error) {
	def := Default()
	raw := rawFile{
		Coordinator: def.Coordinator,
		Node:        def.Node,
		Simulation:  def.Simulation,
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return File{}, fmt.Errorf("failed to parse config: %w", err)
	}

	f := File{
		Coordinator: raw.Coordinator,
		Node:        raw.Node,
		Simulation:  raw.Simulation,
	}
	if raw.Broadcast != nil {
		f.Coordinator.Broadcast = *raw.Broadcast
	}
	return f, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Validate checks every section of the document.
func (f File) Validate() error {
	if err := f.Coordinator.Validate(); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	if err := f.Node.Validate(); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if f.Simulation.Nodes < 0 {
		return fmt.Errorf("simulation: %w: negative node count", ErrInvalidConfig)
	}
	if f.Simulation.TimeScale < 1 {
		return fmt.Errorf("simulation: %w: time scale must be >= 1", ErrInvalidConfig)
	}
	return nil
}
