package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one bench run: worker goroutines commit payload*10 for
// payloads i*2, and batches are checked for submission order.
type Scenario struct {
	Workers   int           `yaml:"workers"`
	BatchSize int           `yaml:"batch_size"`
	Batches   int           `yaml:"batches"`
	WorkDelay time.Duration `yaml:"work_delay"`
	// Capacity bounds the jobs queue; 0 keeps it unbounded.
	Capacity int `yaml:"capacity"`
}

type file struct {
	Scenario Scenario `yaml:"scenario"`
}

//go:embed default.yml
var defaultRaw []byte

var errInvalidScenario = errors.New("invalid scenario")

// loadScenario reads the scenario at path, or the embedded default when path is empty.
func loadScenario(path string) (Scenario, error) {
	raw := defaultRaw
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Scenario{}, fmt.Errorf("read scenario: %w", err)
		}
		raw = b
	}
	return parseScenario(raw)
}

func parseScenario(raw []byte) (Scenario, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	s := f.Scenario
	switch {
	case s.Workers <= 0:
		return Scenario{}, fmt.Errorf("%w: workers must be > 0, got %d", errInvalidScenario, s.Workers)
	case s.BatchSize <= 0:
		return Scenario{}, fmt.Errorf("%w: batch_size must be > 0, got %d", errInvalidScenario, s.BatchSize)
	case s.Batches <= 0:
		return Scenario{}, fmt.Errorf("%w: batches must be > 0, got %d", errInvalidScenario, s.Batches)
	case s.WorkDelay < 0:
		return Scenario{}, fmt.Errorf("%w: work_delay must not be negative", errInvalidScenario)
	case s.Capacity < 0:
		return Scenario{}, fmt.Errorf("%w: capacity must not be negative", errInvalidScenario)
	}
	return s, nil
}
