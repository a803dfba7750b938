package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// HarvesterConfig describes which report sources the harvester polls
// and how results are batched before persistence.
type HarvesterConfig struct {
	Sources              []SourceConfig `yaml:"sources"`
	BatchSize            int            `yaml:"batch_size"`
	FlushIntervalSeconds int            `yaml:"flush_interval_seconds"`
}

// FlushInterval returns the flush interval as a duration.
func (c *HarvesterConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// SourceConfig is one HTTP report source.
type SourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads and validates the harvester configuration from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func Load(path string) (*HarvesterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg HarvesterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *HarvesterConfig) validate() error {
	if len(c.Sources) == 0 {
		return errors.New("config must declare at least one source")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d is missing a name", i)
		}
		if src.URL == "" {
			return fmt.Errorf("source %q is missing a url", src.Name)
		}
	}
	return nil
}

func (c *HarvesterConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushIntervalSeconds <= 0 {
		c.FlushIntervalSeconds = 30
	}
}
