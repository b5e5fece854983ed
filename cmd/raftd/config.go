package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a node's configuration file (spec §6):
// this node's identity and dial address, the fixed cluster roster, where
// to persist state, and whether to run with debug-scaled timers.
type Config struct {
	ID      string       `yaml:"id"`
	Listen  string       `yaml:"listen"`
	Cluster []PeerConfig `yaml:"cluster"`
	Storage StorageConfig `yaml:"storage"`
	Debug   bool         `yaml:"debug"`

	ElectionBaseMillis  int `yaml:"election_base_ms"`
	HeartbeatBaseMillis int `yaml:"heartbeat_base_ms"`
	BatchSize           int `yaml:"batch_size"`
}

type PeerConfig struct {
	ID       string `yaml:"id"`
	Endpoint string `yaml:"endpoint"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("raftd: read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("raftd: parse config %s: %w", path, err)
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("raftd: config %s: id is required", path)
	}
	if cfg.Listen == "" {
		return nil, fmt.Errorf("raftd: config %s: listen is required", path)
	}
	return &cfg, nil
}

func (c *Config) electionBase() time.Duration {
	if c.ElectionBaseMillis <= 0 {
		return 0
	}
	return time.Duration(c.ElectionBaseMillis) * time.Millisecond
}

func (c *Config) heartbeatBase() time.Duration {
	if c.HeartbeatBaseMillis <= 0 {
		return 0
	}
	return time.Duration(c.HeartbeatBaseMillis) * time.Millisecond
}
