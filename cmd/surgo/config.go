package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML file surgo reads for connection settings. The schema
// path inside it can be overridden with --schema.
type Config struct {
	URL       string        `yaml:"url"`
	Namespace string        `yaml:"namespace"`
	Database  string        `yaml:"database"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Timeout   time.Duration `yaml:"timeout"`
	Schema    string        `yaml:"schema"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		URL:     "ws://localhost:8000/rpc",
		Timeout: 30 * time.Second,
		Schema:  "schema.yaml",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Namespace == "" || cfg.Database == "" {
		return nil, fmt.Errorf("config %s: namespace and database are required", path)
	}
	return cfg, nil
}

// Environment variables override file values so credentials can stay out of
// the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("SURGO_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("SURGO_USER"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("SURGO_PASS"); v != "" {
		c.Password = v
	}
}
