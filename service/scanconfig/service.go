// Package scanconfig loads the optional waf_scan_config.json file that seeds
// profile and region lists for the config-driven scan mode.
package scanconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultPath is the conventional scan config location in the working directory.
const DefaultPath = "waf_scan_config.json"

// Config mirrors the recognized keys of waf_scan_config.json.
type Config struct {
	Profiles  []string `json:"profiles"`
	Regions   Regions  `json:"regions"`
	OutputDir string   `json:"output_dir,omitempty"`
}

// Regions groups the region lists. Only the common list is consulted today;
// the nesting keeps the file compatible with per-account overrides later.
type Regions struct {
	Common []string `json:"common"`
}

// Service is the interface for scan config loading.
type Service interface {
	Load(path string) (*Config, error)
	Exists(path string) bool
}

type service struct{}

// NewService creates a new scan config service.
func NewService() Service {
	return &service{}
}

func (s *service) Exists(path string) bool {
	if path == "" {
		path = DefaultPath
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *service) Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scan config %s: %w", path, err)
	}

	if len(cfg.Profiles) == 0 {
		return nil, fmt.Errorf("scan config %s has no profiles configured", path)
	}

	return &cfg, nil
}

// ProfileCount returns the number of configured profiles.
func (c *Config) ProfileCount() int {
	return len(c.Profiles)
}

// RegionCount returns the number of configured common regions.
func (c *Config) RegionCount() int {
	return len(c.Regions.Common)
}
