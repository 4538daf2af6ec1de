// Package config loads the proxy's startup configuration: listen and
// dial addresses, which pipeline stages to insert, and where their
// supporting data lives on disk. Grounded on
// original_source/src/util/config.rs's CinchConfig, renamed to the
// option names spec.md §6 documents.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the full set of options read from a JSON file (or, when
// none is given, the values Default returns).
type Config struct {
	ListenAddress string `json:"listen_address"`
	HostAddress   string `json:"host_address"`

	Log       bool   `json:"log"`
	LogPrefix string `json:"log_prefix"`

	ChecksActive bool   `json:"checks_active"`
	PatchActive  bool   `json:"patch_active"`
	Patches      string `json:"patches"`

	ThirdPartyFolder string `json:"third_party_folder"`
}

// Default returns the configuration used when no config file is given:
// listen locally, no host address (must be supplied), logging and
// checks off.
func Default() Config {
	return Config{
		ListenAddress: "0.0.0.0:4000",
		LogPrefix:     "logs/trace",
	}
}

// Load reads and decodes the JSON config file at path. A missing field
// keeps the value Default gives it.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if cfg.ListenAddress == "" {
		return Config{}, fmt.Errorf("config: %s: listen_address is required", path)
	}
	if cfg.HostAddress == "" {
		return Config{}, fmt.Errorf("config: %s: host_address is required", path)
	}
	return cfg, nil
}
