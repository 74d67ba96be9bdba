// Package config loads the TOML configuration file, regenerating it with
// hardcoded defaults on disk whenever it is missing or fails to parse.
// Grounded on original_source's config.rs three-tier fallback and on the
// teacher pack's BurntSushi/toml usage.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds the dispatcher/sub-server network settings.
type ServerConfig struct {
	TCPPort   uint16 `toml:"tcp_port"`
	UDPPort   uint16 `toml:"udp_port"`
	Grow      bool   `toml:"grow"`
	GrowLimit int    `toml:"grow_limit"`
	// DebugPort is where /healthz and /metrics are served when Debug is
	// set; it has no original_source analogue.
	DebugPort uint16 `toml:"debug_port"`
}

// Config is the root of config.toml.
type Config struct {
	Server ServerConfig `toml:"server"`
	GUI    bool         `toml:"gui"`
	Debug  bool         `toml:"debug"`
}

// Default returns the hardcoded defaults written to disk whenever the
// config file is missing or unparsable.
func Default() Config {
	return Config{
		Server: ServerConfig{
			TCPPort:   7606,
			UDPPort:   8606,
			Grow:      false,
			GrowLimit: 32,
			DebugPort: 9606,
		},
		GUI:   false,
		Debug: true,
	}
}

// Load reads path, falling back to defaults (and rewriting path with
// them) when the file is missing or fails to parse. A write failure
// during regeneration is not fatal; the in-memory defaults are still
// returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := Default()
		_ = writeDefault(path, cfg)
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		cfg = Default()
		_ = writeDefault(path, cfg)
		return cfg, nil
	}

	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
