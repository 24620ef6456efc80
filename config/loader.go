package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPoolBytes is the emulated PSRAM capacity (8 MiB, ESP32-S3 class).
const DefaultPoolBytes = 8 << 20

// Settings holds host-side parameters of the emulated board.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Settings struct {
	PoolBytes   int    `json:"pool_bytes" yaml:"pool_bytes" toml:"pool_bytes"`
	CycleDelay  string `json:"cycle_delay" yaml:"cycle_delay" toml:"cycle_delay"`
	MaxCycles   int    `json:"max_cycles" yaml:"max_cycles" toml:"max_cycles"`
	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFile     string `json:"log_file" yaml:"log_file" toml:"log_file"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
}

// Load reads a settings file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Settings, error) {
	var s Settings
	if path == "" {
		return s, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return s, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if _, err := s.Delay(); err != nil {
		return s, err
	}
	return s, nil
}

// WithDefaults returns a copy with unset fields filled in.
func (s Settings) WithDefaults() Settings {
	if s.PoolBytes <= 0 {
		s.PoolBytes = DefaultPoolBytes
	}
	if s.CycleDelay == "" {
		s.CycleDelay = CycleDelay.String()
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	return s
}

// Delay parses CycleDelay, falling back to the build-time default when unset.
func (s Settings) Delay() (time.Duration, error) {
	if s.CycleDelay == "" {
		return CycleDelay, nil
	}
	d, err := time.ParseDuration(s.CycleDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid cycle_delay %q: %w", s.CycleDelay, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid cycle_delay %q: must be positive", s.CycleDelay)
	}
	return d, nil
}
