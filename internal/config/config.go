// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Datastore DatastoreConfig `yaml:"datastore"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Units     []UnitConfig    `yaml:"units"`
	Mirrors   []MirrorConfig  `yaml:"mirrors"`
	Shell     ShellConfig     `yaml:"shell"`
}

// ---- DATASTORE ----

type DatastoreConfig struct {
	QueueDepth        int    `yaml:"queue_depth"`
	ResponseTimeoutMs int    `yaml:"response_timeout_ms"`
	NVMPath           string `yaml:"nvm_path"` // empty disables persistence
	LogLevel          string `yaml:"log_level"`

	// Subscriptions reserved per type name for external users. Mirrors and
	// NVM persistence add their own on top.
	MaxSubscriptions map[string]int `yaml:"max_subscriptions"`
}

// ---- CATALOG ----

// CatalogConfig lists the datapoints of each type in table order.
type CatalogConfig struct {
	Float      []PointConfig `yaml:"float"`
	Uint       []PointConfig `yaml:"uint"`
	Int        []PointConfig `yaml:"int"`
	MultiState []PointConfig `yaml:"multi-state"`
	Button     []PointConfig `yaml:"button"`
}

type PointConfig struct {
	Name    string  `yaml:"name"`
	Default float64 `yaml:"default"`
	NVM     bool    `yaml:"nvm"`
}

// ---- UNIT (field input) ----

type UnitConfig struct {
	ID     string       `yaml:"id"`
	Source SourceConfig `yaml:"source"`
	Reads  []ReadConfig `yaml:"reads"`
	Poll   PollConfig   `yaml:"poll"`
}

type SourceConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// Device status datapoints (optional, opt-in). Names the first of
	// three consecutive uint datapoints: health, last error, seconds in error.
	StatusPoint string `yaml:"status_point"`
}

// ReadConfig maps one Modbus read onto a datapoint range starting at First.
type ReadConfig struct {
	FC       uint8  `yaml:"fc"`
	Address  uint16 `yaml:"address"`
	Quantity uint16 `yaml:"quantity"`
	Type     string `yaml:"type"`
	First    string `yaml:"first"`
}

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	StaleMs    int `yaml:"stale_ms"` // 0 disables stale detection
}

// ---- MIRROR (field output) ----

// MirrorConfig forwards a datapoint range to a Modbus target on change.
type MirrorConfig struct {
	ID        string `yaml:"id"`
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	Type  string `yaml:"type"`
	First string `yaml:"first"`
	Count int    `yaml:"count"`

	FC      uint8  `yaml:"fc"` // 1 coils, 3 holding registers; 0 picks by type
	Address uint16 `yaml:"address"`
}

// ---- SHELL ----

type ShellConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prompt  string `yaml:"prompt"`
}

// Load reads a YAML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}
