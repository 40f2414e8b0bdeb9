// internal/config/config.go
//
// This package handles scenario configuration and the scenario directory layout.
// Every scenario gridrun touches gets inputs/, results/ and logs/ folders plus a
// gridrun.yaml in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the scenario-level configuration file.
	ConfigFileName = "gridrun.yaml"

	InputsDirName  = "inputs"
	ResultsDirName = "results"
	LogsDirName    = "logs"

	defaultDatabase = "results.db"
	defaultLogLevel = "info"
)

const defaultScenarioConfigYAML = `# gridrun scenario configuration
version: 1

# Features requested for this scenario. Leave unset to read features.csv.
# features:
#   - transmission
#   - carbon_cap

# Optional YAML catalog. The built-in catalog is used when unset.
# catalog: catalog.yaml

# Force multi-stage handling on or off. Detected from the directory layout when unset.
# multi_stage: false

database: results.db

phases:
  - add_structure
  - load_data
  - export_results

log:
  level: info
  stderr: false

# Per-module settings.
# modules:
#   system.load_balance.load_balance:
#     unserved_energy_penalty: 99999
`

// LogConfig controls the run logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"GRIDRUN_LOG_LEVEL"`
	Stderr bool   `yaml:"stderr" env:"GRIDRUN_LOG_STDERR"`
}

// ScenarioConfig models <scenario>/gridrun.yaml.
type ScenarioConfig struct {
	Version    int       `yaml:"version"`
	Features   []string  `yaml:"features,omitempty"`
	Catalog    string    `yaml:"catalog,omitempty" env:"GRIDRUN_CATALOG"`
	MultiStage *bool     `yaml:"multi_stage,omitempty"`
	Database   string    `yaml:"database,omitempty" env:"GRIDRUN_DATABASE"`
	Phases     []string  `yaml:"phases,omitempty"`
	Log        LogConfig `yaml:"log"`

	// Modules holds per-module settings keyed by module id.
	Modules map[string]map[string]any `yaml:"modules,omitempty"`
}

// Config holds the runtime configuration for one scenario.
type Config struct {
	// ScenarioDir is the absolute scenario root.
	ScenarioDir string

	Scenario ScenarioConfig
}

// InitScenarioDir creates the scenario directory structure in dir.
//
// Structure created:
// <scenario>/
// ├── inputs/     <- .tab input tables
// ├── results/    <- exported result tables
// ├── logs/       <- run log and run state snapshot
// └── gridrun.yaml
func InitScenarioDir(dir string) error {
	dirs := []string{
		filepath.Join(dir, InputsDirName),
		filepath.Join(dir, ResultsDirName),
		filepath.Join(dir, LogsDirName),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return &ConfigurationError{Op: "create", Path: d, Err: err}
		}
	}
	return ensureScenarioConfig(filepath.Join(dir, ConfigFileName))
}

// Load reads gridrun.yaml from scenarioDir, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(scenarioDir string) (*Config, error) {
	abs, err := filepath.Abs(scenarioDir)
	if err != nil {
		return nil, &ConfigurationError{Op: "resolve", Path: scenarioDir, Err: err}
	}
	cfg := &Config{
		ScenarioDir: abs,
		Scenario:    defaultScenarioConfig(),
	}
	if err := cfg.loadScenarioConfig(); err != nil {
		return nil, err
	}
	if err := ParseEnv(&cfg.Scenario); err != nil {
		return nil, &ConfigurationError{Op: "environment", Err: err}
	}
	cfg.Scenario.normalize()
	if err := cfg.Scenario.validate(); err != nil {
		return nil, &ConfigurationError{Op: "validate", Path: cfg.ConfigPath(), Err: err}
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of gridrun.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.ScenarioDir, ConfigFileName)
}

// InputsDir returns the scenario-level inputs directory.
func (c *Config) InputsDir() string {
	return filepath.Join(c.ScenarioDir, InputsDirName)
}

// ResultsDir returns the scenario-level results directory.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.ScenarioDir, ResultsDirName)
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ScenarioDir, LogsDirName)
}

// DatabasePath resolves the SQLite database relative to the scenario root.
func (c *Config) DatabasePath() string {
	return resolvePath(c.ScenarioDir, c.Scenario.Database)
}

// CatalogPath resolves the custom catalog path, or "" for the built-in catalog.
func (c *Config) CatalogPath() string {
	return resolvePath(c.ScenarioDir, c.Scenario.Catalog)
}

func (c *Config) loadScenarioConfig() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigurationError{Op: "read", Path: path, Err: err}
	}
	parsed := defaultScenarioConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return &ConfigurationError{Op: "parse", Path: path, Err: err}
	}
	c.Scenario = parsed
	return nil
}

func defaultScenarioConfig() ScenarioConfig {
	return ScenarioConfig{
		Version:  1,
		Database: defaultDatabase,
		Log:      LogConfig{Level: defaultLogLevel},
	}
}

func (sc *ScenarioConfig) normalize() {
	if sc.Version == 0 {
		sc.Version = 1
	}
	sc.Catalog = strings.TrimSpace(sc.Catalog)
	sc.Database = strings.TrimSpace(sc.Database)
	if sc.Database == "" {
		sc.Database = defaultDatabase
	}
	sc.Log.Level = strings.ToLower(strings.TrimSpace(sc.Log.Level))
	if sc.Log.Level == "" {
		sc.Log.Level = defaultLogLevel
	}
	sc.Features = trimAll(sc.Features)
	sc.Phases = trimAll(sc.Phases)
}

func (sc ScenarioConfig) validate() error {
	if sc.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	for id := range sc.Modules {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("modules: blank module id")
		}
	}
	switch sc.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", sc.Log.Level)
	}
	return nil
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureScenarioConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &ConfigurationError{Op: "stat", Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(defaultScenarioConfigYAML), 0o644); err != nil {
		return &ConfigurationError{Op: "write", Path: path, Err: err}
	}
	return nil
}
