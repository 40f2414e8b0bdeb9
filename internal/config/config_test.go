package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Scenario.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Scenario.Version)
	}
	if cfg.Scenario.Log.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Scenario.Log.Level)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.ScenarioDir, "results.db") {
		t.Fatalf("unexpected database path %s", cfg.DatabasePath())
	}
	if cfg.CatalogPath() != "" {
		t.Fatalf("expected built-in catalog, got %q", cfg.CatalogPath())
	}
	if cfg.Scenario.MultiStage != nil {
		t.Fatalf("expected multi_stage unset, got %v", *cfg.Scenario.MultiStage)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	dir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
features:
  - transmission
  - " carbon_cap "
catalog: catalogs/small.yaml
multi_stage: true
database: /tmp/gridrun.db
phases:
  - add_structure
  - load_data
log:
  level: DEBUG
  stderr: true
modules:
  system.load_balance.load_balance:
    unserved_energy_penalty: 500
`)
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := strings.Join(cfg.Scenario.Features, ","); got != "transmission,carbon_cap" {
		t.Fatalf("unexpected features %q", got)
	}
	if cfg.Scenario.MultiStage == nil || !*cfg.Scenario.MultiStage {
		t.Fatalf("expected multi_stage true")
	}
	if cfg.CatalogPath() != filepath.Join(cfg.ScenarioDir, "catalogs", "small.yaml") {
		t.Fatalf("unexpected catalog path %s", cfg.CatalogPath())
	}
	if cfg.DatabasePath() != "/tmp/gridrun.db" {
		t.Fatalf("unexpected database path %s", cfg.DatabasePath())
	}
	if cfg.Scenario.Log.Level != "debug" || !cfg.Scenario.Log.Stderr {
		t.Fatalf("unexpected log config %+v", cfg.Scenario.Log)
	}
	if len(cfg.Scenario.Phases) != 2 {
		t.Fatalf("expected two phases, got %v", cfg.Scenario.Phases)
	}
	if got := cfg.Scenario.Modules["system.load_balance.load_balance"]["unserved_energy_penalty"]; got != 500 {
		t.Fatalf("unexpected module settings %v", cfg.Scenario.Modules)
	}
}

func TestLoadKeepsExplicitEmptyFeatureList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("version: 1\nfeatures: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Scenario.Features == nil || len(cfg.Scenario.Features) != 0 {
		t.Fatalf("expected explicit empty feature list, got %#v", cfg.Scenario.Features)
	}
}

func TestLoadRejectsMalformedYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("version: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Op != "parse" {
		t.Fatalf("expected parse op, got %q", cfgErr.Op)
	}
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("log:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("expected log.level error, got %v", err)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRIDRUN_LOG_LEVEL", "warn")
	t.Setenv("GRIDRUN_DATABASE", "other.db")
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Scenario.Log.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Scenario.Log.Level)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.ScenarioDir, "other.db") {
		t.Fatalf("expected env database, got %s", cfg.DatabasePath())
	}
}

func TestInitScenarioDirCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	if err := InitScenarioDir(dir); err != nil {
		t.Fatalf("InitScenarioDir: %v", err)
	}
	for _, name := range []string{InputsDirName, ResultsDirName, LogsDirName} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", name, err)
		}
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after init: %v", err)
	}
	if len(cfg.Scenario.Phases) != 3 {
		t.Fatalf("expected default phases from generated config, got %v", cfg.Scenario.Phases)
	}
	custom := []byte("version: 2\n")
	if err := os.WriteFile(cfg.ConfigPath(), custom, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitScenarioDir(dir); err != nil {
		t.Fatalf("second InitScenarioDir: %v", err)
	}
	data, err := os.ReadFile(cfg.ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(custom) {
		t.Fatalf("InitScenarioDir overwrote existing config")
	}
}
