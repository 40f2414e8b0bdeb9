package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kingrea/gridrun/internal/catalog"
	"github.com/kingrea/gridrun/internal/config"
	"github.com/kingrea/gridrun/internal/layout"
	"github.com/kingrea/gridrun/internal/logging"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/modules"
	"github.com/kingrea/gridrun/internal/resolver"
)

// session is one command's view of a scenario: its configuration, the
// catalog in force and the built-in module registry.
type session struct {
	opts     *rootOptions
	cfg      *config.Config
	catalog  *catalog.Catalog
	registry *module.Registry
}

func openSession(opts *rootOptions, dir string) (*session, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	path := opts.catalogPath
	if path == "" {
		path = cfg.CatalogPath()
	}
	cat, err := loadCatalog(path)
	if err != nil {
		return nil, err
	}
	return &session{
		opts:     opts,
		cfg:      cfg,
		catalog:  cat,
		registry: modules.NewRegistry(),
	}, nil
}

// loadCatalog reads path, or returns the built-in catalog when path is empty.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

func (s *session) logOptions() logging.Options {
	level := s.cfg.Scenario.Log.Level
	if s.opts.logLevel != "" {
		level = strings.ToLower(s.opts.logLevel)
	}
	return logging.Options{Level: level, Stderr: s.cfg.Scenario.Log.Stderr || s.opts.verbose}
}

// consoleLogger logs to w when --verbose is set and discards otherwise. It
// serves the read-only commands that should not touch the logs directory.
func (s *session) consoleLogger(w io.Writer) *log.Logger {
	if !s.opts.verbose {
		return logging.Discard()
	}
	return log.NewWithOptions(w, log.Options{Prefix: "gridrun", Level: log.DebugLevel})
}

// request assembles the resolver inputs. Flags override gridrun.yaml, which
// overrides features.csv and the directory layout.
func (s *session) request(logger *log.Logger) resolver.Request {
	req := resolver.Request{
		Features:    s.cfg.Scenario.Features,
		MultiStage:  s.cfg.Scenario.MultiStage,
		ScenarioDir: s.cfg.ScenarioDir,
		Probe:       layout.FS{},
		Logger:      logger,
	}
	if s.opts.featuresSet {
		req.Features = append([]string{}, s.opts.features...)
	}
	if s.opts.multiStageSet {
		multiStage := s.opts.multiStage
		req.MultiStage = &multiStage
	}
	return req
}

// resolve runs the resolver once; the ids, features and multi-stage flag it
// reports all come from the same reads. Inert requested features are logged
// as warnings by the resolver.
func (s *session) resolve(logger *log.Logger) (resolver.Result, error) {
	return resolver.Determine(s.catalog, s.request(logger))
}

// units loads fresh units for ids with their gridrun.yaml settings. With
// skipUnbound, ids without a built-in implementation are dropped with a
// warning instead of failing the load.
func (s *session) units(ids []string, skipUnbound bool, logger *log.Logger) ([]*module.Unit, error) {
	if skipUnbound {
		if missing := s.registry.Missing(ids); len(missing) > 0 {
			logger.Warn("skipping unbound modules", "count", len(missing), "modules", strings.Join(missing, ","))
			ids = bound(ids, missing)
		}
	}
	configs := make(map[string]module.Config, len(s.cfg.Scenario.Modules))
	for id, settings := range s.cfg.Scenario.Modules {
		configs[id] = module.Config(settings)
	}
	units, err := s.registry.LoadConfigured(ids, configs)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	return units, nil
}

func bound(ids, missing []string) []string {
	skip := make(map[string]struct{}, len(missing))
	for _, id := range missing {
		skip[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
