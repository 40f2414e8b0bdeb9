// Package resolver turns a requested feature set into the ordered list of
// module ids a scenario activates. Resolution filters the catalog's canonical
// list, so the result always keeps canonical relative order.
package resolver

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/kingrea/gridrun/internal/catalog"
	"github.com/kingrea/gridrun/internal/features"
	"github.com/kingrea/gridrun/internal/layout"
	"github.com/kingrea/gridrun/internal/logging"
)

// ResolutionError reports a rule that tried to remove a module the working
// list no longer contains, meaning two exclusion sources overlap.
type ResolutionError struct {
	ModuleID string
	Rule     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolver: %s removes module %s which is already excluded", e.Rule, e.ModuleID)
}

// Request describes one scenario's resolution inputs. A nil Features slice
// means the requested features are read from ScenarioDir's features.csv. A
// nil MultiStage means the flag is derived from ScenarioDir's layout.
type Request struct {
	Features    []string
	MultiStage  *bool
	ScenarioDir string
	Probe       layout.Probe
	Logger      *log.Logger
}

// Result is one resolution together with the inputs it was computed from.
type Result struct {
	IDs        []string
	Features   features.Set
	MultiStage bool
	// Inert lists requested features no catalog rule mentions, sorted. They
	// change nothing but usually indicate a typo.
	Inert []string
}

// Resolve determines the requested features and the multi-stage flag for req,
// then filters cat's canonical list.
func Resolve(cat *catalog.Catalog, req Request) ([]string, error) {
	res, err := Determine(cat, req)
	if err != nil {
		return nil, err
	}
	return res.IDs, nil
}

// Determine is Resolve returning the effective features and multi-stage flag
// alongside the ids. The feature artifact and the layout are read once.
func Determine(cat *catalog.Catalog, req Request) (Result, error) {
	if cat == nil {
		return Result{}, errors.New("resolver: catalog is required")
	}
	requested, err := features.Source{Features: req.Features, ScenarioDir: req.ScenarioDir}.Resolve()
	if err != nil {
		return Result{}, err
	}
	multiStage, err := MultiStage(req.MultiStage, req.Probe, req.ScenarioDir)
	if err != nil {
		return Result{}, err
	}
	logger := logging.OrDiscard(req.Logger)
	ids, err := filter(cat, requested, multiStage, logger)
	if err != nil {
		return Result{}, err
	}
	inert := Inert(cat, requested)
	for _, f := range inert {
		logger.Warn("requested feature is not used by any catalog rule", "feature", f)
	}
	return Result{IDs: ids, Features: requested, MultiStage: multiStage, Inert: inert}, nil
}

// Inert returns the requested features cat's rules never mention, sorted.
func Inert(cat *catalog.Catalog, requested features.Set) []string {
	known := features.NewSet(cat.Features()...)
	var out []string
	for _, f := range requested.Sorted() {
		if !known.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// MultiStage returns explicit when set, otherwise whether scenarioDir has at
// least one subproblem with stage subdirectories.
func MultiStage(explicit *bool, probe layout.Probe, scenarioDir string) (bool, error) {
	if explicit != nil {
		return *explicit, nil
	}
	ok, err := layout.HasStages(probe, scenarioDir)
	if err != nil {
		return false, fmt.Errorf("resolver: probe stages: %w", err)
	}
	return ok, nil
}

// Filter applies the catalog rules to an already determined feature set.
func Filter(cat *catalog.Catalog, requested features.Set, multiStage bool) ([]string, error) {
	if cat == nil {
		return nil, errors.New("resolver: catalog is required")
	}
	return filter(cat, requested, multiStage, logging.Discard())
}

func filter(cat *catalog.Catalog, requested features.Set, multiStage bool, logger *log.Logger) ([]string, error) {
	w := &working{ids: cat.AllModules(), logger: logger}

	if !multiStage {
		if err := w.remove("multi-stage check", cat.MultiStageModule()); err != nil {
			return nil, err
		}
	}
	for _, rule := range cat.OptionalModules() {
		if requested.Has(rule.Feature) {
			continue
		}
		if err := w.remove(rule.Name(), rule.Modules...); err != nil {
			return nil, err
		}
	}
	for _, rule := range cat.SharedFeatureModules() {
		if slices.ContainsFunc(rule.Features, requested.Has) {
			continue
		}
		if err := w.remove("shared["+rule.Key()+"]", rule.Modules...); err != nil {
			return nil, err
		}
	}
	for _, rule := range cat.CrossFeatureModules() {
		if !slices.ContainsFunc(rule.Features, func(f string) bool { return !requested.Has(f) }) {
			continue
		}
		if err := w.remove("cross["+rule.Key()+"]", rule.Modules...); err != nil {
			return nil, err
		}
	}
	logger.Debug("modules resolved", "kept", len(w.ids), "features", requested.Sorted(), "multi_stage", multiStage)
	return w.ids, nil
}

type working struct {
	ids    []string
	logger *log.Logger
}

func (w *working) remove(rule string, ids ...string) error {
	for _, id := range ids {
		i := slices.Index(w.ids, id)
		if i < 0 {
			return &ResolutionError{ModuleID: id, Rule: rule}
		}
		w.ids = slices.Delete(w.ids, i, i+1)
	}
	w.logger.Debug("rule excluded modules", "rule", rule, "modules", ids)
	return nil
}
