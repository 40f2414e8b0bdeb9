// Package catalog holds the canonical module order and the feature rules that
// decide which modules a scenario activates. A Catalog is built once, checked
// for integrity, and never mutated afterwards; callers pass it explicitly to
// the resolver.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// FeatureRule includes Modules only when Feature is requested.
type FeatureRule struct {
	Feature string   `json:"feature" yaml:"feature"`
	Modules []string `json:"modules" yaml:"modules"`
}

// Name identifies the rule in errors.
func (r FeatureRule) Name() string {
	return "optional[" + r.Feature + "]"
}

// GroupRule ties Modules to a tuple of features. Cross-feature rules include
// the modules when all features are requested; shared-feature rules include
// them when any feature is requested.
type GroupRule struct {
	Features []string `json:"features" yaml:"features"`
	Modules  []string `json:"modules" yaml:"modules"`
}

// Key joins the rule's features, e.g. "transmission+carbon_cap".
func (r GroupRule) Key() string {
	return strings.Join(r.Features, "+")
}

// Definition is the raw, unchecked content of a catalog.
type Definition struct {
	Modules          []string      `json:"modules" yaml:"modules"`
	MultiStageModule string        `json:"multi_stage_module" yaml:"multi_stage_module"`
	Optional         []FeatureRule `json:"optional,omitempty" yaml:"optional,omitempty"`
	Cross            []GroupRule   `json:"cross,omitempty" yaml:"cross,omitempty"`
	Shared           []GroupRule   `json:"shared,omitempty" yaml:"shared,omitempty"`
}

// IntegrityError reports a catalog that must not be used.
type IntegrityError struct {
	Rule     string
	ModuleID string
	Reason   string
}

func (e *IntegrityError) Error() string {
	switch {
	case e.Rule != "" && e.ModuleID != "":
		return fmt.Sprintf("catalog: %s: module %s %s", e.Rule, e.ModuleID, e.Reason)
	case e.ModuleID != "":
		return fmt.Sprintf("catalog: module %s %s", e.ModuleID, e.Reason)
	default:
		return fmt.Sprintf("catalog: %s %s", e.Rule, e.Reason)
	}
}

// Catalog is the immutable registry of module ids and inclusion rules.
type Catalog struct {
	modules    []string
	index      map[string]int
	multiStage string
	optional   []FeatureRule
	cross      []GroupRule
	shared     []GroupRule
}

// New checks def and returns the catalog built from a private copy of it.
// Every id referenced by a rule (or as the multi-stage sentinel) must appear
// in the canonical list, which itself must not contain duplicates.
func New(def Definition) (*Catalog, error) {
	if len(def.Modules) == 0 {
		return nil, &IntegrityError{Rule: "modules", Reason: "list is empty"}
	}
	c := &Catalog{
		modules:    cloneStrings(def.Modules),
		index:      make(map[string]int, len(def.Modules)),
		multiStage: strings.TrimSpace(def.MultiStageModule),
	}
	for i, id := range c.modules {
		if strings.TrimSpace(id) == "" {
			return nil, &IntegrityError{Rule: "modules", Reason: fmt.Sprintf("entry %d is blank", i)}
		}
		if _, dup := c.index[id]; dup {
			return nil, &IntegrityError{Rule: "modules", ModuleID: id, Reason: "is listed more than once"}
		}
		c.index[id] = i
	}
	if c.multiStage == "" {
		return nil, &IntegrityError{Rule: "multi_stage_module", Reason: "is required"}
	}
	if !c.Contains(c.multiStage) {
		return nil, &IntegrityError{Rule: "multi_stage_module", ModuleID: c.multiStage, Reason: "is not in the module list"}
	}

	seenFeatures := make(map[string]struct{}, len(def.Optional))
	for _, rule := range def.Optional {
		if strings.TrimSpace(rule.Feature) == "" {
			return nil, &IntegrityError{Rule: "optional", Reason: "has a rule without a feature"}
		}
		if _, dup := seenFeatures[rule.Feature]; dup {
			return nil, &IntegrityError{Rule: rule.Name(), Reason: "is declared more than once"}
		}
		seenFeatures[rule.Feature] = struct{}{}
		if err := c.checkModules(rule.Name(), rule.Modules); err != nil {
			return nil, err
		}
		c.optional = append(c.optional, FeatureRule{Feature: rule.Feature, Modules: cloneStrings(rule.Modules)})
	}
	cross, err := c.checkGroups("cross", def.Cross)
	if err != nil {
		return nil, err
	}
	shared, err := c.checkGroups("shared", def.Shared)
	if err != nil {
		return nil, err
	}
	c.cross = cross
	c.shared = shared
	return c, nil
}

// MustNew panics if def fails the integrity check.
func MustNew(def Definition) *Catalog {
	c, err := New(def)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) checkGroups(kind string, rules []GroupRule) ([]GroupRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	out := make([]GroupRule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		name := kind + "[" + rule.Key() + "]"
		if len(rule.Features) < 2 {
			return nil, &IntegrityError{Rule: name, Reason: "needs at least two features"}
		}
		features := make(map[string]struct{}, len(rule.Features))
		for _, f := range rule.Features {
			if strings.TrimSpace(f) == "" {
				return nil, &IntegrityError{Rule: name, Reason: "has a blank feature"}
			}
			if _, dup := features[f]; dup {
				return nil, &IntegrityError{Rule: name, Reason: "repeats feature " + f}
			}
			features[f] = struct{}{}
		}
		if _, dup := seen[rule.Key()]; dup {
			return nil, &IntegrityError{Rule: name, Reason: "is declared more than once"}
		}
		seen[rule.Key()] = struct{}{}
		if err := c.checkModules(name, rule.Modules); err != nil {
			return nil, err
		}
		out = append(out, GroupRule{Features: cloneStrings(rule.Features), Modules: cloneStrings(rule.Modules)})
	}
	return out, nil
}

func (c *Catalog) checkModules(rule string, ids []string) error {
	if len(ids) == 0 {
		return &IntegrityError{Rule: rule, Reason: "lists no modules"}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !c.Contains(id) {
			return &IntegrityError{Rule: rule, ModuleID: id, Reason: "is not in the module list"}
		}
		if _, dup := seen[id]; dup {
			return &IntegrityError{Rule: rule, ModuleID: id, Reason: "is listed twice in the same rule"}
		}
		seen[id] = struct{}{}
	}
	return nil
}

// AllModules returns the canonical module order.
func (c *Catalog) AllModules() []string {
	return cloneStrings(c.modules)
}

// Contains reports whether id is a catalog module.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Position returns id's index in the canonical order, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// MultiStageModule returns the sentinel id kept only for multi-stage runs.
func (c *Catalog) MultiStageModule() string {
	return c.multiStage
}

// OptionalModules returns the single-feature rules in declaration order.
func (c *Catalog) OptionalModules() []FeatureRule {
	out := make([]FeatureRule, len(c.optional))
	for i, rule := range c.optional {
		out[i] = FeatureRule{Feature: rule.Feature, Modules: cloneStrings(rule.Modules)}
	}
	return out
}

// CrossFeatureModules returns the all-features rules in declaration order.
func (c *Catalog) CrossFeatureModules() []GroupRule {
	return cloneGroups(c.cross)
}

// SharedFeatureModules returns the any-feature rules in declaration order.
func (c *Catalog) SharedFeatureModules() []GroupRule {
	return cloneGroups(c.shared)
}

// Features returns every feature label mentioned by any rule, sorted.
func (c *Catalog) Features() []string {
	set := map[string]struct{}{}
	for _, rule := range c.optional {
		set[rule.Feature] = struct{}{}
	}
	for _, group := range [][]GroupRule{c.cross, c.shared} {
		for _, rule := range group {
			for _, f := range rule.Features {
				set[f] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Definition returns a copy of the catalog's content.
func (c *Catalog) Definition() Definition {
	return Definition{
		Modules:          c.AllModules(),
		MultiStageModule: c.multiStage,
		Optional:         c.OptionalModules(),
		Cross:            c.CrossFeatureModules(),
		Shared:           c.SharedFeatureModules(),
	}
}

// Overlap describes a module excluded by more than one rule (or by a rule
// and the multi-stage check). Such a catalog passes New, but resolution fails
// whenever both exclusions apply.
type Overlap struct {
	ModuleID string
	Rules    []string
}

// Overlaps lists modules referenced by more than one exclusion source, in
// canonical order.
func (c *Catalog) Overlaps() []Overlap {
	refs := map[string][]string{
		c.multiStage: {"multi_stage_module"},
	}
	for _, rule := range c.optional {
		for _, id := range rule.Modules {
			refs[id] = append(refs[id], rule.Name())
		}
	}
	for _, rule := range c.shared {
		for _, id := range rule.Modules {
			refs[id] = append(refs[id], "shared["+rule.Key()+"]")
		}
	}
	for _, rule := range c.cross {
		for _, id := range rule.Modules {
			refs[id] = append(refs[id], "cross["+rule.Key()+"]")
		}
	}
	var out []Overlap
	for _, id := range c.modules {
		if rules := refs[id]; len(rules) > 1 {
			out = append(out, Overlap{ModuleID: id, Rules: rules})
		}
	}
	return out
}

func cloneGroups(rules []GroupRule) []GroupRule {
	if len(rules) == 0 {
		return nil
	}
	out := make([]GroupRule, len(rules))
	for i, rule := range rules {
		out[i] = GroupRule{Features: cloneStrings(rule.Features), Modules: cloneStrings(rule.Modules)}
	}
	return out
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clone := make([]string, len(values))
	copy(clone, values)
	return clone
}
