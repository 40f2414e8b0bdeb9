package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func tenModuleDefinition() Definition {
	return Definition{
		Modules:          []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9", "m10"},
		MultiStageModule: "m10",
		Optional: []FeatureRule{
			{Feature: "A", Modules: []string{"m3", "m5"}},
			{Feature: "B", Modules: []string{"m7"}},
		},
		Cross: []GroupRule{{Features: []string{"A", "B"}, Modules: []string{"m9"}}},
	}
}

func TestNewCopiesDefinition(t *testing.T) {
	def := tenModuleDefinition()
	c, err := New(def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	def.Modules[0] = "changed"
	def.Optional[0].Modules[0] = "changed"
	if c.AllModules()[0] != "m1" {
		t.Fatalf("catalog shares module slice with definition")
	}
	if c.OptionalModules()[0].Modules[0] != "m3" {
		t.Fatalf("catalog shares rule slice with definition")
	}
	all := c.AllModules()
	all[1] = "mutated"
	if c.AllModules()[1] != "m2" {
		t.Fatalf("AllModules returned internal slice")
	}
}

func TestNewRejectsUnknownRuleModule(t *testing.T) {
	def := tenModuleDefinition()
	def.Cross[0].Modules = []string{"m99"}
	_, err := New(def)
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if integrity.ModuleID != "m99" || integrity.Rule != "cross[A+B]" {
		t.Fatalf("unexpected error details %+v", integrity)
	}
}

func TestNewRejectsBrokenDefinitions(t *testing.T) {
	cases := map[string]func(*Definition){
		"empty modules":      func(d *Definition) { d.Modules = nil },
		"duplicate module":   func(d *Definition) { d.Modules = append(d.Modules, "m1") },
		"missing sentinel":   func(d *Definition) { d.MultiStageModule = "" },
		"unknown sentinel":   func(d *Definition) { d.MultiStageModule = "m11" },
		"single-feature tie": func(d *Definition) { d.Cross[0].Features = []string{"A"} },
		"repeated feature":   func(d *Definition) { d.Cross[0].Features = []string{"A", "A"} },
		"duplicate optional": func(d *Definition) { d.Optional = append(d.Optional, FeatureRule{Feature: "A", Modules: []string{"m2"}}) },
		"repeat in rule":     func(d *Definition) { d.Optional[1].Modules = []string{"m7", "m7"} },
		"empty rule":         func(d *Definition) { d.Shared = []GroupRule{{Features: []string{"A", "B"}}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			def := tenModuleDefinition()
			mutate(&def)
			if _, err := New(def); err == nil {
				t.Fatalf("expected integrity error")
			}
		})
	}
}

func TestFeaturesListsEveryRuleLabel(t *testing.T) {
	def := tenModuleDefinition()
	def.Shared = []GroupRule{{Features: []string{"C", "A"}, Modules: []string{"m8"}}}
	c := MustNew(def)
	if diff := cmp.Diff([]string{"A", "B", "C"}, c.Features()); diff != "" {
		t.Fatalf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlapsReportsIdsExcludedTwice(t *testing.T) {
	def := tenModuleDefinition()
	def.Optional[1].Modules = []string{"m7", "m10"}
	c := MustNew(def)
	got := c.Overlaps()
	want := []Overlap{{ModuleID: "m10", Rules: []string{"multi_stage_module", "optional[B]"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("overlaps mismatch (-want +got):\n%s", diff)
	}
	if len(MustNew(tenModuleDefinition()).Overlaps()) != 0 {
		t.Fatalf("expected clean catalog")
	}
}

func TestDefaultCatalogIsConsistent(t *testing.T) {
	c := Default()
	if c != Default() {
		t.Fatalf("Default should be built once")
	}
	if got := len(c.AllModules()); got != 132 {
		t.Fatalf("expected 132 modules, got %d", got)
	}
	if c.MultiStageModule() != MultiStageModule {
		t.Fatalf("unexpected sentinel %q", c.MultiStageModule())
	}
	if got := len(c.OptionalModules()); got != 15 {
		t.Fatalf("expected 15 optional features, got %d", got)
	}
	if got := len(c.CrossFeatureModules()); got != 6 {
		t.Fatalf("expected 6 cross-feature rules, got %d", got)
	}
	if got := len(c.SharedFeatureModules()); got != 1 {
		t.Fatalf("expected 1 shared-feature rule, got %d", got)
	}
	if overlaps := c.Overlaps(); len(overlaps) != 0 {
		t.Fatalf("default catalog has overlapping rules: %+v", overlaps)
	}
	if c.Position("temporal.operations.timepoints") != 0 || c.Position("objective.max_npv") != 131 {
		t.Fatalf("unexpected canonical endpoints")
	}
}

func TestParseDefinitionYAML(t *testing.T) {
	doc := `
modules: [a.one, a.two, b.three, c.four]
multi_stage_module: c.four
optional:
  - feature: beta
    modules: [b.three]
shared:
  - features: [beta, gamma]
    modules: [a.two]
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"a.one", "a.two", "b.three", "c.four"}, c.AllModules()); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}
	if shared := c.SharedFeatureModules(); len(shared) != 1 || shared[0].Key() != "beta+gamma" {
		t.Fatalf("unexpected shared rules %+v", shared)
	}
}

func TestParseDefinitionYAMLValidation(t *testing.T) {
	cases := map[string]string{
		"bad id":        "modules: [Bad-Id]\nmulti_stage_module: Bad-Id\n",
		"unknown key":   "modules: [a]\nmulti_stage_module: a\nextras: true\n",
		"short tuple":   "modules: [a, b]\nmulti_stage_module: a\ncross:\n  - features: [x]\n    modules: [b]\n",
		"missing list":  "multi_stage_module: a\n",
		"rule no ids":   "modules: [a]\nmulti_stage_module: a\noptional:\n  - feature: x\n",
		"malformed doc": "modules: [a\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDefinitionYAML([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFileRoundTripsDefault(t *testing.T) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if diff := cmp.Diff(Default().Definition(), c.Definition()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error naming %s, got %v", path, err)
	}
}
