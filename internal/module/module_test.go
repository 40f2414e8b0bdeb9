package module

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/gridrun/internal/layout"
	"github.com/kingrea/gridrun/internal/tabular"
)

func stubFactory(id string, withStructure bool) Factory {
	return func(Config) (*Unit, error) {
		u := &Unit{Info: Info{ID: id, Name: id}}
		if withStructure {
			u.AddStructure = func(*ModuleContext, ModelBuilder) error { return nil }
		}
		return u, nil
	}
}

func TestLoadBindsInOrder(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("b", stubFactory("b", true))
	reg.MustRegister("a", stubFactory("a", false))
	units, err := reg.Load([]string{"b", "a"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(units) != 2 || units[0].ID() != "b" || units[1].ID() != "a" {
		t.Fatalf("unexpected units %+v", units)
	}
	if !units[0].Has(AddStructure) || units[1].Has(AddStructure) {
		t.Fatalf("unexpected capabilities")
	}
}

func TestLoadFailsFastOnUnknownModule(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.MustRegister("known", func(Config) (*Unit, error) {
		calls++
		return &Unit{Info: Info{ID: "known", Name: "Known"}}, nil
	})
	units, err := reg.Load([]string{"known", "unknown.module", "known"})
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if loadErr.ModuleID != "unknown.module" || !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("unexpected error %v", err)
	}
	if units != nil {
		t.Fatalf("expected no partial units, got %d", len(units))
	}
	if calls != 1 {
		t.Fatalf("expected loading to stop at the unknown id, factory ran %d times", calls)
	}
}

func TestLoadRejectsBrokenFactories(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("nil", func(Config) (*Unit, error) { return nil, nil })
	reg.MustRegister("mismatch", stubFactory("other", false))
	reg.MustRegister("nameless", func(Config) (*Unit, error) { return &Unit{Info: Info{ID: "nameless"}}, nil })
	reg.MustRegister("failing", func(Config) (*Unit, error) { return nil, errors.New("boom") })
	for _, id := range []string{"nil", "mismatch", "nameless", "failing"} {
		_, err := reg.Load([]string{id})
		var loadErr *LoadError
		if !errors.As(err, &loadErr) || loadErr.ModuleID != id {
			t.Fatalf("%s: expected LoadError, got %v", id, err)
		}
	}
}

func TestLoadConfiguredPassesSettings(t *testing.T) {
	reg := NewRegistry()
	var got Config
	reg.MustRegister("m", func(cfg Config) (*Unit, error) {
		got = cfg
		return &Unit{Info: Info{ID: "m", Name: "M"}}, nil
	})
	if _, err := reg.LoadConfigured([]string{"m"}, map[string]Config{"m": {"penalty": 5}}); err != nil {
		t.Fatalf("LoadConfigured: %v", err)
	}
	if got["penalty"] != 5 {
		t.Fatalf("expected settings to reach factory, got %v", got)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("x", stubFactory("x", false))
	if err := reg.Register("x", stubFactory("x", false)); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := reg.Register("", stubFactory("", false)); err == nil {
		t.Fatalf("expected id error")
	}
	if diff := cmp.Diff([]string{"y"}, reg.Missing([]string{"x", "y"})); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePhase(t *testing.T) {
	for _, name := range []string{"load_data", "LoadData", "load-data", " LOAD_DATA "} {
		phase, err := ParsePhase(name)
		if err != nil || phase != LoadData {
			t.Fatalf("ParsePhase(%q) = %v, %v", name, phase, err)
		}
	}
	if _, err := ParsePhase("solve"); err == nil {
		t.Fatalf("expected unknown phase error")
	}
	phases, err := ParsePhases([]string{"add_structure", "export_results"})
	if err != nil || len(phases) != 2 || phases[1] != ExportResults {
		t.Fatalf("unexpected phases %v %v", phases, err)
	}
	if len(Phases()) != 8 || Phases()[0] != AddStructure || Phases()[7] != PostProcessResults {
		t.Fatalf("unexpected vocabulary %v", Phases())
	}
}

func TestCapabilitiesFollowLifecycleOrder(t *testing.T) {
	u := &Unit{
		Info:               Info{ID: "m", Name: "M"},
		PostProcessResults: func(*ModuleContext, ResultsStore) error { return nil },
		LoadData:           func(*ModuleContext, DataSource) error { return nil },
	}
	if diff := cmp.Diff([]Phase{LoadData, PostProcessResults}, u.Capabilities()); diff != "" {
		t.Fatalf("capabilities mismatch (-want +got):\n%s", diff)
	}
	var nilUnit *Unit
	if nilUnit.Has(LoadData) {
		t.Fatalf("nil unit has no capabilities")
	}
}

func TestContextRegistries(t *testing.T) {
	ctx := NewContext("/scn", layout.Target{Dir: "/scn"}, nil)
	if ctx.RunID == "" || ctx.Model == nil || ctx.Features == nil {
		t.Fatalf("context not initialised: %+v", ctx)
	}
	ctx.Append("load_balance_consumption", "static_load_mw")
	ctx.Append("load_balance_consumption", "exports_mw")
	if diff := cmp.Diff([]string{"static_load_mw", "exports_mw"}, ctx.Registry("load_balance_consumption")); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
	clone := ctx.WithRunID("fixed")
	if clone.RunID != "fixed" || ctx.RunID == "fixed" {
		t.Fatalf("WithRunID should not touch the original")
	}
	if len(clone.Registries()) != 1 {
		t.Fatalf("clone should share registries")
	}
}

func TestZeroContextAcceptsRegistriesAndTables(t *testing.T) {
	var ctx ModuleContext
	ctx.Append("load_balance_production", "imports_mw")
	ctx.PutTable("load_mw", tabular.Table{Columns: []string{"load_zone"}, Rows: [][]string{{"north"}}})
	if diff := cmp.Diff([]string{"imports_mw"}, ctx.Registry("load_balance_production")); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
	if _, ok := ctx.StagedTable("load_mw"); !ok {
		t.Fatalf("staged table missing")
	}
}
