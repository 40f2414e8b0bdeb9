package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/gridrun/internal/config"
	"github.com/kingrea/gridrun/internal/features"
	"github.com/kingrea/gridrun/internal/tabular"
)

const testCatalog = `modules:
  - temporal.operations.timepoints
  - temporal.operations.horizons
  - temporal.investment.periods
  - geography.load_zones
  - geography.markets
  - system.load_balance.static_load_requirement
  - system.load_balance.load_balance
  - objective.system.aggregate_load_balance_penalties
  - objective.max_npv
  - system.multi_stage
multi_stage_module: system.multi_stage
optional:
  - feature: markets
    modules: [geography.markets]
`

const testScenarioConfig = `version: 1
catalog: catalog.yaml
modules:
  system.load_balance.load_balance:
    unserved_energy_penalty: 500
`

func TestInitCreatesScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenario")
	out, _ := runCLI(t, 0, "init", dir, "--with", "markets")
	if !strings.Contains(out, "initialized scenario") {
		t.Fatalf("unexpected output %q", out)
	}
	for _, name := range []string{config.ConfigFileName, features.FileName, config.InputsDirName, config.LogsDirName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	requested, err := features.ReadFile(filepath.Join(dir, features.FileName))
	if err != nil {
		t.Fatalf("read features: %v", err)
	}
	if !requested.Has("markets") {
		t.Fatalf("expected markets to be requested, got %v", requested.Sorted())
	}
}

func TestModulesListsResolvedOrder(t *testing.T) {
	dir := newScenario(t)
	out, _ := runCLI(t, 0, "modules", dir)
	if strings.Contains(out, "geography.markets") || strings.Contains(out, "system.multi_stage") {
		t.Fatalf("unrequested modules listed:\n%s", out)
	}
	if strings.Index(out, "temporal.operations.timepoints") > strings.Index(out, "objective.max_npv") {
		t.Fatalf("modules out of catalog order:\n%s", out)
	}
	if strings.Contains(out, "unbound") {
		t.Fatalf("expected every module bound:\n%s", out)
	}

	out, _ = runCLI(t, 0, "modules", dir, "--features", "markets")
	if !strings.Contains(out, "geography.markets") {
		t.Fatalf("expected markets module with --features:\n%s", out)
	}
}

func TestModulesWarnsAboutInertFeatures(t *testing.T) {
	dir := newScenario(t)
	plain, _ := runCLI(t, 0, "modules", dir)
	out, errOut := runCLI(t, 0, "modules", dir, "--features", "bogus")
	if !strings.Contains(errOut, "feature bogus is not used by any catalog rule") {
		t.Fatalf("expected an inert feature warning, got %q", errOut)
	}
	// The unknown label still shows as requested; the module list is unchanged.
	if !strings.Contains(out, "features: bogus") {
		t.Fatalf("expected bogus among the requested features:\n%s", out)
	}
	if modulesOnly(out) != modulesOnly(plain) {
		t.Fatalf("inert feature changed the module list:\n%s\nwant:\n%s", out, plain)
	}

	_, errOut = runCLI(t, 0, "modules", dir, "--features", "markets")
	if strings.Contains(errOut, "warning") {
		t.Fatalf("unexpected warning for a known feature: %q", errOut)
	}
}

// modulesOnly drops the header lines of the modules output.
func modulesOnly(out string) string {
	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return out
	}
	return strings.Join(lines[2:], "\n")
}

func TestModulesMarksUnboundWithDefaultCatalog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenario")
	runCLI(t, 0, "init", dir)
	out, _ := runCLI(t, 0, "modules", dir, "--unbound")
	if !strings.Contains(out, "(unbound)") {
		t.Fatalf("expected unbound modules from the built-in catalog:\n%s", out)
	}
	if strings.Contains(out, "temporal.operations.timepoints") {
		t.Fatalf("bound module listed with --unbound:\n%s", out)
	}
}

func TestRunFailsOnUnboundModule(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenario")
	runCLI(t, 0, "init", dir)
	_, errOut := runCLI(t, 1, "run", dir)
	if !strings.Contains(errOut, "load modules") {
		t.Fatalf("expected a load error, got %q", errOut)
	}
}

func TestSetupRunImportPipeline(t *testing.T) {
	dir := newScenario(t)
	seed := tabular.Dir{Path: filepath.Join(t.TempDir(), "seed")}
	var files []string
	for name, table := range fixtureTables() {
		if err := seed.WriteTable(name, table); err != nil {
			t.Fatalf("write seed %s: %v", name, err)
		}
		files = append(files, filepath.Join(seed.Path, name+".tab"))
	}

	runCLI(t, 0, append([]string{"store", "load", "-s", dir}, files...)...)
	out, _ := runCLI(t, 0, "setup", dir)
	if !strings.Contains(out, "validate_inputs") {
		t.Fatalf("setup output missing validate phase:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, config.InputsDirName, "load_mw.tab")); err != nil {
		t.Fatalf("setup did not write inputs: %v", err)
	}

	runCLI(t, 0, "run", dir)
	balance, err := tabular.Dir{Path: filepath.Join(dir, config.ResultsDirName)}.Table("load_balance")
	if err != nil {
		t.Fatalf("read exported results: %v", err)
	}
	zones, _ := balance.Column("load_zone")
	penalties, _ := balance.Column("unserved_energy_penalty_per_mw")
	for i, zone := range zones {
		if zone == "north" && penalties[i] != "500" {
			t.Fatalf("north penalty %s, want the configured 500", penalties[i])
		}
	}

	runCLI(t, 0, "import", dir)
	out, _ = runCLI(t, 0, "store", "tables", "-s", dir)
	for _, name := range []string{"load_balance", "load_balance_summary", "objective_components", "load_mw"} {
		if !strings.Contains(out, name) {
			t.Fatalf("store tables missing %s:\n%s", name, out)
		}
	}
	out, _ = runCLI(t, 0, "store", "log", "-s", dir)
	if !strings.Contains(out, "load_balance_summary") {
		t.Fatalf("import log missing summary:\n%s", out)
	}

	out, _ = runCLI(t, 0, "status", dir)
	if !strings.Contains(out, "complete") || !strings.Contains(out, "post_process_results") {
		t.Fatalf("unexpected status:\n%s", out)
	}
}

func TestRunRejectsUnknownPhase(t *testing.T) {
	dir := newScenario(t)
	_, errOut := runCLI(t, 1, "run", dir, "--phases", "solve")
	if !strings.Contains(errOut, "solve") {
		t.Fatalf("expected unknown phase error, got %q", errOut)
	}
}

func TestCatalogValidateStrictReportsOverlaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := testCatalog + "  - feature: extras\n    modules: [geography.markets]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	out, _ := runCLI(t, 0, "catalog", "validate", path)
	if !strings.Contains(out, "is excluded by optional[markets], optional[extras]") {
		t.Fatalf("expected overlap warning:\n%s", out)
	}
	runCLI(t, 2, "catalog", "validate", "--strict", path)
}

func TestCatalogShowRoundTrips(t *testing.T) {
	out, _ := runCLI(t, 0, "catalog", "show")
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	runCLI(t, 0, "catalog", "validate", path)
}

func runCLI(t *testing.T, wantCode int, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), newRootCommand(), args, &stdout, &stderr)
	if code != wantCode {
		t.Fatalf("gridrun %s: exit %d, want %d\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), code, wantCode, stdout.String(), stderr.String())
	}
	return stdout.String(), stderr.String()
}

// newScenario initializes a scenario that uses the test catalog.
func newScenario(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenario")
	runCLI(t, 0, "init", dir)
	files := map[string]string{
		config.ConfigFileName: testScenarioConfig,
		"catalog.yaml":        testCatalog,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func fixtureTables() map[string]tabular.Table {
	return map[string]tabular.Table{
		"timepoints": {
			Columns: []string{"timepoint", "period", "horizon", "number_of_hours_in_timepoint"},
			Rows:    [][]string{{"1", "2030", "1", "1"}, {"2", "2030", "1", "1"}},
		},
		"horizons": {
			Columns: []string{"horizon", "boundary"},
			Rows:    [][]string{{"1", "circular"}},
		},
		"periods": {
			Columns: []string{"period", "discount_factor", "number_years_represented"},
			Rows:    [][]string{{"2030", "1", "10"}},
		},
		"load_zones": {
			Columns: []string{"load_zone", "overgeneration_penalty_per_mw", "unserved_energy_penalty_per_mw"},
			Rows:    [][]string{{"north", ".", "."}, {"south", "1000", "1000"}},
		},
		"load_mw": {
			Columns: []string{"load_zone", "timepoint", "load_mw"},
			Rows:    [][]string{{"north", "1", "10"}, {"north", "2", "12"}, {"south", "1", "5"}, {"south", "2", "5"}},
		},
	}
}
