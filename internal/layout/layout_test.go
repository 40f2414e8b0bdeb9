package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mkdirs(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Join(root, p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIntegerSubdirectoriesFiltersAndSortsNumerically(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "10", "2", "1", "inputs", "-3", "x1")
	if err := os.WriteFile(filepath.Join(root, "5"), []byte("file"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := IntegerSubdirectories(root)
	if err != nil {
		t.Fatalf("IntegerSubdirectories: %v", err)
	}
	if strings.Join(got, ",") != "1,2,10" {
		t.Fatalf("unexpected subdirectories %v", got)
	}
}

func TestIntegerSubdirectoriesMissingDirIsEmpty(t *testing.T) {
	got, err := IntegerSubdirectories(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestHasStagesDetectsStageDirectories(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1/1", "1/2")
	ok, err := HasStages(FS{}, root)
	if err != nil {
		t.Fatalf("HasStages: %v", err)
	}
	if !ok {
		t.Fatalf("expected stages to be detected")
	}
}

func TestHasStagesFalseWithoutStages(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1/inputs", "2")
	ok, err := HasStages(nil, root)
	if err != nil {
		t.Fatalf("HasStages: %v", err)
	}
	if ok {
		t.Fatalf("expected no stages")
	}
	ok, err = HasStages(nil, t.TempDir())
	if err != nil || ok {
		t.Fatalf("expected flat scenario to have no stages, got %v %v", ok, err)
	}
}

func TestTargetsEnumeratesSubproblemsAndStages(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1/1", "1/2", "2/inputs")
	targets, err := Targets(FS{}, root)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	var labels []string
	for _, tgt := range targets {
		labels = append(labels, tgt.Label())
	}
	want := "subproblem 1 stage 1|subproblem 1 stage 2|subproblem 2"
	if strings.Join(labels, "|") != want {
		t.Fatalf("unexpected targets %q", strings.Join(labels, "|"))
	}
	if targets[1].Dir != filepath.Join(root, "1", "2") {
		t.Fatalf("unexpected target dir %s", targets[1].Dir)
	}
}

func TestTargetsFlatScenario(t *testing.T) {
	root := t.TempDir()
	targets, err := Targets(nil, root)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	if len(targets) != 1 || targets[0].Dir != root || targets[0].Label() != "scenario" {
		t.Fatalf("unexpected targets %+v", targets)
	}
}
