// Package layout inspects a scenario's on-disk structure. Scenarios may be
// split into integer-named subproblem directories, each optionally split into
// integer-named stage directories:
//
//	<scenario>/1/1/inputs
//	<scenario>/1/2/inputs
//	<scenario>/2/inputs
//
// The layout decides whether the multi-stage module is active and which run
// targets a scenario has.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Probe reports the integer-named immediate subdirectories of dir.
type Probe interface {
	IntegerSubdirectories(dir string) ([]string, error)
}

// FS probes the local filesystem.
type FS struct{}

// IntegerSubdirectories returns the names of dir's immediate subdirectories
// that parse as non-negative integers, sorted numerically. A missing directory
// yields an empty list and no error.
func (FS) IntegerSubdirectories(dir string) ([]string, error) {
	return IntegerSubdirectories(dir)
}

// IntegerSubdirectories implements FS.IntegerSubdirectories.
func IntegerSubdirectories(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("layout: read %s: %w", dir, err)
	}
	type numbered struct {
		name  string
		value uint64
	}
	var found []numbered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		value, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		found = append(found, numbered{name: entry.Name(), value: value})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].value != found[j].value {
			return found[i].value < found[j].value
		}
		return found[i].name < found[j].name
	})
	names := make([]string, len(found))
	for i, n := range found {
		names[i] = n.name
	}
	return names, nil
}

// HasStages reports whether at least one subproblem of scenarioDir contains
// at least one stage subdirectory.
func HasStages(probe Probe, scenarioDir string) (bool, error) {
	if probe == nil {
		probe = FS{}
	}
	subproblems, err := probe.IntegerSubdirectories(scenarioDir)
	if err != nil {
		return false, err
	}
	for _, sub := range subproblems {
		stages, err := probe.IntegerSubdirectories(filepath.Join(scenarioDir, sub))
		if err != nil {
			return false, err
		}
		if len(stages) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Target is one (subproblem, stage) slice of a scenario. Empty names mean the
// scenario (or subproblem) is not subdivided at that level.
type Target struct {
	Subproblem string
	Stage      string
	Dir        string
}

// Label renders the target for logs.
func (t Target) Label() string {
	switch {
	case t.Subproblem == "":
		return "scenario"
	case t.Stage == "":
		return "subproblem " + t.Subproblem
	default:
		return "subproblem " + t.Subproblem + " stage " + t.Stage
	}
}

// Targets enumerates the run targets of scenarioDir in deterministic order.
// A scenario without subproblem directories has a single target rooted at
// scenarioDir itself.
func Targets(probe Probe, scenarioDir string) ([]Target, error) {
	if probe == nil {
		probe = FS{}
	}
	subproblems, err := probe.IntegerSubdirectories(scenarioDir)
	if err != nil {
		return nil, err
	}
	if len(subproblems) == 0 {
		return []Target{{Dir: scenarioDir}}, nil
	}
	var targets []Target
	for _, sub := range subproblems {
		subDir := filepath.Join(scenarioDir, sub)
		stages, err := probe.IntegerSubdirectories(subDir)
		if err != nil {
			return nil, err
		}
		if len(stages) == 0 {
			targets = append(targets, Target{Subproblem: sub, Dir: subDir})
			continue
		}
		for _, stage := range stages {
			targets = append(targets, Target{Subproblem: sub, Stage: stage, Dir: filepath.Join(subDir, stage)})
		}
	}
	return targets, nil
}
