// Package features determines which optional features a run requested, either
// from an explicit list or from the scenario's features.csv artifact.
package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/gridrun/internal/config"
)

const (
	// FileName is the requested-features artifact inside a scenario directory.
	FileName = "features.csv"
	// Column is the header of the column listing feature labels.
	Column = "features"
)

// Set is a flat set of feature labels matched by exact string equality.
type Set map[string]struct{}

// NewSet builds a set from labels, ignoring blanks.
func NewSet(labels ...string) Set {
	s := make(Set, len(labels))
	for _, label := range labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			s[trimmed] = struct{}{}
		}
	}
	return s
}

// Has reports whether label was requested.
func (s Set) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Sorted returns the labels in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for label := range s {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Source names where the requested features come from. A non-nil Features
// slice (even an empty one) is an explicit request and wins over ScenarioDir.
type Source struct {
	Features    []string
	ScenarioDir string
}

// Resolve returns the requested feature set. Supplying neither an explicit
// list nor a scenario directory, or pointing at a scenario without a readable
// features.csv, is a ConfigurationError.
func (src Source) Resolve() (Set, error) {
	if src.Features != nil {
		return NewSet(src.Features...), nil
	}
	if strings.TrimSpace(src.ScenarioDir) == "" {
		return nil, &config.ConfigurationError{
			Op:  "features",
			Err: errors.New("need either an explicit feature list or a scenario directory containing " + FileName),
		}
	}
	return ReadFile(filepath.Join(src.ScenarioDir, FileName))
}

// ReadFile parses a features.csv artifact.
func ReadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &config.ConfigurationError{Op: "read features", Path: path, Err: err}
	}
	defer f.Close()
	set, err := Parse(f)
	if err != nil {
		return nil, &config.ConfigurationError{Op: "parse features", Path: path, Err: err}
	}
	return set, nil
}

// Parse decodes CSV content with a "features" header column.
func Parse(r io.Reader) (Set, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing %q header", Column)
		}
		return nil, err
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == Column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing %q header", Column)
	}
	set := Set{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(record) {
			continue
		}
		if label := strings.TrimSpace(record[col]); label != "" {
			set[label] = struct{}{}
		}
	}
	return set, nil
}

// WriteFile persists labels as a features.csv artifact in scenarioDir.
func WriteFile(scenarioDir string, labels []string) error {
	path := filepath.Join(scenarioDir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("features: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	rows := [][]string{{Column}}
	for _, label := range NewSet(labels...).Sorted() {
		rows = append(rows, []string{label})
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("features: write %s: %w", path, err)
	}
	return f.Close()
}
