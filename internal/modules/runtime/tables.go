// Package runtime holds the helpers the built-in modules share: reading input
// tables into the model, staging store tables through the setup phases and
// checking table shape.
package runtime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kingrea/gridrun/internal/logging"
	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/tabular"
)

// KeySeparator joins the parts of a multi-dimensional index member.
const KeySeparator = ","

// InputTable names one input table a module owns and the columns it needs.
// The leading KeyColumns columns (one when zero) form the table's key, which
// must be unique.
type InputTable struct {
	Name       string
	Columns    []string
	KeyColumns int
}

func (t InputTable) key() []string {
	n := t.KeyColumns
	if n <= 0 {
		n = 1
	}
	if n > len(t.Columns) {
		n = len(t.Columns)
	}
	return t.Columns[:n]
}

// Key joins index parts into one member name.
func Key(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// ValidateContext ensures units receive a usable context.
func ValidateContext(moduleID string, ctx *module.ModuleContext) error {
	if ctx == nil {
		return fmt.Errorf("%s: context is nil", moduleID)
	}
	if ctx.Model == nil {
		return fmt.Errorf("%s: model is required", moduleID)
	}
	return nil
}

// Declare adds components to builder, stamping moduleID as their owner.
func Declare(builder module.ModelBuilder, moduleID string, components ...model.Component) error {
	for _, c := range components {
		c.Owner = moduleID
		if err := builder.Add(c); err != nil {
			return fmt.Errorf("%s: %w", moduleID, err)
		}
	}
	return nil
}

// ReadTable reads name from source and checks it carries columns.
func ReadTable(moduleID string, source module.DataSource, name string, columns ...string) (tabular.Table, error) {
	t, err := source.Table(name)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s: read %s: %w", moduleID, name, err)
	}
	if err := t.RequireColumns(columns...); err != nil {
		return tabular.Table{}, fmt.Errorf("%s: %s: %w", moduleID, name, err)
	}
	return t, nil
}

// LoadSet fills set with the distinct values of column, in first-seen order.
func LoadSet(ctx *module.ModuleContext, moduleID string, t tabular.Table, column, set string) ([]string, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", moduleID, err)
	}
	members := distinct(values)
	if err := ctx.Model.SetMembers(set, members); err != nil {
		return nil, fmt.Errorf("%s: %w", moduleID, err)
	}
	return members, nil
}

// LoadParam fills param from a key column and a numeric value column. Cells
// holding "." are treated as missing and skipped.
func LoadParam(ctx *module.ModuleContext, moduleID string, t tabular.Table, keyColumn, valueColumn, param string) error {
	values, err := Values(t, valueColumn, keyColumn)
	if err != nil {
		return fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := ctx.Model.SetValues(param, values); err != nil {
		return fmt.Errorf("%s: %w", moduleID, err)
	}
	return nil
}

// Values maps the joined key columns of each row to the numeric value of
// valueColumn. Rows whose value is "." are skipped.
func Values(t tabular.Table, valueColumn string, keyColumns ...string) (map[string]float64, error) {
	vi := t.Index(valueColumn)
	if vi < 0 {
		return nil, fmt.Errorf("no column %q", valueColumn)
	}
	keyIdx := make([]int, len(keyColumns))
	for i, c := range keyColumns {
		keyIdx[i] = t.Index(c)
		if keyIdx[i] < 0 {
			return nil, fmt.Errorf("no column %q", c)
		}
	}
	out := make(map[string]float64, t.Len())
	for r, row := range t.Rows {
		raw := strings.TrimSpace(row[vi])
		if raw == "." || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", valueColumn, r+1, err)
		}
		parts := make([]string, len(keyIdx))
		for i, k := range keyIdx {
			parts[i] = row[k]
		}
		key := Key(parts...)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("row %d repeats key %s", r+1, key)
		}
		out[key] = v
	}
	return out, nil
}

// StageInputs reads each table from the store and stages it on the context
// for WriteDerivedInputs.
func StageInputs(ctx *module.ModuleContext, moduleID string, source module.DataSource, tables ...InputTable) error {
	for _, in := range tables {
		t, err := ReadTable(moduleID, source, in.Name, in.Columns...)
		if err != nil {
			return err
		}
		ctx.PutTable(in.Name, t)
		logging.OrDiscard(ctx.Logger).Debug("staged input table", "module", moduleID, "table", in.Name, "rows", t.Len())
	}
	return nil
}

// WriteStaged writes each staged table to sink.
func WriteStaged(ctx *module.ModuleContext, moduleID string, sink module.Sink, tables ...InputTable) error {
	for _, in := range tables {
		t, ok := ctx.StagedTable(in.Name)
		if !ok {
			return fmt.Errorf("%s: table %s was not read from the store", moduleID, in.Name)
		}
		if err := sink.WriteTable(in.Name, t); err != nil {
			return fmt.Errorf("%s: write %s: %w", moduleID, in.Name, err)
		}
	}
	return nil
}

// ValidateTables checks each table has its columns, at least one row and a
// unique key. Key values may not contain KeySeparator, since they become
// parts of multi-dimensional index members.
func ValidateTables(moduleID string, source module.DataSource, tables ...InputTable) error {
	var errs []error
	for _, in := range tables {
		t, err := ReadTable(moduleID, source, in.Name, in.Columns...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if t.Len() == 0 {
			errs = append(errs, fmt.Errorf("%s: %s has no rows", moduleID, in.Name))
			continue
		}
		if len(in.Columns) == 0 {
			continue
		}
		keyColumns := in.key()
		idx := make([]int, len(keyColumns))
		for i, c := range keyColumns {
			idx[i] = t.Index(c)
		}
		seen := make(map[string]int, t.Len())
	rows:
		for r, row := range t.Rows {
			parts := make([]string, len(idx))
			for i, k := range idx {
				if strings.Contains(row[k], KeySeparator) {
					errs = append(errs, fmt.Errorf("%s: %s row %d: %s %q contains %q", moduleID, in.Name, r+1, keyColumns[i], row[k], KeySeparator))
					break rows
				}
				parts[i] = row[k]
			}
			key := Key(parts...)
			if prev, dup := seen[key]; dup {
				errs = append(errs, fmt.Errorf("%s: %s rows %d and %d share %s %q", moduleID, in.Name, prev+1, r+1, strings.Join(keyColumns, "+"), key))
				break
			}
			seen[key] = r
		}
	}
	return errors.Join(errs...)
}

// SetupPhases wires ReadFromStore, WriteDerivedInputs and ValidateInputs for
// a module whose inputs are plain copies of store tables.
func SetupPhases(unit *module.Unit, tables ...InputTable) {
	id := unit.Info.ID
	unit.ReadFromStore = func(ctx *module.ModuleContext, source module.DataSource) error {
		return StageInputs(ctx, id, source, tables...)
	}
	unit.WriteDerivedInputs = func(ctx *module.ModuleContext, sink module.Sink) error {
		return WriteStaged(ctx, id, sink, tables...)
	}
	unit.ValidateInputs = func(ctx *module.ModuleContext, source module.DataSource) error {
		return ValidateTables(id, source, tables...)
	}
}

// Float reads a numeric module setting. YAML decodes numbers as int or
// float64; strings are parsed.
func Float(cfg module.Config, key string, fallback float64) (float64, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	var v float64
	switch value := raw.(type) {
	case int:
		v = float64(value)
	case int64:
		v = float64(value)
	case float64:
		v = value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, fmt.Errorf("setting %s: %w", key, err)
		}
		v = parsed
	default:
		return 0, fmt.Errorf("setting %s: unsupported value %v", key, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("setting %s: %v is not finite", key, v)
	}
	return v, nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
