package module

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kingrea/gridrun/internal/features"
	"github.com/kingrea/gridrun/internal/layout"
	"github.com/kingrea/gridrun/internal/logging"
	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/tabular"
)

// ModuleContext is the state every unit shares during one run. Units add to
// it; the engine never checks what they add for collisions.
type ModuleContext struct {
	RunID       string
	ScenarioDir string
	Target      layout.Target
	Features    features.Set
	Model       *model.Model
	Logger      *log.Logger

	registries map[string][]string
	tables     map[string]tabular.Table
}

// NewContext builds a ModuleContext with a fresh model and run id.
func NewContext(scenarioDir string, target layout.Target, requested features.Set) *ModuleContext {
	if requested == nil {
		requested = features.Set{}
	}
	return &ModuleContext{
		RunID:       uuid.NewString(),
		ScenarioDir: scenarioDir,
		Target:      target,
		Features:    requested,
		Model:       model.New(),
		Logger:      logging.Discard(),
		registries:  map[string][]string{},
		tables:      map[string]tabular.Table{},
	}
}

// WithLogger swaps the logger units write to.
func (ctx *ModuleContext) WithLogger(logger *log.Logger) *ModuleContext {
	clone := *ctx
	clone.Logger = logging.OrDiscard(logger)
	return &clone
}

// WithRunID pins the run id, e.g. when resuming a persisted run.
func (ctx *ModuleContext) WithRunID(id string) *ModuleContext {
	clone := *ctx
	clone.RunID = id
	return &clone
}

// Append adds names to a cross-module registry, such as the list of load
// balance production components.
func (ctx *ModuleContext) Append(registry string, names ...string) {
	if ctx.registries == nil {
		ctx.registries = map[string][]string{}
	}
	ctx.registries[registry] = append(ctx.registries[registry], names...)
}

// Registry returns a copy of the named registry in append order.
func (ctx *ModuleContext) Registry(registry string) []string {
	return append([]string(nil), ctx.registries[registry]...)
}

// Registries lists the registry names in use, sorted.
func (ctx *ModuleContext) Registries() []string {
	names := make([]string, 0, len(ctx.registries))
	for name := range ctx.registries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PutTable stages a table for a later phase, e.g. from ReadFromStore to
// WriteDerivedInputs.
func (ctx *ModuleContext) PutTable(name string, t tabular.Table) {
	if ctx.tables == nil {
		ctx.tables = map[string]tabular.Table{}
	}
	ctx.tables[name] = t
}

// StagedTable returns a table staged with PutTable.
func (ctx *ModuleContext) StagedTable(name string) (tabular.Table, bool) {
	t, ok := ctx.tables[name]
	return t, ok
}
