// Package loadbalance provides the zonal energy balance: the static load each
// zone must meet and the balance constraint that ties the production and
// consumption registries together.
//
// Modules that inject power into a zone append their expression names to
// ProductionComponents during AddStructure; modules that withdraw power
// append to ConsumptionComponents. load_balance runs after all of them and
// reads both registries to build Meet_Load_Constraint.
package loadbalance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/modules/geography"
	"github.com/kingrea/gridrun/internal/modules/runtime"
	"github.com/kingrea/gridrun/internal/modules/temporal"
	"github.com/kingrea/gridrun/internal/tabular"
)

const (
	StaticLoadID  = "system.load_balance.static_load_requirement"
	LoadBalanceID = "system.load_balance.load_balance"

	// ProductionComponents and ConsumptionComponents are ModuleContext
	// registries.
	ProductionComponents  = "load_balance_production_components"
	ConsumptionComponents = "load_balance_consumption_components"

	ZoneTimepoints  = "LOAD_ZONE_TIMEPOINTS"
	StaticLoad      = "static_load_mw"
	UnservedEnergy  = "Unserved_Energy_MW"
	Overgeneration  = "Overgeneration_MW"
	MeetLoad        = "Meet_Load_Constraint"
	PenaltyCosts    = "Load_Balance_Penalty_Costs"
	ResultsTable    = "load_balance"
	SummaryTable    = "load_balance_summary"
	DefaultPenalty  = 99999.0
	unservedSetting = "unserved_energy_penalty"
	overgenSetting  = "overgeneration_penalty"
)

var loadTable = runtime.InputTable{
	Name:       "load_mw",
	Columns:    []string{"load_zone", "timepoint", "load_mw"},
	KeyColumns: 2,
}

// Register installs the load balance module factories.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(StaticLoadID, func(module.Config) (*module.Unit, error) { return NewStaticLoad(), nil })
	reg.MustRegister(LoadBalanceID, func(cfg module.Config) (*module.Unit, error) { return NewLoadBalance(cfg) })
}

// NewStaticLoad builds the static load requirement unit.
func NewStaticLoad() *module.Unit {
	unit := &module.Unit{
		Info: module.Info{
			ID:          StaticLoadID,
			Name:        "Static Load Requirement",
			Description: "Declares the fixed load of each zone and timepoint and registers it as consumption.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			if err := runtime.Declare(b, StaticLoadID,
				model.Component{Name: ZoneTimepoints, Kind: model.KindSet, Doc: "load zone x timepoint"},
				model.Component{Name: StaticLoad, Kind: model.KindParam, Index: ZoneTimepoints},
			); err != nil {
				return err
			}
			ctx.Append(ConsumptionComponents, StaticLoad)
			return nil
		},
		LoadData: func(ctx *module.ModuleContext, source module.DataSource) error {
			t, err := runtime.ReadTable(StaticLoadID, source, loadTable.Name, loadTable.Columns...)
			if err != nil {
				return err
			}
			zones, _ := t.Column("load_zone")
			tmps, _ := t.Column("timepoint")
			members := make([]string, len(zones))
			for i := range zones {
				members[i] = runtime.Key(zones[i], tmps[i])
			}
			if err := ctx.Model.SetMembers(ZoneTimepoints, members); err != nil {
				return fmt.Errorf("%s: %w", StaticLoadID, err)
			}
			values, err := runtime.Values(t, "load_mw", "load_zone", "timepoint")
			if err != nil {
				return fmt.Errorf("%s: %w", StaticLoadID, err)
			}
			if err := ctx.Model.SetValues(StaticLoad, values); err != nil {
				return fmt.Errorf("%s: %w", StaticLoadID, err)
			}
			return nil
		},
	}
	runtime.SetupPhases(unit, loadTable)
	validate := unit.ValidateInputs
	unit.ValidateInputs = func(ctx *module.ModuleContext, source module.DataSource) error {
		if err := validate(ctx, source); err != nil {
			return err
		}
		return validateLoad(source)
	}
	return unit
}

// validateLoad checks that load rows reference known zones and timepoints
// and that every zone-timepoint pair appears once.
func validateLoad(source module.DataSource) error {
	load, err := source.Table(loadTable.Name)
	if err != nil {
		return fmt.Errorf("%s: %w", StaticLoadID, err)
	}
	zones, err := knownKeys(source, geography.LoadZonesTable, "load_zone")
	if err != nil {
		return err
	}
	tmps, err := knownKeys(source, temporal.TimepointsTable, "timepoint")
	if err != nil {
		return err
	}
	zi, ti, li := load.Index("load_zone"), load.Index("timepoint"), load.Index("load_mw")
	seen := map[string]struct{}{}
	for r, row := range load.Rows {
		if _, ok := zones[row[zi]]; !ok {
			return fmt.Errorf("%s: load row %d has unknown load zone %q", StaticLoadID, r+1, row[zi])
		}
		if _, ok := tmps[row[ti]]; !ok {
			return fmt.Errorf("%s: load row %d has unknown timepoint %q", StaticLoadID, r+1, row[ti])
		}
		key := runtime.Key(row[zi], row[ti])
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%s: load row %d repeats %s", StaticLoadID, r+1, key)
		}
		seen[key] = struct{}{}
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[li]), 64); err != nil || v < 0 {
			return fmt.Errorf("%s: load row %d has invalid load_mw %q", StaticLoadID, r+1, row[li])
		}
	}
	return nil
}

func knownKeys(source module.DataSource, table, column string) (map[string]struct{}, error) {
	t, err := runtime.ReadTable(StaticLoadID, source, table, column)
	if err != nil {
		return nil, err
	}
	values, _ := t.Column(column)
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out, nil
}

// Penalties are the fallback per-MW penalties used where a load zone has
// none of its own.
type Penalties struct {
	UnservedEnergy float64
	Overgeneration float64
}

// NewLoadBalance builds the load balance unit. cfg may set
// unserved_energy_penalty and overgeneration_penalty.
func NewLoadBalance(cfg module.Config) (*module.Unit, error) {
	var p Penalties
	var err error
	if p.UnservedEnergy, err = runtime.Float(cfg, unservedSetting, DefaultPenalty); err != nil {
		return nil, fmt.Errorf("%s: %w", LoadBalanceID, err)
	}
	if p.Overgeneration, err = runtime.Float(cfg, overgenSetting, DefaultPenalty); err != nil {
		return nil, fmt.Errorf("%s: %w", LoadBalanceID, err)
	}
	if p.UnservedEnergy < 0 || p.Overgeneration < 0 {
		return nil, fmt.Errorf("%s: penalties must not be negative", LoadBalanceID)
	}
	return &module.Unit{
		Info: module.Info{
			ID:          LoadBalanceID,
			Name:        "Load Balance",
			Description: "Adds slack variables and the constraint balancing production against consumption.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			ctx.Append(ProductionComponents, UnservedEnergy)
			ctx.Append(ConsumptionComponents, Overgeneration)
			production := ctx.Registry(ProductionComponents)
			consumption := ctx.Registry(ConsumptionComponents)
			return runtime.Declare(b, LoadBalanceID,
				model.Component{Name: UnservedEnergy, Kind: model.KindVar, Index: ZoneTimepoints},
				model.Component{Name: Overgeneration, Kind: model.KindVar, Index: ZoneTimepoints},
				model.Component{
					Name:  MeetLoad,
					Kind:  model.KindConstraint,
					Index: ZoneTimepoints,
					Doc:   strings.Join(production, " + ") + " == " + strings.Join(consumption, " + "),
				},
				model.Component{
					Name: PenaltyCosts,
					Kind: model.KindExpression,
					Doc:  fmt.Sprintf("%s * %g + %s * %g", UnservedEnergy, p.UnservedEnergy, Overgeneration, p.Overgeneration),
				},
			)
		},
		ExportResults: func(ctx *module.ModuleContext, sink module.Sink) error {
			t, err := exportBalance(ctx, p)
			if err != nil {
				return err
			}
			if err := sink.WriteTable(ResultsTable, t); err != nil {
				return fmt.Errorf("%s: write %s: %w", LoadBalanceID, ResultsTable, err)
			}
			return nil
		},
		ImportResults: func(ctx *module.ModuleContext, results module.DataSource, store module.ResultsStore) error {
			t, err := runtime.ReadTable(LoadBalanceID, results, ResultsTable, "load_zone", "timepoint", "load_mw")
			if err != nil {
				return err
			}
			if err := store.ImportTable(ResultsTable, t); err != nil {
				return fmt.Errorf("%s: import %s: %w", LoadBalanceID, ResultsTable, err)
			}
			return nil
		},
		PostProcessResults: func(ctx *module.ModuleContext, store module.ResultsStore) error {
			t, err := runtime.ReadTable(LoadBalanceID, store, ResultsTable, "load_zone", "load_mw")
			if err != nil {
				return err
			}
			summary, err := Summarize(t)
			if err != nil {
				return fmt.Errorf("%s: %w", LoadBalanceID, err)
			}
			if err := store.ImportTable(SummaryTable, summary); err != nil {
				return fmt.Errorf("%s: import %s: %w", LoadBalanceID, SummaryTable, err)
			}
			return nil
		},
	}, nil
}

// exportBalance writes one row per zone and timepoint with the load to meet
// and the penalty rates that apply to its slack.
func exportBalance(ctx *module.ModuleContext, p Penalties) (tabular.Table, error) {
	out := tabular.New("load_zone", "timepoint", "load_mw", "unserved_energy_penalty_per_mw", "overgeneration_penalty_per_mw")
	loads := ctx.Model.Values(StaticLoad)
	unserved := ctx.Model.Values("unserved_energy_penalty_per_mw")
	overgen := ctx.Model.Values("overgeneration_penalty_per_mw")
	for _, member := range ctx.Model.Members(ZoneTimepoints) {
		zone, tmp, ok := strings.Cut(member, runtime.KeySeparator)
		if !ok {
			return tabular.Table{}, fmt.Errorf("%s: malformed %s member %q", LoadBalanceID, ZoneTimepoints, member)
		}
		ue, ok := unserved[zone]
		if !ok {
			ue = p.UnservedEnergy
		}
		og, ok := overgen[zone]
		if !ok {
			og = p.Overgeneration
		}
		if err := out.Append(zone, tmp, formatFloat(loads[member]), formatFloat(ue), formatFloat(og)); err != nil {
			return tabular.Table{}, err
		}
	}
	return out, nil
}

// Summarize totals load per zone and records each zone's peak.
func Summarize(t tabular.Table) (tabular.Table, error) {
	zones, err := t.Column("load_zone")
	if err != nil {
		return tabular.Table{}, err
	}
	loads, err := t.Floats("load_mw")
	if err != nil {
		return tabular.Table{}, err
	}
	type totals struct {
		sum, peak float64
		n         int
	}
	byZone := map[string]*totals{}
	for i, zone := range zones {
		z, ok := byZone[zone]
		if !ok {
			z = &totals{peak: loads[i]}
			byZone[zone] = z
		}
		z.sum += loads[i]
		z.n++
		if loads[i] > z.peak {
			z.peak = loads[i]
		}
	}
	names := make([]string, 0, len(byZone))
	for zone := range byZone {
		names = append(names, zone)
	}
	sort.Strings(names)
	out := tabular.New("load_zone", "timepoints", "total_load_mw", "peak_load_mw")
	for _, zone := range names {
		z := byZone[zone]
		if err := out.Append(zone, strconv.Itoa(z.n), formatFloat(z.sum), formatFloat(z.peak)); err != nil {
			return tabular.Table{}, err
		}
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
