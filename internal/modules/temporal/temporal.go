// Package temporal provides the time-domain modules: operational timepoints,
// balancing horizons and investment periods. Every later module indexes its
// structure over TIMEPOINTS, so these load first in the catalog.
package temporal

import (
	"fmt"
	"strconv"

	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/modules/runtime"
	"github.com/kingrea/gridrun/internal/tabular"
)

const (
	TimepointsID = "temporal.operations.timepoints"
	HorizonsID   = "temporal.operations.horizons"
	PeriodsID    = "temporal.investment.periods"

	Timepoints = "TIMEPOINTS"
	Horizons   = "HORIZONS"
	Periods    = "PERIODS"

	HoursInTimepoint = "number_of_hours_in_timepoint"
	TimepointsTable  = "timepoints"
)

var (
	timepointsTable = runtime.InputTable{
		Name:    TimepointsTable,
		Columns: []string{"timepoint", "period", "horizon", HoursInTimepoint},
	}
	horizonsTable = runtime.InputTable{
		Name:    "horizons",
		Columns: []string{"horizon", "boundary"},
	}
	periodsTable = runtime.InputTable{
		Name:    "periods",
		Columns: []string{"period", "discount_factor", "number_years_represented"},
	}
)

// Register installs the temporal module factories.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(TimepointsID, func(module.Config) (*module.Unit, error) { return NewTimepoints(), nil })
	reg.MustRegister(HorizonsID, func(module.Config) (*module.Unit, error) { return NewHorizons(), nil })
	reg.MustRegister(PeriodsID, func(module.Config) (*module.Unit, error) { return NewPeriods(), nil })
}

// NewTimepoints builds the timepoints unit.
func NewTimepoints() *module.Unit {
	unit := &module.Unit{
		Info: module.Info{
			ID:          TimepointsID,
			Name:        "Timepoints",
			Description: "Declares TIMEPOINTS and the hours each timepoint represents.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			return runtime.Declare(b, TimepointsID,
				model.Component{Name: Timepoints, Kind: model.KindSet, Doc: "operational timepoints"},
				model.Component{Name: HoursInTimepoint, Kind: model.KindParam, Index: Timepoints},
			)
		},
		LoadData: func(ctx *module.ModuleContext, source module.DataSource) error {
			t, err := runtime.ReadTable(TimepointsID, source, timepointsTable.Name, "timepoint", HoursInTimepoint)
			if err != nil {
				return err
			}
			members, err := runtime.LoadSet(ctx, TimepointsID, t, "timepoint", Timepoints)
			if err != nil {
				return err
			}
			if err := runtime.LoadParam(ctx, TimepointsID, t, "timepoint", HoursInTimepoint, HoursInTimepoint); err != nil {
				return err
			}
			ctx.Logger.Debug("loaded timepoints", "count", len(members))
			return nil
		},
	}
	runtime.SetupPhases(unit, timepointsTable)
	validate := unit.ValidateInputs
	unit.ValidateInputs = func(ctx *module.ModuleContext, source module.DataSource) error {
		if err := validate(ctx, source); err != nil {
			return err
		}
		t, err := source.Table(timepointsTable.Name)
		if err != nil {
			return fmt.Errorf("%s: %w", TimepointsID, err)
		}
		hours, err := t.Floats(HoursInTimepoint)
		if err != nil {
			return fmt.Errorf("%s: %w", TimepointsID, err)
		}
		for i, h := range hours {
			if h <= 0 {
				return fmt.Errorf("%s: timepoint row %d has non-positive %s %v", TimepointsID, i+1, HoursInTimepoint, h)
			}
		}
		return nil
	}
	return unit
}

// NewHorizons builds the horizons unit. Each timepoint maps to one horizon.
func NewHorizons() *module.Unit {
	unit := &module.Unit{
		Info: module.Info{
			ID:          HorizonsID,
			Name:        "Horizons",
			Description: "Declares balancing HORIZONS and the horizon of each timepoint.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			return runtime.Declare(b, HorizonsID,
				model.Component{Name: Horizons, Kind: model.KindSet, Doc: "balancing horizons"},
				model.Component{Name: "horizon", Kind: model.KindParam, Index: Timepoints, Doc: "horizon of each timepoint"},
			)
		},
		LoadData: func(ctx *module.ModuleContext, source module.DataSource) error {
			return loadMapping(ctx, source, HorizonsID, horizonsTable, Horizons, "horizon")
		},
	}
	runtime.SetupPhases(unit, horizonsTable)
	validate := unit.ValidateInputs
	unit.ValidateInputs = func(ctx *module.ModuleContext, source module.DataSource) error {
		if err := validate(ctx, source); err != nil {
			return err
		}
		t, err := source.Table(horizonsTable.Name)
		if err != nil {
			return fmt.Errorf("%s: %w", HorizonsID, err)
		}
		boundaries, _ := t.Column("boundary")
		for i, b := range boundaries {
			if b != "circular" && b != "linear" {
				return fmt.Errorf("%s: horizon row %d has boundary %q, want circular or linear", HorizonsID, i+1, b)
			}
		}
		return nil
	}
	return unit
}

// NewPeriods builds the investment periods unit.
func NewPeriods() *module.Unit {
	unit := &module.Unit{
		Info: module.Info{
			ID:          PeriodsID,
			Name:        "Periods",
			Description: "Declares investment PERIODS with discounting and the period of each timepoint.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			return runtime.Declare(b, PeriodsID,
				model.Component{Name: Periods, Kind: model.KindSet, Doc: "investment periods"},
				model.Component{Name: "discount_factor", Kind: model.KindParam, Index: Periods},
				model.Component{Name: "number_years_represented", Kind: model.KindParam, Index: Periods},
				model.Component{Name: "period", Kind: model.KindParam, Index: Timepoints, Doc: "period of each timepoint"},
			)
		},
		LoadData: func(ctx *module.ModuleContext, source module.DataSource) error {
			if err := loadMapping(ctx, source, PeriodsID, periodsTable, Periods, "period"); err != nil {
				return err
			}
			t, err := runtime.ReadTable(PeriodsID, source, periodsTable.Name, periodsTable.Columns...)
			if err != nil {
				return err
			}
			for _, column := range []string{"discount_factor", "number_years_represented"} {
				if err := runtime.LoadParam(ctx, PeriodsID, t, "period", column, column); err != nil {
					return err
				}
			}
			return nil
		},
	}
	runtime.SetupPhases(unit, periodsTable)
	return unit
}

// loadMapping loads set from its own table, then the timepoint-to-member
// parameter from the timepoints table. Every timepoint must map to a member.
func loadMapping(ctx *module.ModuleContext, source module.DataSource, moduleID string, own runtime.InputTable, set, column string) error {
	t, err := runtime.ReadTable(moduleID, source, own.Name, own.Columns[0])
	if err != nil {
		return err
	}
	members, err := runtime.LoadSet(ctx, moduleID, t, own.Columns[0], set)
	if err != nil {
		return err
	}
	tmps, err := runtime.ReadTable(moduleID, source, timepointsTable.Name, "timepoint", column)
	if err != nil {
		return err
	}
	return mapTimepoints(ctx, moduleID, tmps, members, set, column)
}

func mapTimepoints(ctx *module.ModuleContext, moduleID string, tmps tabular.Table, members []string, set, column string) error {
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m] = struct{}{}
	}
	ti, ci := tmps.Index("timepoint"), tmps.Index(column)
	values := make(map[string]float64, tmps.Len())
	for r, row := range tmps.Rows {
		if _, ok := known[row[ci]]; !ok {
			return fmt.Errorf("%s: timepoint %s references %s %q not in %s", moduleID, row[ti], column, row[ci], set)
		}
		v, err := strconv.ParseFloat(row[ci], 64)
		if err != nil {
			return fmt.Errorf("%s: timepoints row %d: %s %q is not numeric", moduleID, r+1, column, row[ci])
		}
		values[row[ti]] = v
	}
	if err := ctx.Model.SetValues(column, values); err != nil {
		return fmt.Errorf("%s: %w", moduleID, err)
	}
	return nil
}
