// Package objective builds the objective function. Cost modules append the
// names of their cost expressions to the CostComponents registry during
// AddStructure; objective.max_npv, last in the catalog, reads the registry
// and declares the NPV objective over every component.
package objective

import (
	"fmt"
	"strings"

	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/modules/loadbalance"
	"github.com/kingrea/gridrun/internal/modules/runtime"
	"github.com/kingrea/gridrun/internal/tabular"
)

const (
	MaxNPVID               = "objective.max_npv"
	LoadBalancePenaltiesID = "objective.system.aggregate_load_balance_penalties"

	// CostComponents and RevenueComponents are ModuleContext registries of
	// expression names.
	CostComponents    = "objective_cost_components"
	RevenueComponents = "objective_revenue_components"

	NPV               = "NPV"
	TotalPenaltyCosts = "Total_Load_Balance_Penalty_Costs"
	ComponentsTable   = "objective_components"
)

// Register installs the objective module factories.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(LoadBalancePenaltiesID, func(module.Config) (*module.Unit, error) { return NewLoadBalancePenalties(), nil })
	reg.MustRegister(MaxNPVID, func(module.Config) (*module.Unit, error) { return NewMaxNPV(), nil })
}

// NewLoadBalancePenalties builds the unit that adds load balance penalties
// to the objective.
func NewLoadBalancePenalties() *module.Unit {
	return &module.Unit{
		Info: module.Info{
			ID:          LoadBalancePenaltiesID,
			Name:        "Aggregate Load Balance Penalties",
			Description: "Sums unserved energy and overgeneration penalties into an objective cost component.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			if !b.Has(loadbalance.PenaltyCosts) {
				return fmt.Errorf("%s: %s is not declared", LoadBalancePenaltiesID, loadbalance.PenaltyCosts)
			}
			if err := runtime.Declare(b, LoadBalancePenaltiesID, model.Component{
				Name: TotalPenaltyCosts,
				Kind: model.KindExpression,
				Doc:  "sum over " + loadbalance.ZoneTimepoints + " of " + loadbalance.PenaltyCosts + " * hours",
			}); err != nil {
				return err
			}
			ctx.Append(CostComponents, TotalPenaltyCosts)
			return nil
		},
	}
}

// NewMaxNPV builds the objective unit.
func NewMaxNPV() *module.Unit {
	return &module.Unit{
		Info: module.Info{
			ID:          MaxNPVID,
			Name:        "Maximize NPV",
			Description: "Declares the objective: revenue components minus cost components.",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			costs := ctx.Registry(CostComponents)
			revenues := ctx.Registry(RevenueComponents)
			if len(costs) == 0 && len(revenues) == 0 {
				return fmt.Errorf("%s: no cost or revenue components registered", MaxNPVID)
			}
			return runtime.Declare(b, MaxNPVID, model.Component{
				Name: NPV,
				Kind: model.KindObjective,
				Doc:  Expression(revenues, costs),
			})
		},
		ExportResults: func(ctx *module.ModuleContext, sink module.Sink) error {
			t := tabular.New("component", "role", "owner")
			for _, role := range []struct{ registry, name string }{
				{RevenueComponents, "revenue"},
				{CostComponents, "cost"},
			} {
				for _, name := range ctx.Registry(role.registry) {
					owner := ""
					if c, ok := ctx.Model.Component(name); ok {
						owner = c.Owner
					}
					if err := t.Append(name, role.name, owner); err != nil {
						return err
					}
				}
			}
			if err := sink.WriteTable(ComponentsTable, t); err != nil {
				return fmt.Errorf("%s: write %s: %w", MaxNPVID, ComponentsTable, err)
			}
			return nil
		},
		ImportResults: func(ctx *module.ModuleContext, results module.DataSource, store module.ResultsStore) error {
			t, err := runtime.ReadTable(MaxNPVID, results, ComponentsTable, "component", "role", "owner")
			if err != nil {
				return err
			}
			if err := store.ImportTable(ComponentsTable, t); err != nil {
				return fmt.Errorf("%s: import %s: %w", MaxNPVID, ComponentsTable, err)
			}
			return nil
		},
	}
}

// Expression renders the objective as revenues minus costs.
func Expression(revenues, costs []string) string {
	var b strings.Builder
	b.WriteString("maximize ")
	if len(revenues) == 0 {
		b.WriteString("0")
	} else {
		b.WriteString(strings.Join(revenues, " + "))
	}
	for _, c := range costs {
		b.WriteString(" - ")
		b.WriteString(c)
	}
	return b.String()
}
