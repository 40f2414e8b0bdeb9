// Package geography provides the zone modules. Each declares one set of
// zones (load zones, reserve balancing areas, policy zones or markets) plus
// the per-zone penalty parameters read from the same table.
package geography

import (
	"strings"

	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/modules/runtime"
)

const (
	LoadZonesID    = "geography.load_zones"
	LoadZones      = "LOAD_ZONES"
	LoadZonesTable = "load_zones"
)

// Zone describes one zone module.
type Zone struct {
	ID     string
	Name   string
	Table  string
	Column string
	Set    string
	// Params are numeric columns of Table loaded as parameters named
	// ParamPrefix+column and indexed by Set.
	Params      []string
	ParamPrefix string
}

// Zones lists every zone module in catalog order.
var Zones = []Zone{
	{
		ID: LoadZonesID, Name: "Load Zones", Table: LoadZonesTable, Column: "load_zone", Set: LoadZones,
		Params: []string{"overgeneration_penalty_per_mw", "unserved_energy_penalty_per_mw"},
	},
	reserveZone("geography.load_following_up_balancing_areas", "Load Following Up Balancing Areas", "lf_reserves_up"),
	reserveZone("geography.load_following_down_balancing_areas", "Load Following Down Balancing Areas", "lf_reserves_down"),
	reserveZone("geography.regulation_up_balancing_areas", "Regulation Up Balancing Areas", "regulation_up"),
	reserveZone("geography.regulation_down_balancing_areas", "Regulation Down Balancing Areas", "regulation_down"),
	reserveZone("geography.frequency_response_balancing_areas", "Frequency Response Balancing Areas", "frequency_response"),
	reserveZone("geography.spinning_reserves_balancing_areas", "Spinning Reserves Balancing Areas", "spinning_reserves"),
	{
		ID: "geography.energy_target_zones", Name: "Energy Target Zones", Table: "energy_target_zones",
		Column: "energy_target_zone", Set: "ENERGY_TARGET_ZONES",
		Params: []string{"energy_target_allow_violation", "energy_target_violation_penalty_per_mwh"},
	},
	{
		ID: "geography.carbon_cap_zones", Name: "Carbon Cap Zones", Table: "carbon_cap_zones",
		Column: "carbon_cap_zone", Set: "CARBON_CAP_ZONES",
		Params: []string{"carbon_cap_allow_violation", "carbon_cap_violation_penalty_per_emission"},
	},
	{
		ID: "geography.carbon_tax_zones", Name: "Carbon Tax Zones", Table: "carbon_tax_zones",
		Column: "carbon_tax_zone", Set: "CARBON_TAX_ZONES",
	},
	{
		ID: "geography.prm_zones", Name: "PRM Zones", Table: "prm_zones",
		Column: "prm_zone", Set: "PRM_ZONES",
		Params: []string{"prm_allow_violation", "prm_violation_penalty_per_mw"},
	},
	{
		ID: "geography.local_capacity_zones", Name: "Local Capacity Zones", Table: "local_capacity_zones",
		Column: "local_capacity_zone", Set: "LOCAL_CAPACITY_ZONES",
		Params: []string{"local_capacity_allow_violation", "local_capacity_violation_penalty_per_mw"},
	},
	{
		ID: "geography.markets", Name: "Markets", Table: "markets",
		Column: "market", Set: "MARKETS",
	},
}

// reserveZone describes a reserve balancing area module. Their tables share
// column names, so parameters carry the reserve type as a prefix.
func reserveZone(id, name, reserve string) Zone {
	return Zone{
		ID:          id,
		Name:        name,
		Table:       reserve + "_balancing_areas",
		Column:      "balancing_area",
		Set:         strings.ToUpper(reserve) + "_ZONES",
		Params:      []string{"violation_penalty_per_mw", "reserve_to_energy_adjustment"},
		ParamPrefix: reserve + "_",
	}
}

// Register installs a factory for every zone module.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	for _, zone := range Zones {
		zone := zone
		reg.MustRegister(zone.ID, func(module.Config) (*module.Unit, error) {
			return zone.Unit(), nil
		})
	}
}

// Unit builds the zone module.
func (z Zone) Unit() *module.Unit {
	input := runtime.InputTable{Name: z.Table, Columns: append([]string{z.Column}, z.Params...)}
	unit := &module.Unit{
		Info: module.Info{
			ID:          z.ID,
			Name:        z.Name,
			Description: "Declares " + z.Set + " from " + z.Table + ".",
		},
		AddStructure: func(ctx *module.ModuleContext, b module.ModelBuilder) error {
			components := []model.Component{{Name: z.Set, Kind: model.KindSet}}
			for _, p := range z.Params {
				components = append(components, model.Component{Name: z.ParamPrefix + p, Kind: model.KindParam, Index: z.Set})
			}
			return runtime.Declare(b, z.ID, components...)
		},
		LoadData: func(ctx *module.ModuleContext, source module.DataSource) error {
			t, err := runtime.ReadTable(z.ID, source, z.Table, input.Columns...)
			if err != nil {
				return err
			}
			if _, err := runtime.LoadSet(ctx, z.ID, t, z.Column, z.Set); err != nil {
				return err
			}
			for _, p := range z.Params {
				if err := runtime.LoadParam(ctx, z.ID, t, z.Column, p, z.ParamPrefix+p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	runtime.SetupPhases(unit, input)
	return unit
}
