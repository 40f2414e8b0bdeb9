package catalog

import "sync"

// MultiStageModule is the id of the module that fixes commitment decisions
// between the stages of a subproblem.
const MultiStageModule = "project.operations.fix_commitment"

// Default returns the built-in GridPath catalog.
var Default = sync.OnceValue(func() *Catalog {
	return MustNew(DefaultDefinition())
})

// DefaultDefinition returns a fresh copy of the built-in catalog content.
func DefaultDefinition() Definition {
	return Definition{
		Modules:          defaultModules(),
		MultiStageModule: MultiStageModule,
		Optional:         defaultOptional(),
		Cross:            defaultCross(),
		Shared:           defaultShared(),
	}
}

func defaultModules() []string {
	return []string{
		"temporal.operations.timepoints",
		"temporal.operations.horizons",
		"temporal.investment.periods",
		"geography.load_zones",
		"geography.load_following_up_balancing_areas",
		"geography.load_following_down_balancing_areas",
		"geography.regulation_up_balancing_areas",
		"geography.regulation_down_balancing_areas",
		"geography.frequency_response_balancing_areas",
		"geography.spinning_reserves_balancing_areas",
		"geography.energy_target_zones",
		"geography.carbon_cap_zones",
		"geography.carbon_tax_zones",
		"geography.prm_zones",
		"geography.local_capacity_zones",
		"geography.markets",
		"system.load_balance.static_load_requirement",
		"system.reserves.requirement.lf_reserves_up",
		"system.reserves.requirement.lf_reserves_down",
		"system.reserves.requirement.regulation_up",
		"system.reserves.requirement.regulation_down",
		"system.reserves.requirement.frequency_response",
		"system.reserves.requirement.spinning_reserves",
		"system.policy.energy_targets.period_energy_target",
		"system.policy.energy_targets.horizon_energy_target",
		"system.policy.carbon_cap.carbon_cap",
		"system.policy.carbon_tax.carbon_tax",
		"system.reliability.prm.prm_requirement",
		"system.reliability.local_capacity.local_capacity_requirement",
		"system.markets.prices",
		"project",
		"project.capacity",
		"project.capacity.capacity_types",
		"project.capacity.capacity",
		"project.capacity.capacity_groups",
		"project.capacity.costs",
		"project.availability.availability",
		"project.fuels",
		"project.operations",
		"project.operations.reserves.lf_reserves_up",
		"project.operations.reserves.lf_reserves_down",
		"project.operations.reserves.regulation_up",
		"project.operations.reserves.regulation_down",
		"project.operations.reserves.frequency_response",
		"project.operations.reserves.spinning_reserves",
		"project.operations.operational_types",
		"project.operations.reserves.op_type_dependent.lf_reserves_up",
		"project.operations.reserves.op_type_dependent.lf_reserves_down",
		"project.operations.reserves.op_type_dependent.regulation_up",
		"project.operations.reserves.op_type_dependent.regulation_down",
		"project.operations.reserves.op_type_dependent.frequency_response",
		"project.operations.reserves.op_type_dependent.spinning_reserves",
		"project.operations.power",
		"project.operations.fix_commitment",
		"project.operations.fuel_burn",
		"project.operations.costs",
		"project.operations.tuning_costs",
		"project.operations.energy_target_contributions",
		"project.operations.carbon_emissions",
		"project.operations.carbon_cap",
		"project.operations.carbon_tax",
		"project.reliability.prm",
		"project.reliability.prm.prm_types",
		"project.reliability.prm.prm_simple",
		"project.reliability.prm.elcc_surface",
		"project.reliability.prm.group_costs",
		"project.reliability.local_capacity",
		"project.reliability.local_capacity.local_capacity_contribution",
		"transmission",
		"transmission.capacity.capacity_types",
		"transmission.capacity.capacity",
		"transmission.operations.operational_types",
		"transmission.operations.operations",
		"transmission.operations.hurdle_costs",
		"transmission.operations.simultaneous_flow_limits",
		"transmission.operations.carbon_emissions",
		"system.load_balance.aggregate_project_power",
		"system.load_balance.aggregate_transmission_power",
		"transmission.operations.export_penalty_costs",
		"system.load_balance.market_participation",
		"system.load_balance.load_balance",
		"system.reserves.aggregation.lf_reserves_up",
		"system.reserves.aggregation.regulation_up",
		"system.reserves.aggregation.lf_reserves_down",
		"system.reserves.aggregation.regulation_down",
		"system.reserves.aggregation.frequency_response",
		"system.reserves.aggregation.spinning_reserves",
		"system.reserves.balance.lf_reserves_up",
		"system.reserves.balance.regulation_up",
		"system.reserves.balance.lf_reserves_down",
		"system.reserves.balance.regulation_down",
		"system.reserves.balance.frequency_response",
		"system.reserves.balance.spinning_reserves",
		"system.policy.energy_targets.aggregate_period_energy_target_contributions",
		"system.policy.energy_targets.aggregate_horizon_energy_target_contributions",
		"system.policy.energy_targets.period_energy_target_balance",
		"system.policy.energy_targets.horizon_energy_target_balance",
		"system.policy.carbon_cap.aggregate_project_carbon_emissions",
		"system.policy.carbon_cap.aggregate_transmission_carbon_emissions",
		"system.policy.carbon_cap.carbon_balance",
		"system.policy.carbon_tax.aggregate_project_carbon_emissions",
		"system.policy.carbon_tax.carbon_tax_costs",
		"system.reliability.prm.aggregate_project_simple_prm_contribution",
		"system.reliability.prm.elcc_surface",
		"system.reliability.prm.prm_balance",
		"system.reliability.local_capacity.aggregate_local_capacity_contribution",
		"system.reliability.local_capacity.local_capacity_balance",
		"system.markets.volume",
		"objective.project.aggregate_capacity_costs",
		"objective.project.aggregate_prm_group_costs",
		"objective.project.aggregate_operational_costs",
		"objective.project.aggregate_operational_tuning_costs",
		"objective.transmission.aggregate_capacity_costs",
		"objective.transmission.aggregate_hurdle_costs",
		"objective.transmission.aggregate_export_penalty_costs",
		"objective.transmission.carbon_imports_tuning_costs",
		"objective.system.aggregate_load_balance_penalties",
		"objective.system.reserve_violation_penalties.lf_reserves_up",
		"objective.system.reserve_violation_penalties.lf_reserves_down",
		"objective.system.reserve_violation_penalties.regulation_up",
		"objective.system.reserve_violation_penalties.regulation_down",
		"objective.system.reserve_violation_penalties.frequency_response",
		"objective.system.reserve_violation_penalties.spinning_reserves",
		"objective.system.policy.aggregate_period_energy_target_violation_penalties",
		"objective.system.policy.aggregate_horizon_energy_target_violation_penalties",
		"objective.system.policy.aggregate_carbon_cap_violation_penalties",
		"objective.system.policy.aggregate_carbon_tax_costs",
		"objective.system.reliability.prm.dynamic_elcc_tuning_penalties",
		"objective.system.reliability.prm.aggregate_prm_violation_penalties",
		"objective.system.reliability.local_capacity.aggregate_local_capacity_violation_penalties",
		"objective.system.aggregate_market_revenue_and_costs",
		"objective.max_npv",
	}
}

func defaultOptional() []FeatureRule {
	return []FeatureRule{
		{Feature: "transmission", Modules: []string{
			"transmission",
			"transmission.capacity.capacity_types",
			"transmission.capacity.capacity",
			"transmission.operations.operational_types",
			"transmission.operations.operations",
			"system.load_balance.aggregate_transmission_power",
			"transmission.operations.export_penalty_costs",
			"objective.transmission.aggregate_capacity_costs",
			"objective.transmission.aggregate_export_penalty_costs",
		}},
		{Feature: "lf_reserves_up", Modules: []string{
			"geography.load_following_up_balancing_areas",
			"system.reserves.requirement.lf_reserves_up",
			"project.operations.reserves.lf_reserves_up",
			"project.operations.reserves.op_type_dependent.lf_reserves_up",
			"system.reserves.aggregation.lf_reserves_up",
			"system.reserves.balance.lf_reserves_up",
			"objective.system.reserve_violation_penalties.lf_reserves_up",
		}},
		{Feature: "lf_reserves_down", Modules: []string{
			"geography.load_following_down_balancing_areas",
			"system.reserves.requirement.lf_reserves_down",
			"project.operations.reserves.lf_reserves_down",
			"project.operations.reserves.op_type_dependent.lf_reserves_down",
			"system.reserves.aggregation.lf_reserves_down",
			"system.reserves.balance.lf_reserves_down",
			"objective.system.reserve_violation_penalties.lf_reserves_down",
		}},
		{Feature: "regulation_up", Modules: []string{
			"geography.regulation_up_balancing_areas",
			"system.reserves.requirement.regulation_up",
			"project.operations.reserves.regulation_up",
			"project.operations.reserves.op_type_dependent.regulation_up",
			"system.reserves.aggregation.regulation_up",
			"system.reserves.balance.regulation_up",
			"objective.system.reserve_violation_penalties.regulation_up",
		}},
		{Feature: "regulation_down", Modules: []string{
			"geography.regulation_down_balancing_areas",
			"system.reserves.requirement.regulation_down",
			"project.operations.reserves.regulation_down",
			"system.reserves.aggregation.regulation_down",
			"project.operations.reserves.op_type_dependent.regulation_down",
			"system.reserves.balance.regulation_down",
			"objective.system.reserve_violation_penalties.regulation_down",
		}},
		{Feature: "frequency_response", Modules: []string{
			"geography.frequency_response_balancing_areas",
			"system.reserves.requirement.frequency_response",
			"project.operations.reserves.frequency_response",
			"project.operations.reserves.op_type_dependent.frequency_response",
			"system.reserves.aggregation.frequency_response",
			"system.reserves.balance.frequency_response",
			"objective.system.reserve_violation_penalties.frequency_response",
		}},
		{Feature: "spinning_reserves", Modules: []string{
			"geography.spinning_reserves_balancing_areas",
			"system.reserves.requirement.spinning_reserves",
			"project.operations.reserves.spinning_reserves",
			"project.operations.reserves.op_type_dependent.spinning_reserves",
			"system.reserves.aggregation.spinning_reserves",
			"system.reserves.balance.spinning_reserves",
			"objective.system.reserve_violation_penalties.spinning_reserves",
		}},
		{Feature: "period_energy_target", Modules: []string{
			"system.policy.energy_targets.period_energy_target",
			"system.policy.energy_targets.aggregate_period_energy_target_contributions",
			"system.policy.energy_targets.period_energy_target_balance",
			"objective.system.policy.aggregate_period_energy_target_violation_penalties",
		}},
		{Feature: "horizon_energy_target", Modules: []string{
			"system.policy.energy_targets.horizon_energy_target",
			"system.policy.energy_targets.aggregate_horizon_energy_target_contributions",
			"system.policy.energy_targets.horizon_energy_target_balance",
			"objective.system.policy.aggregate_horizon_energy_target_violation_penalties",
		}},
		{Feature: "carbon_cap", Modules: []string{
			"geography.carbon_cap_zones",
			"system.policy.carbon_cap.carbon_cap",
			"project.operations.carbon_cap",
			"system.policy.carbon_cap.aggregate_project_carbon_emissions",
			"system.policy.carbon_cap.carbon_balance",
			"objective.system.policy.aggregate_carbon_cap_violation_penalties",
		}},
		{Feature: "carbon_tax", Modules: []string{
			"geography.carbon_tax_zones",
			"system.policy.carbon_tax.carbon_tax",
			"project.operations.carbon_tax",
			"system.policy.carbon_tax.aggregate_project_carbon_emissions",
			"system.policy.carbon_tax.carbon_tax_costs",
			"objective.system.policy.aggregate_carbon_tax_costs",
		}},
		{Feature: "prm", Modules: []string{
			"geography.prm_zones",
			"system.reliability.prm.prm_requirement",
			"project.reliability.prm",
			"project.reliability.prm.prm_types",
			"project.reliability.prm.prm_simple",
			"project.reliability.prm.group_costs",
			"system.reliability.prm.aggregate_project_simple_prm_contribution",
			"system.reliability.prm.prm_balance",
			"objective.project.aggregate_prm_group_costs",
			"objective.system.reliability.prm.aggregate_prm_violation_penalties",
		}},
		{Feature: "local_capacity", Modules: []string{
			"geography.local_capacity_zones",
			"system.reliability.local_capacity.local_capacity_requirement",
			"project.reliability.local_capacity",
			"project.reliability.local_capacity.local_capacity_contribution",
			"system.reliability.local_capacity.aggregate_local_capacity_contribution",
			"system.reliability.local_capacity.local_capacity_balance",
			"objective.system.reliability.local_capacity.aggregate_local_capacity_violation_penalties",
		}},
		{Feature: "markets", Modules: []string{
			"geography.markets",
			"system.markets.prices",
			"system.load_balance.market_participation",
			"system.markets.volume",
			"objective.system.aggregate_market_revenue_and_costs",
		}},
		{Feature: "tuning", Modules: []string{
			"project.operations.tuning_costs",
			"objective.project.aggregate_operational_tuning_costs",
		}},
	}
}

func defaultCross() []GroupRule {
	return []GroupRule{
		{
			Features: []string{"transmission", "transmission_hurdle_rates"},
			Modules: []string{
				"transmission.operations.hurdle_costs",
				"objective.transmission.aggregate_hurdle_costs",
			},
		},
		{
			Features: []string{"transmission", "carbon_cap", "track_carbon_imports"},
			Modules: []string{
				"system.policy.carbon_cap.aggregate_transmission_carbon_emissions",
				"transmission.operations.carbon_emissions",
			},
		},
		{
			Features: []string{"transmission", "carbon_cap", "track_carbon_imports", "tuning"},
			Modules: []string{
				"objective.transmission.carbon_imports_tuning_costs",
			},
		},
		{
			Features: []string{"transmission", "simultaneous_flow_limits"},
			Modules: []string{
				"transmission.operations.simultaneous_flow_limits",
			},
		},
		{
			Features: []string{"prm", "elcc_surface"},
			Modules: []string{
				"project.reliability.prm.elcc_surface",
				"system.reliability.prm.elcc_surface",
			},
		},
		{
			Features: []string{"prm", "elcc_surface", "tuning"},
			Modules: []string{
				"objective.system.reliability.prm.dynamic_elcc_tuning_penalties",
			},
		},
	}
}

func defaultShared() []GroupRule {
	return []GroupRule{
		{
			Features: []string{"period_energy_target", "horizon_energy_target"},
			Modules: []string{
				"geography.energy_target_zones",
				"project.operations.energy_target_contributions",
			},
		},
	}
}
