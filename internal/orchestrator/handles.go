package orchestrator

import (
	"fmt"

	"github.com/kingrea/gridrun/internal/config"
	"github.com/kingrea/gridrun/internal/module"
)

// Handles are the external collaborators passed through to units. Only the
// handles a phase uses need to be set.
type Handles struct {
	// Builder receives AddStructure. Defaults to the context's model.
	Builder module.ModelBuilder
	// Source feeds LoadData, ReadFromStore and ValidateInputs.
	Source module.DataSource
	// Sink receives WriteDerivedInputs and ExportResults.
	Sink module.Sink
	// Results holds the exported results read by ImportResults.
	Results module.DataSource
	// Store receives ImportResults and serves PostProcessResults.
	Store module.ResultsStore
}

func (h Handles) withDefaults(mc *module.ModuleContext) Handles {
	if h.Builder == nil && mc != nil && mc.Model != nil {
		h.Builder = mc.Model
	}
	return h
}

// check reports the first handle phase needs that h lacks.
func (h Handles) check(phase module.Phase) error {
	var missing string
	switch phase {
	case module.AddStructure:
		if h.Builder == nil {
			missing = "model builder"
		}
	case module.LoadData, module.ReadFromStore, module.ValidateInputs:
		if h.Source == nil {
			missing = "data source"
		}
	case module.WriteDerivedInputs, module.ExportResults:
		if h.Sink == nil {
			missing = "sink"
		}
	case module.ImportResults:
		if h.Results == nil {
			missing = "results source"
		} else if h.Store == nil {
			missing = "results store"
		}
	case module.PostProcessResults:
		if h.Store == nil {
			missing = "results store"
		}
	default:
		return fmt.Errorf("orchestrator: unknown phase %s", phase)
	}
	if missing != "" {
		return &config.ConfigurationError{
			Op:  "phase " + phase.String(),
			Err: fmt.Errorf("%s handle is required", missing),
		}
	}
	return nil
}

func invoke(phase module.Phase, unit *module.Unit, mc *module.ModuleContext, h Handles) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	switch phase {
	case module.AddStructure:
		return unit.AddStructure(mc, h.Builder)
	case module.LoadData:
		return unit.LoadData(mc, h.Source)
	case module.ReadFromStore:
		return unit.ReadFromStore(mc, h.Source)
	case module.WriteDerivedInputs:
		return unit.WriteDerivedInputs(mc, h.Sink)
	case module.ValidateInputs:
		return unit.ValidateInputs(mc, h.Source)
	case module.ExportResults:
		return unit.ExportResults(mc, h.Sink)
	case module.ImportResults:
		return unit.ImportResults(mc, h.Results, h.Store)
	case module.PostProcessResults:
		return unit.PostProcessResults(mc, h.Store)
	default:
		return fmt.Errorf("unknown phase %s", phase)
	}
}
