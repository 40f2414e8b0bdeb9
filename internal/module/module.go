package module

import (
	"fmt"
	"strings"
)

// Info describes a module's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("module: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("module: name is required for %s", i.ID)
	}
	return nil
}

// Phase is one step of the fixed lifecycle vocabulary.
type Phase int

const (
	AddStructure Phase = iota + 1
	LoadData
	ReadFromStore
	WriteDerivedInputs
	ValidateInputs
	ExportResults
	ImportResults
	PostProcessResults
)

var phaseNames = map[Phase]string{
	AddStructure:       "add_structure",
	LoadData:           "load_data",
	ReadFromStore:      "read_from_store",
	WriteDerivedInputs: "write_derived_inputs",
	ValidateInputs:     "validate_inputs",
	ExportResults:      "export_results",
	ImportResults:      "import_results",
	PostProcessResults: "post_process_results",
}

// Phases returns the vocabulary in lifecycle order.
func Phases() []Phase {
	return []Phase{
		AddStructure,
		LoadData,
		ReadFromStore,
		WriteDerivedInputs,
		ValidateInputs,
		ExportResults,
		ImportResults,
		PostProcessResults,
	}
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Valid reports whether p belongs to the vocabulary.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// MarshalText renders the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("module: unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase accepts snake_case names ("load_data") as well as the CamelCase
// form ("LoadData").
func ParsePhase(name string) (Phase, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for phase, candidate := range phaseNames {
		if normalized == candidate || normalized == strings.ReplaceAll(candidate, "_", "") {
			return phase, nil
		}
	}
	return 0, fmt.Errorf("module: unknown phase %q", name)
}

// ParsePhases parses a list of phase names in the given order.
func ParsePhases(names []string) ([]Phase, error) {
	out := make([]Phase, 0, len(names))
	for _, name := range names {
		phase, err := ParsePhase(name)
		if err != nil {
			return nil, err
		}
		out = append(out, phase)
	}
	return out, nil
}

// Unit is a bound module: its identity plus one optional function per phase.
// A nil function means the unit does not take part in that phase.
type Unit struct {
	Info Info

	AddStructure       func(ctx *ModuleContext, builder ModelBuilder) error
	LoadData           func(ctx *ModuleContext, source DataSource) error
	ReadFromStore      func(ctx *ModuleContext, source DataSource) error
	WriteDerivedInputs func(ctx *ModuleContext, sink Sink) error
	ValidateInputs     func(ctx *ModuleContext, source DataSource) error
	ExportResults      func(ctx *ModuleContext, sink Sink) error
	ImportResults      func(ctx *ModuleContext, results DataSource, store ResultsStore) error
	PostProcessResults func(ctx *ModuleContext, store ResultsStore) error
}

// ID returns the unit's module id.
func (u *Unit) ID() string {
	return u.Info.ID
}

// Has reports whether the unit implements phase.
func (u *Unit) Has(phase Phase) bool {
	if u == nil {
		return false
	}
	switch phase {
	case AddStructure:
		return u.AddStructure != nil
	case LoadData:
		return u.LoadData != nil
	case ReadFromStore:
		return u.ReadFromStore != nil
	case WriteDerivedInputs:
		return u.WriteDerivedInputs != nil
	case ValidateInputs:
		return u.ValidateInputs != nil
	case ExportResults:
		return u.ExportResults != nil
	case ImportResults:
		return u.ImportResults != nil
	case PostProcessResults:
		return u.PostProcessResults != nil
	default:
		return false
	}
}

// Capabilities lists the phases the unit implements, in lifecycle order.
func (u *Unit) Capabilities() []Phase {
	var out []Phase
	for _, phase := range Phases() {
		if u.Has(phase) {
			out = append(out, phase)
		}
	}
	return out
}
