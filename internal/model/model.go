// Package model holds the structure modules contribute during AddStructure
// and fill during LoadData: named sets, parameters, variables, constraints,
// expressions and the objective. It records declarations only; nothing here solves.
package model

import (
	"errors"
	"fmt"
	"sort"
)

// Kind classifies a component.
type Kind string

const (
	KindSet        Kind = "set"
	KindParam      Kind = "param"
	KindVar        Kind = "var"
	KindConstraint Kind = "constraint"
	KindExpression Kind = "expression"
	KindObjective  Kind = "objective"
)

func (k Kind) valid() bool {
	switch k {
	case KindSet, KindParam, KindVar, KindConstraint, KindExpression, KindObjective:
		return true
	default:
		return false
	}
}

// ErrDuplicateComponent is returned when a name is declared twice.
var ErrDuplicateComponent = errors.New("model: duplicate component")

// Component is one named declaration.
type Component struct {
	Name string
	Kind Kind
	// Index names the set the component is indexed over, if any.
	Index string
	Doc   string
	// Owner is the id of the module that declared the component.
	Owner string
}

// Model is the shared structure of one run. It is not safe for concurrent
// use; phases run one unit at a time.
type Model struct {
	order      []string
	components map[string]Component
	members    map[string][]string
	values     map[string]map[string]float64
}

// New returns an empty model.
func New() *Model {
	return &Model{
		components: map[string]Component{},
		members:    map[string][]string{},
		values:     map[string]map[string]float64{},
	}
}

// Add declares c. Names are unique across every kind.
func (m *Model) Add(c Component) error {
	if c.Name == "" {
		return errors.New("model: component name is required")
	}
	if !c.Kind.valid() {
		return fmt.Errorf("model: component %s has unknown kind %q", c.Name, c.Kind)
	}
	if existing, ok := m.components[c.Name]; ok {
		return fmt.Errorf("%w: %s already declared by %s", ErrDuplicateComponent, c.Name, ownerLabel(existing.Owner))
	}
	if c.Index != "" {
		idx, ok := m.components[c.Index]
		if !ok || idx.Kind != KindSet {
			return fmt.Errorf("model: component %s is indexed by unknown set %s", c.Name, c.Index)
		}
	}
	m.components[c.Name] = c
	m.order = append(m.order, c.Name)
	return nil
}

// Has reports whether name is declared.
func (m *Model) Has(name string) bool {
	_, ok := m.components[name]
	return ok
}

// Component returns the declaration of name.
func (m *Model) Component(name string) (Component, bool) {
	c, ok := m.components[name]
	return c, ok
}

// Components returns declarations in the order they were added.
func (m *Model) Components() []Component {
	out := make([]Component, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.components[name])
	}
	return out
}

// Len returns the number of declarations.
func (m *Model) Len() int {
	return len(m.order)
}

// SetMembers loads the members of a declared set.
func (m *Model) SetMembers(name string, members []string) error {
	if err := m.expect(name, KindSet); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if _, dup := seen[member]; dup {
			return fmt.Errorf("model: set %s lists %s twice", name, member)
		}
		seen[member] = struct{}{}
	}
	m.members[name] = append([]string(nil), members...)
	return nil
}

// Members returns a set's loaded members.
func (m *Model) Members(name string) []string {
	return append([]string(nil), m.members[name]...)
}

// SetValues loads a declared parameter. Keys of an indexed parameter must be
// members of its index set once that set is loaded.
func (m *Model) SetValues(name string, values map[string]float64) error {
	if err := m.expect(name, KindParam); err != nil {
		return err
	}
	c := m.components[name]
	if c.Index != "" {
		if members, loaded := m.members[c.Index]; loaded {
			index := make(map[string]struct{}, len(members))
			for _, member := range members {
				index[member] = struct{}{}
			}
			for key := range values {
				if _, ok := index[key]; !ok {
					return fmt.Errorf("model: param %s has value for %s outside set %s", name, key, c.Index)
				}
			}
		}
	}
	clone := make(map[string]float64, len(values))
	for k, v := range values {
		clone[k] = v
	}
	m.values[name] = clone
	return nil
}

// Values returns a parameter's loaded values.
func (m *Model) Values(name string) map[string]float64 {
	clone := make(map[string]float64, len(m.values[name]))
	for k, v := range m.values[name] {
		clone[k] = v
	}
	return clone
}

// Loaded reports whether data was loaded for a set or parameter.
func (m *Model) Loaded(name string) bool {
	if _, ok := m.members[name]; ok {
		return true
	}
	_, ok := m.values[name]
	return ok
}

// Summary counts declarations per kind.
func (m *Model) Summary() map[Kind]int {
	out := map[Kind]int{}
	for _, c := range m.components {
		out[c.Kind]++
	}
	return out
}

// Kinds returns the kinds present, sorted.
func (m *Model) Kinds() []Kind {
	summary := m.Summary()
	out := make([]Kind, 0, len(summary))
	for k := range summary {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Model) expect(name string, kind Kind) error {
	c, ok := m.components[name]
	if !ok {
		return fmt.Errorf("model: %s %s is not declared", kind, name)
	}
	if c.Kind != kind {
		return fmt.Errorf("model: %s is a %s, not a %s", name, c.Kind, kind)
	}
	return nil
}

func ownerLabel(owner string) string {
	if owner == "" {
		return "an unnamed module"
	}
	return owner
}
