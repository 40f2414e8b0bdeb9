// Package modules installs the built-in module implementations. Catalog ids
// without an implementation here stay unbound; the loader reports them.
package modules

import (
	"github.com/kingrea/gridrun/internal/module"
	"github.com/kingrea/gridrun/internal/modules/geography"
	"github.com/kingrea/gridrun/internal/modules/loadbalance"
	"github.com/kingrea/gridrun/internal/modules/objective"
	"github.com/kingrea/gridrun/internal/modules/temporal"
)

// RegisterBuiltins installs all of the built-in module factories into the
// provided registry.
func RegisterBuiltins(reg *module.Registry) {
	if reg == nil {
		return
	}
	temporal.Register(reg)
	geography.Register(reg)
	loadbalance.Register(reg)
	objective.Register(reg)
}

// NewRegistry returns a registry holding the built-in modules.
func NewRegistry() *module.Registry {
	reg := module.NewRegistry()
	RegisterBuiltins(reg)
	return reg
}
