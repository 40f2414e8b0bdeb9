package sqlite

import (
	"context"

	"github.com/kingrea/gridrun/internal/tabular"
)

// Handle scopes a Store to one run and target so phases can read and import
// tables without carrying either.
type Handle struct {
	ctx    context.Context
	store  *Store
	runID  string
	target string
}

// Handle binds the store to runID and target. ctx bounds every call made
// through the handle.
func (s *Store) Handle(ctx context.Context, runID, target string) *Handle {
	return &Handle{ctx: ctx, store: s, runID: runID, target: target}
}

// Table reads the named table for the bound target.
func (h *Handle) Table(name string) (tabular.Table, error) {
	return h.store.ReadTable(h.ctx, h.target, name)
}

// ImportTable stores t for the bound target and logs the import.
func (h *Handle) ImportTable(name string, t tabular.Table) error {
	return h.store.ImportTable(h.ctx, h.runID, h.target, name, t)
}
