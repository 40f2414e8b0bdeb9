package module

import (
	"github.com/kingrea/gridrun/internal/model"
	"github.com/kingrea/gridrun/internal/tabular"
)

// ModelBuilder receives structure during AddStructure.
type ModelBuilder interface {
	Add(c model.Component) error
	Has(name string) bool
}

// DataSource hands named tables to LoadData, ReadFromStore and
// ValidateInputs, and the exported results to ImportResults.
type DataSource interface {
	Table(name string) (tabular.Table, error)
}

// Sink accepts tables during WriteDerivedInputs and ExportResults.
type Sink interface {
	WriteTable(name string, t tabular.Table) error
}

// ResultsStore persists imported results and serves them back to
// PostProcessResults.
type ResultsStore interface {
	DataSource
	ImportTable(name string, t tabular.Table) error
}
