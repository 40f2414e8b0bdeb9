package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/gridrun/internal/layout"
)

// StateStore persists run state snapshots.
type StateStore interface {
	Load() (RunState, error)
	Save(RunState) error
}

// Repository stores run state as JSON inside the scenario's logs directory.
type Repository struct {
	path string
}

// NewRepository creates a repository writing to path.
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// StatePath returns the snapshot location for target inside logsDir.
func StatePath(logsDir string, target layout.Target) string {
	name := "run_state"
	if target.Subproblem != "" {
		name += "_" + target.Subproblem
	}
	if target.Stage != "" {
		name += "_" + target.Stage
	}
	return filepath.Join(logsDir, name+".json")
}

// Path returns the snapshot location.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the persisted state if present.
func (r *Repository) Load() (RunState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RunState{}, ErrStateNotFound
		}
		return RunState{}, err
	}
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return RunState{}, fmt.Errorf("orchestrator: decode %s: %w", r.path, err)
	}
	return state, nil
}

// Save writes the run state to disk with best-effort atomicity.
func (r *Repository) Save(state RunState) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, append(encoded, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
