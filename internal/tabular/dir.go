package tabular

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the file suffix of on-disk tables.
const Extension = ".tab"

// Dir reads and writes tables as <Path>/<name>.tab.
type Dir struct {
	Path string
}

// Table reads the named table. A missing file wraps ErrTableNotFound.
func (d Dir) Table(name string) (Table, error) {
	path, err := d.file(name)
	if err != nil {
		return Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return Table{}, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteTable replaces the named table on disk.
func (d Dir) WriteTable(name string, t Table) error {
	path, err := d.file(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("tabular: ensure dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("tabular: create %s: %w", tmp, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tabular: close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// Names lists the tables present in the directory, sorted.
func (d Dir) Names() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("tabular: read %s: %w", d.Path, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

func (d Dir) file(name string) (string, error) {
	if d.Path == "" {
		return "", errors.New("tabular: directory is required")
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("tabular: invalid table name %q", name)
	}
	return filepath.Join(d.Path, name+Extension), nil
}
