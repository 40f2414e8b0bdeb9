package tabular

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendChecksWidth(t *testing.T) {
	tbl := New("zone", "load_mw")
	if err := tbl.Append("north", "10"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tbl.Append("south"); err == nil {
		t.Fatalf("expected width error")
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected one row, got %d", tbl.Len())
	}
}

func TestReadSkipsCommentsAndParsesFloats(t *testing.T) {
	input := "# load by zone\nzone\tload_mw\nnorth\t10.5\nsouth\t4\n"
	tbl, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := tbl.Floats("load_mw")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if diff := cmp.Diff([]float64{10.5, 4}, got); diff != "" {
		t.Fatalf("floats mismatch (-want +got):\n%s", diff)
	}
	if _, err := tbl.Floats("zone"); err == nil {
		t.Fatalf("expected parse error for text column")
	}
	if err := tbl.RequireColumns("zone", "price"); err == nil || !strings.Contains(err.Error(), "price") {
		t.Fatalf("expected missing column error naming price, got %v", err)
	}
}

func TestWriteThenRead(t *testing.T) {
	tbl := New("timepoint", "weight")
	_ = tbl.Append("1", "1.0")
	_ = tbl.Append("2", "0.5")
	var buf bytes.Buffer
	if err := Write(&buf, tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "timepoint\tweight\n1\t1.0\n2\t0.5\n" {
		t.Fatalf("unexpected encoding %q", buf.String())
	}
}

func TestDirTableRoundTripAndNames(t *testing.T) {
	dir := Dir{Path: filepath.Join(t.TempDir(), "inputs")}
	tbl := New("zone")
	_ = tbl.Append("north")
	if err := dir.WriteTable("load_zones", tbl); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir.Path, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := dir.Table("load_zones")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
	names, err := dir.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if diff := cmp.Diff([]string{"load_zones"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDirMissingTable(t *testing.T) {
	_, err := Dir{Path: t.TempDir()}.Table("periods")
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if _, err := (Dir{Path: t.TempDir()}).Table("../escape"); err == nil {
		t.Fatalf("expected invalid name error")
	}
}
