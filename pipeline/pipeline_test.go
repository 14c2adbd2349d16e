package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-prices/models"
)

func TestFlatten(t *testing.T) {
	a := &models.PriceRecord{Product: "a"}
	b := &models.PriceRecord{Product: "b"}
	c := &models.PriceRecord{Product: "c"}

	got := Flatten([][]*models.PriceRecord{{a, b}, nil, {}, {c}})
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Fatalf("flatten = %v, want [a b c]", got)
	}
	if got := Flatten(nil); len(got) != 0 {
		t.Fatalf("flatten(nil) = %v, want empty", got)
	}
}

func TestFileSinkWritesNamedCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	sink, err := NewFileSink(dir, "csv")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	batches := [][]*models.PriceRecord{
		{sampleRecord(), sampleRecord()},
		{sampleRecord()},
	}
	path, err := sink.Write("base2", batches)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if want := filepath.Join(dir, "base2.csv"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if got := sink.Written()[path]; got != 3 {
		t.Fatalf("written rows = %d, want 3", got)
	}
}

func TestFileSinkEmptyBatchWritesHeader(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, "csv")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	path, err := sink.Write("retried", nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	rows := readCSV(t, path)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
}

func TestFileSinkDualFormat(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, "dual")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if _, err := sink.Write("base1", [][]*models.PriceRecord{{sampleRecord()}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, name := range []string{"base1.csv", "base1.jsonl"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.Size() == 0 {
			t.Fatalf("%s missing or empty", name)
		}
	}
}

func TestFileSinkUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	sink, err := NewFileSink(blocker, "csv")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_, err = sink.Write("base1", nil)
	var writeErr ErrWrite
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
}

func TestNewFileSinkRejectsUnknownFormat(t *testing.T) {
	if _, err := NewFileSink(t.TempDir(), "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
