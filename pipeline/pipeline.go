// Package pipeline flattens per-page results and writes them to CSV or JSON files.
package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-prices/models"
)

// ErrWrite indicates an output file could not be created or written.
type ErrWrite struct {
	Path string
	Err  error
}

func (e ErrWrite) Error() string {
	return fmt.Errorf("write %s: %w", e.Path, e.Err).Error()
}

func (e ErrWrite) Unwrap() error {
	return e.Err
}

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.PriceRecord) error
	Close() error
	Validate() error
	Path() string
}

// Sink persists one named batch of per-page results.
type Sink interface {
	Write(name string, batches [][]*models.PriceRecord) (string, error)
}

// Flatten concatenates per-page record slices, one level deep.
func Flatten(batches [][]*models.PriceRecord) []*models.PriceRecord {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	out := make([]*models.PriceRecord, 0, total)
	for _, batch := range batches {
		for _, r := range batch {
			if r == nil {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// NewOutputWriter opens a writer for base (a path without extension).
func NewOutputWriter(format, base string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(base + ".jsonl")
	case "csv":
		return NewCSVWriter(base + ".csv")
	case "dual":
		return NewDualWriter(base+".csv", base+".jsonl")
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// FileSink writes each named batch to its own file under Dir.
type FileSink struct {
	Dir    string
	Format string

	mu      sync.Mutex
	written map[string]int
}

// NewFileSink builds a sink writing format files into dir.
func NewFileSink(dir, format string) (*FileSink, error) {
	switch format {
	case "csv", "json", "dual":
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &FileSink{
		Dir:     dir,
		Format:  format,
		written: make(map[string]int),
	}, nil
}

// Write flattens batches and writes them to {Dir}/{name} with the format's extension.
func (s *FileSink) Write(name string, batches [][]*models.PriceRecord) (string, error) {
	records := Flatten(batches)

	w, err := NewOutputWriter(s.Format, filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}
	path := w.Path()

	if err := w.Write(records); err != nil {
		w.Close()
		return path, err
	}
	if err := w.Close(); err != nil {
		return path, ErrWrite{Path: path, Err: err}
	}
	if err := w.Validate(); err != nil {
		return path, err
	}

	s.mu.Lock()
	s.written[path] = len(records)
	s.mu.Unlock()

	slog.Info("output written",
		slog.String("file", path),
		slog.Int("rows", len(records)),
		slog.Int("pages", len(batches)),
	)
	return path, nil
}

// Written returns the row count of every file written so far.
func (s *FileSink) Written() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.written))
	for k, v := range s.written {
		out[k] = v
	}
	return out
}
