package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the interface for result persistence.
// Implementations can use in-memory storage, files, or databases.
type Store interface {
	// Save persists one result snapshot.
	Save(ctx context.Context, result *Result) error
}

// =============================================================================
// MemoryStore Implementation
// =============================================================================

// MemoryStore keeps saved results in memory. Useful for tests and
// tooling that inspects results instead of persisting them.
type MemoryStore struct {
	mu      sync.Mutex
	results []*Result
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a copy of the result, so later mutation of the original
// does not reach the store.
func (s *MemoryStore) Save(ctx context.Context, result *Result) error {
	if result == nil {
		return errors.New("save nil result")
	}
	clone := &Result{
		Experiment: result.Experiment,
		Session:    result.Session,
		Started:    result.Started,
		Columns:    append([]string(nil), result.Columns...),
		Rows:       copyRows(result.Rows),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, clone)
	return nil
}

// Results returns the saved results in save order.
func (s *MemoryStore) Results() []*Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Result(nil), s.results...)
}

// =============================================================================
// CSVStore Implementation
// =============================================================================

// CSVStore writes each saved result as one CSV file under a directory,
// named experiment_session_timestamp.csv.
type CSVStore struct {
	dir string
}

// NewCSVStore creates a CSVStore rooted at dir. The directory is created
// on first Save.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Save writes the result to a new CSV file.
func (s *CSVStore) Save(ctx context.Context, result *Result) error {
	if result == nil {
		return errors.New("save nil result")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "create data directory")
	}
	path := filepath.Join(s.dir, resultFilename(result))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create data file")
	}
	if err := WriteCSV(f, result); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close data file")
}

func resultFilename(result *Result) string {
	parts := make([]string, 0, 3)
	if result.Experiment != "" {
		parts = append(parts, result.Experiment)
	} else {
		parts = append(parts, "experiment")
	}
	if result.Session != "" {
		parts = append(parts, result.Session)
	}
	parts = append(parts, result.Started.Format("20060102-150405"))
	return strings.Join(parts, "_") + ".csv"
}

// WriteCSV writes a result as CSV: one header of the column names, one
// record per row, cells a row never recorded left empty. Separated from
// CSVStore.Save so the encoding is testable without touching a disk.
func WriteCSV(w io.Writer, result *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, col := range result.Columns {
			record[i] = formatCell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
