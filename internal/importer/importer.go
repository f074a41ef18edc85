// Package importer loads Rebrickable CSV dumps into the reference catalog.
package importer

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brickcomplete/brickcomplete-server/internal/metrics"
	"github.com/brickcomplete/brickcomplete-server/internal/store/sqlite"
)

// File suffixes recognized as catalog dumps.
const (
	suffixCSV   = ".csv"
	suffixCSVGz = ".csv.gz"
)

// Loader opens a transactional writer for one catalog table.
type Loader interface {
	NewTableWriter(ctx context.Context, table string, columns []string) (*sqlite.TableWriter, error)
}

// TableReport describes the load of one table.
type TableReport struct {
	Table    string        `json:"table"`
	File     string        `json:"file,omitempty"`
	Rows     int           `json:"rows"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of a directory import.
type Report struct {
	Tables []TableReport `json:"tables"`
}

// Rows returns the total number of rows loaded.
func (r *Report) Rows() int {
	total := 0
	for _, t := range r.Tables {
		total += t.Rows
	}
	return total
}

// Importer loads CSV dumps into the catalog, one transaction per table.
type Importer struct {
	loader Loader
	logger *slog.Logger
}

// New creates an importer.
func New(loader Loader, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{loader: loader, logger: logger}
}

// ImportDir loads every known table found in dir, in dependency order.
// A table without a dump file is skipped with a warning.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Report, error) {
	report := &Report{Tables: make([]TableReport, 0, len(sqlite.Tables))}

	for _, table := range sqlite.Tables {
		path, ok := findDump(dir, table.Name)
		if !ok {
			im.logger.Warn("catalog dump not found, skipping", "table", table.Name, "dir", dir)
			report.Tables = append(report.Tables, TableReport{Table: table.Name, Skipped: true})
			continue
		}

		tr, err := im.ImportFile(ctx, table.Name, path)
		if err != nil {
			return report, err
		}
		report.Tables = append(report.Tables, *tr)
	}

	im.logger.Info("catalog import complete", "dir", dir, "rows", report.Rows())
	return report, nil
}

// ImportFile loads one dump file into table, replacing rows with the same key.
// Header columns the table does not know are ignored.
func (im *Importer) ImportFile(ctx context.Context, table, path string) (*TableReport, error) {
	start := time.Now()

	t, ok := sqlite.TableByName(table)
	if !ok {
		return nil, fmt.Errorf("unknown catalog table %q", table)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, suffixCSVGz) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	rows, err := im.load(ctx, t, r)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", filepath.Base(path), err)
	}

	metrics.ImportRowsTotal.WithLabelValues(table).Add(float64(rows))
	tr := &TableReport{
		Table:    table,
		File:     filepath.Base(path),
		Rows:     rows,
		Duration: time.Since(start),
	}
	im.logger.Info("imported catalog table",
		"table", table,
		"file", tr.File,
		"rows", rows,
		"duration", tr.Duration,
	)
	return tr, nil
}

// load streams CSV records into a table writer. The writer is committed only
// when every record was written.
func (im *Importer) load(ctx context.Context, t sqlite.Table, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("empty file")
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	var (
		names   []string
		columns []sqlite.Column
		fields  []int
	)
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		col, ok := t.Column(name)
		if !ok {
			im.logger.Debug("ignoring unknown column", "table", t.Name, "column", name)
			continue
		}
		names = append(names, col.Name)
		columns = append(columns, col)
		fields = append(fields, i)
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("no known columns in header %v", header)
	}

	w, err := im.loader.NewTableWriter(ctx, t.Name, names)
	if err != nil {
		return 0, err
	}

	values := make([]any, len(columns))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Cancel()
			return 0, fmt.Errorf("read record: %w", err)
		}

		for i, col := range columns {
			values[i] = ConvertField(col.Kind, record[fields[i]])
		}
		if err := w.Write(ctx, values); err != nil {
			w.Cancel()
			return 0, err
		}
	}

	if err := w.Commit(); err != nil {
		return 0, err
	}
	return w.Count(), nil
}

// ConvertField converts a raw CSV value for a column kind.
// Empty values and unparseable numbers become NULL. Booleans accept
// t/f, true/false in any case, and 1/0.
func ConvertField(kind sqlite.ColumnKind, raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	switch kind {
	case sqlite.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case sqlite.KindBool:
		switch strings.ToLower(raw) {
		case "t", "true", "1":
			return 1
		case "f", "false", "0":
			return 0
		}
		return nil
	default:
		return raw
	}
}

// findDump returns the dump file for table in dir, preferring the plain CSV.
func findDump(dir, table string) (string, bool) {
	for _, suffix := range []string{suffixCSV, suffixCSVGz} {
		path := filepath.Join(dir, table+suffix)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// TableForFile returns the catalog table a dump file loads, if any.
// "inventory_parts.csv.gz" -> "inventory_parts".
func TableForFile(path string) (string, bool) {
	base := filepath.Base(path)

	var name string
	switch {
	case strings.HasSuffix(base, suffixCSVGz):
		name = strings.TrimSuffix(base, suffixCSVGz)
	case strings.HasSuffix(base, suffixCSV):
		name = strings.TrimSuffix(base, suffixCSV)
	default:
		return "", false
	}

	if _, ok := sqlite.TableByName(name); !ok {
		return "", false
	}
	return name, true
}
