package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
)

// ColumnKind tells the importer how to convert a CSV field.
type ColumnKind int

// Column kinds.
const (
	KindText ColumnKind = iota
	KindInt
	KindBool
)

// Column is one importable column of a catalog table.
type Column struct {
	Name string
	Kind ColumnKind
}

// Table describes a catalog table as laid out in the Rebrickable CSV dumps.
type Table struct {
	Name    string
	Columns []Column
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func text(name string) Column { return Column{Name: name, Kind: KindText} }
func integer(name string) Column { return Column{Name: name, Kind: KindInt} }
func boolean(name string) Column { return Column{Name: name, Kind: KindBool} }

// Tables lists the catalog tables in load order.
var Tables = []Table{
	{Name: "themes", Columns: []Column{integer("id"), text("name"), integer("parent_id")}},
	{Name: "colors", Columns: []Column{
		integer("id"), text("name"), text("rgb"), boolean("is_trans"),
		integer("num_parts"), integer("num_sets"), integer("y1"), integer("y2"),
	}},
	{Name: "part_categories", Columns: []Column{integer("id"), text("name")}},
	{Name: "parts", Columns: []Column{text("part_num"), text("name"), integer("part_cat_id"), text("part_material")}},
	{Name: "elements", Columns: []Column{text("element_id"), text("part_num"), integer("color_id"), text("design_id")}},
	{Name: "sets", Columns: []Column{
		text("set_num"), text("name"), integer("year"), integer("theme_id"), integer("num_parts"), text("img_url"),
	}},
	{Name: "minifigs", Columns: []Column{text("fig_num"), text("name"), integer("num_parts"), text("img_url")}},
	{Name: "inventories", Columns: []Column{integer("id"), integer("version"), text("set_num")}},
	{Name: "inventory_parts", Columns: []Column{
		integer("inventory_id"), text("part_num"), integer("color_id"),
		integer("quantity"), boolean("is_spare"), text("img_url"),
	}},
	{Name: "inventory_minifigs", Columns: []Column{integer("inventory_id"), text("fig_num"), integer("quantity")}},
	{Name: "inventory_sets", Columns: []Column{integer("inventory_id"), text("set_num"), integer("quantity")}},
	{Name: "part_relationships", Columns: []Column{text("rel_type"), text("child_part_num"), text("parent_part_num")}},
}

// TableByName returns the catalog table with the given name.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableWriter loads rows into one catalog table inside a single transaction.
// Rows replace existing rows with the same key.
type TableWriter struct {
	tx    *sql.Tx
	stmt  *sql.Stmt
	table string
	width int

	mu       sync.Mutex
	count    int
	canceled bool
}

// NewTableWriter starts a load of table for the given columns, which must belong to it.
func (s *Store) NewTableWriter(ctx context.Context, table string, columns []string) (*TableWriter, error) {
	t, ok := TableByName(table)
	if !ok {
		return nil, fmt.Errorf("unknown catalog table %q", table)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns for table %q", table)
	}
	for _, c := range columns {
		if _, ok := t.Column(c); !ok {
			return nil, fmt.Errorf("unknown column %q in table %q", c, table)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare insert into %s: %w", table, err)
	}

	return &TableWriter{
		tx:    tx,
		stmt:  stmt,
		table: table,
		width: len(columns),
	}, nil
}

// Write adds one row. values must match the writer's columns.
// Returns context.Canceled after Cancel.
func (w *TableWriter) Write(ctx context.Context, values []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.canceled {
		return context.Canceled
	}
	if len(values) != w.width {
		return fmt.Errorf("%s: got %d values, want %d", w.table, len(values), w.width)
	}
	if _, err := w.stmt.ExecContext(ctx, values...); err != nil {
		return fmt.Errorf("insert into %s: %w", w.table, err)
	}
	w.count++
	return nil
}

// Commit makes the loaded rows visible.
func (w *TableWriter) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.stmt.Close()
	if w.canceled {
		_ = w.tx.Rollback()
		return context.Canceled
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", w.table, err)
	}
	return nil
}

// Cancel discards every row written so far.
func (w *TableWriter) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.canceled {
		return
	}
	w.canceled = true
	_ = w.stmt.Close()
	_ = w.tx.Rollback()
}

// Count returns the number of rows written so far.
func (w *TableWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
