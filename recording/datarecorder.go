// Package recording stores calibration sweeps, lane results, memory tests and
// bring-up tasks in an SQLite database.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	// Need to use SQLite connections.
	"github.com/fatih/structs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables, sorted.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// DefaultName returns a fresh database name.
func DefaultName() string {
	return "dramcal_" + xid.New().String()
}

// New creates a DataRecorder writing to path.sqlite3. An empty path picks a
// fresh name. The file must not exist yet.
func New(path string) (DataRecorder, error) {
	if path == "" {
		path = DefaultName()
	}

	filename := path + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		return nil, fmt.Errorf("recording: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("recording: open %s: %w", filename, err)
	}

	return NewWithDB(db), nil
}

// NewWithDB creates a DataRecorder writing into db. Buffered entries are
// flushed when the process exits through atexit.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: 4096,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	entryType reflect.Type
	insert    string
	pending   []any
}

// sqliteWriter buffers entries per table and writes them in one transaction
// per flush.
type sqliteWriter struct {
	db *sql.DB

	mu        sync.Mutex
	tables    map[string]*table
	batchSize int
	pending   int
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}

	return false
}

// columnsOf returns the column names of a table storing entries like sample.
// Unexported fields are not stored.
func columnsOf(sample any) ([]string, error) {
	if !structs.IsStruct(sample) {
		return nil, errors.New("entry is not a struct")
	}

	for _, f := range structs.Fields(sample) {
		if !isAllowedType(f.Kind()) {
			return nil, fmt.Errorf("field %s cannot be stored", f.Name())
		}
	}

	cols := structs.Names(sample)
	if len(cols) == 0 {
		return nil, errors.New("entry has no fields")
	}

	return cols, nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	cols, err := columnsOf(sampleEntry)
	if err != nil {
		panic(fmt.Errorf("recording: table %s: %w", tableName, err))
	}

	columns := strings.Join(cols, ", ")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err = w.db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)", tableName, columns))
	if err != nil {
		panic(fmt.Errorf("recording: create %s: %w", tableName, err))
	}

	w.tables[tableName] = &table{
		entryType: reflect.TypeOf(sampleEntry),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			tableName, columns, marks),
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	w.mu.Lock()

	t, ok := w.tables[tableName]
	if !ok {
		w.mu.Unlock()
		panic(fmt.Sprintf("recording: table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.entryType {
		w.mu.Unlock()
		panic(fmt.Sprintf("recording: %T does not match table %s",
			entry, tableName))
	}

	t.pending = append(t.pending, entry)
	w.pending++
	full := w.pending >= w.batchSize

	w.mu.Unlock()

	if full {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Flush panics if the database rejects the batch; the recorder has no caller
// to return the error to when it runs at exit.
func (w *sqliteWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending == 0 {
		return
	}

	if err := w.writePending(); err != nil {
		panic(fmt.Errorf("recording: flush: %w", err))
	}

	for _, t := range w.tables {
		t.pending = nil
	}

	w.pending = 0
}

func (w *sqliteWriter) writePending() error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	for name, t := range w.tables {
		if err := insertAll(tx, t); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return tx.Commit()
}

func insertAll(tx *sql.Tx, t *table) error {
	if len(t.pending) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(t.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.pending {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}

	return nil
}

func (w *sqliteWriter) Close() error {
	w.Flush()

	return w.db.Close()
}
