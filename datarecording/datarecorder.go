package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table with the given name, using the
	// fields of the sample entry as columns
	CreateTable(tableName string, sampleEntry any)

	// InsertData writes a same-type entry into a table that already exists
	InsertData(tableName string, entry any)

	// ListTables returns a slice containing names of all tables
	ListTables() []string

	// Flush writes all the buffered entries into the database
	Flush()

	// Close flushes and closes the database
	Close()
}

// New creates a new DataRecorder backed by a SQLite database at path. An
// empty path picks a random file name.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	db *sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	tableNames []string
}

func (t *sqliteWriter) init() {
	if t.dbName == "" {
		t.dbName = "musim_data_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.db = db
}

func (t *sqliteWriter) isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (t *sqliteWriter) checkStructFields(entry any) {
	types := reflect.TypeOf(entry)

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !t.isAllowedType(field.Type.Kind()) {
			panic(fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type))
		}
	}
}

// CreateTable creates a table whose columns mirror the fields of the sample
// entry.
func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	t.checkStructFields(sampleEntry)

	_, ok := t.tables[tableName]
	if ok {
		panic(fmt.Errorf("table %s already exists", tableName))
	}

	structType := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		columns = append(columns,
			field.Name+" "+t.sqlType(field.Type.Kind()))
	}

	createStmt := fmt.Sprintf("CREATE TABLE %s (%s);",
		tableName, strings.Join(columns, ", "))
	_, err := t.db.Exec(createStmt)
	if err != nil {
		panic(err)
	}

	t.tables[tableName] = &table{structType: structType}
	t.tableNames = append(t.tableNames, tableName)
}

func (t *sqliteWriter) sqlType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

// InsertData buffers one entry for the named table, flushing the batch when
// it is full.
func (t *sqliteWriter) InsertData(tableName string, entry any) {
	tbl, ok := t.tables[tableName]
	if !ok {
		panic(fmt.Errorf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != tbl.structType {
		panic(fmt.Errorf("entry type %s does not match table %s",
			reflect.TypeOf(entry), tableName))
	}

	tbl.entries = append(tbl.entries, entry)
	if len(tbl.entries) >= t.batchSize {
		t.flushTable(tableName, tbl)
	}
}

// ListTables returns the names of all the tables, in creation order.
func (t *sqliteWriter) ListTables() []string {
	names := make([]string, len(t.tableNames))
	copy(names, t.tableNames)
	return names
}

// Flush writes all the buffered entries into the database.
func (t *sqliteWriter) Flush() {
	for name, tbl := range t.tables {
		t.flushTable(name, tbl)
	}
}

// Close flushes and closes the database connection.
func (t *sqliteWriter) Close() {
	t.Flush()

	err := t.db.Close()
	if err != nil {
		panic(err)
	}
}

func (t *sqliteWriter) flushTable(name string, tbl *table) {
	if len(tbl.entries) == 0 {
		return
	}

	tx, err := t.db.Begin()
	if err != nil {
		panic(err)
	}

	placeholders := make([]string, tbl.structType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES (%s);",
		name, strings.Join(placeholders, ", "))

	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		panic(err)
	}

	for _, entry := range tbl.entries {
		value := reflect.ValueOf(entry)
		args := make([]any, value.NumField())
		for i := range args {
			args[i] = value.Field(i).Interface()
		}

		_, err := stmt.Exec(args...)
		if err != nil {
			panic(err)
		}
	}

	err = tx.Commit()
	if err != nil {
		panic(err)
	}

	tbl.entries = nil
}
