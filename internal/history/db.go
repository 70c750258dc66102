package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Sources of an evaluation
const (
	SourceCLI       = "cli"
	SourceREPL      = "repl"
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
)

// Entry is one recorded evaluation
type Entry struct {
	ID           int64     `json:"id" db:"id"`
	Expression   string    `json:"expression" db:"expression"`
	Fingerprint  string    `json:"fingerprint" db:"fingerprint"`
	Result       *float64  `json:"result,omitempty" db:"result"`
	ErrorClass   string    `json:"error_class,omitempty" db:"error_class"`
	ErrorKind    string    `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	Source       string    `json:"source" db:"source"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// OK reports whether the evaluation produced a value
func (e *Entry) OK() bool {
	return e.ErrorClass == ""
}

// Stats counts evaluations by outcome
type Stats struct {
	Total      int `json:"total"`
	Succeeded  int `json:"succeeded"`
	Lexical    int `json:"lexical"`
	Syntax     int `json:"syntax"`
	Evaluation int `json:"evaluation"`
}

// Database handles SQLite storage of evaluations and suite runs
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes writes; sqlite allows one writer
}

// Open opens (and creates if needed) the database at dbPath
func Open(dbPath string) (*Database, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty in-memory db
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	database := &Database{db: db, dbPath: dbPath}
	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Path returns the database file path
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// migrate ensures the database schema is up to date
func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		expression TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		result REAL,
		error_class TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS suite_runs (
		id TEXT PRIMARY KEY,
		suite_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		passed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS suite_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		case_id TEXT NOT NULL,
		expression TEXT NOT NULL,
		passed BOOLEAN NOT NULL DEFAULT FALSE,
		expected TEXT,
		actual TEXT,
		error TEXT,
		duration_us INTEGER DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES suite_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_fingerprint ON evaluations(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_suite_runs_suite ON suite_runs(suite_id);
	CREATE INDEX IF NOT EXISTS idx_suite_results_run_id ON suite_results(run_id);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create initial schema: %w", err)
	}

	// Add columns for fields introduced after a database was created
	if err := d.autoMigrateTable("evaluations", &Entry{}); err != nil {
		return fmt.Errorf("failed to auto-migrate evaluations: %w", err)
	}
	if err := d.autoMigrateTable("suite_runs", &SuiteRun{}); err != nil {
		return fmt.Errorf("failed to auto-migrate suite_runs: %w", err)
	}
	if err := d.autoMigrateTable("suite_results", &SuiteResult{}); err != nil {
		return fmt.Errorf("failed to auto-migrate suite_results: %w", err)
	}
	return nil
}

// autoMigrateTable adds missing columns to a table based on struct tags
func (d *Database) autoMigrateTable(tableName string, model interface{}) error {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	existingColumns := make(map[string]bool)
	rows, err := d.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	for rows.Next() {
		var cid, notnull, pk int
		var name, dtype string
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dtype, &notnull, &dfltValue, &pk); err != nil {
			rows.Close()
			return err
		}
		existingColumns[strings.ToLower(name)] = true
	}
	rows.Close()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		if dbTag == "" || dbTag == "-" {
			continue
		}

		columnName := strings.Split(dbTag, ",")[0]
		if existingColumns[strings.ToLower(columnName)] {
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, columnName, sqliteType(field.Type))
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", columnName, err)
		}
	}

	return nil
}

// sqliteType returns the SQLite column type for a Go type
func sqliteType(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return "TEXT"
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return "INTEGER"
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return "INTEGER"
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Float64, reflect.Float32:
		return "REAL"
	default:
		if t.PkgPath() == "time" && t.Name() == "Time" {
			return "DATETIME"
		}
		return "TEXT"
	}
}

// Evaluation operations

// Record stores an evaluation and fills in its ID, fingerprint and timestamp
func (d *Database) Record(entry *Entry) error {
	if entry.Fingerprint == "" {
		entry.Fingerprint = Fingerprint(entry.Expression)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var result sql.NullFloat64
	if entry.Result != nil {
		result = sql.NullFloat64{Float64: *entry.Result, Valid: true}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.Exec(`
		INSERT INTO evaluations (expression, fingerprint, result, error_class, error_kind, error_message, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Expression, entry.Fingerprint, result, entry.ErrorClass, entry.ErrorKind,
		entry.ErrorMessage, entry.Source, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

const entryColumns = `id, expression, fingerprint, result, error_class, error_kind, error_message, source, created_at`

// Recent returns the latest limit evaluations, newest first
func (d *Database) Recent(limit int) ([]*Entry, error) {
	rows, err := d.db.Query(`
		SELECT `+entryColumns+`
		FROM evaluations
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ByFingerprint returns all evaluations of expressions equivalent to expr
// (ignoring whitespace), newest first
func (d *Database) ByFingerprint(expr string) ([]*Entry, error) {
	rows, err := d.db.Query(`
		SELECT `+entryColumns+`
		FROM evaluations
		WHERE fingerprint = ?
		ORDER BY id DESC
	`, Fingerprint(expr))
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		var result sql.NullFloat64
		err := rows.Scan(&entry.ID, &entry.Expression, &entry.Fingerprint, &result,
			&entry.ErrorClass, &entry.ErrorKind, &entry.ErrorMessage, &entry.Source, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		if result.Valid {
			v := result.Float64
			entry.Result = &v
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats aggregates all recorded evaluations by outcome
func (d *Database) Stats() (*Stats, error) {
	stats := &Stats{}
	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN error_class = '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error_class = 'lexical' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error_class = 'syntax' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error_class = 'evaluation' THEN 1 ELSE 0 END), 0)
		FROM evaluations
	`).Scan(&stats.Total, &stats.Succeeded, &stats.Lexical, &stats.Syntax, &stats.Evaluation)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Clear deletes all recorded evaluations
func (d *Database) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`DELETE FROM evaluations`)
	return err
}
