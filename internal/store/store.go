// Package store keeps global bindings and a journal of evaluated source units
// in a SQL database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"oris/internal/object"
	"oris/internal/seed"
)

const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Run is one journal entry: a source unit and either its rendered result or
// its error message.
type Run struct {
	ID        int64
	Source    string
	Result    string
	Error     string
	CreatedAt time.Time
}

type Store struct {
	db     *sql.DB
	driver string
}

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS oris_bindings (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS oris_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			result TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS oris_bindings (
			name VARCHAR(255) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS oris_runs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			source TEXT NOT NULL,
			result TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS oris_bindings (
			name VARCHAR(255) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS oris_runs (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			result TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	},
}

// Open connects to dsn with one of the supported drivers, checks the
// connection and creates the tables when they do not exist yet.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open connection: %w", err)
	}
	if driver == DriverSQLite {
		// every connection to :memory: is a database of its own
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: failed to create schema: %w", err)
		}
	}

	slog.Debug("store opened", slog.String("driver", driver))
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadBindings returns the saved bindings sorted by name.
func (s *Store) LoadBindings(ctx context.Context) ([]seed.Binding, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, kind, value FROM oris_bindings ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: query failed: %w", err)
	}
	defer rows.Close()

	var bindings []seed.Binding
	for rows.Next() {
		var name, kind, value string
		if err := rows.Scan(&name, &kind, &value); err != nil {
			return nil, fmt.Errorf("store: scan failed: %w", err)
		}

		native, err := decodeValue(kind, value)
		if err != nil {
			return nil, fmt.Errorf("store: binding %s: %w", name, err)
		}
		b, err := seed.FromNative(name, native)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query failed: %w", err)
	}

	slog.Debug("bindings loaded", slog.Int("count", len(bindings)))
	return bindings, nil
}

// SaveBindings replaces every saved binding with bs. Only int, bool and str
// values are kept; the others are skipped.
func (s *Store) SaveBindings(ctx context.Context, bs []seed.Binding) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin failed: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM oris_bindings"); err != nil {
		return fmt.Errorf("store: exec failed: %w", err)
	}

	insert := s.rebind("INSERT INTO oris_bindings (name, kind, value) VALUES (?, ?, ?)")
	saved := 0
	for _, b := range bs {
		kind, value, ok := encodeValue(b.Value)
		if !ok {
			slog.Debug("binding not persistable",
				slog.String("name", b.Name),
				slog.String("type", string(b.Value.Type())),
			)
			continue
		}
		if _, err = tx.ExecContext(ctx, insert, b.Name, kind, value); err != nil {
			return fmt.Errorf("store: exec failed: %w", err)
		}
		saved++
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit failed: %w", err)
	}

	slog.Debug("bindings saved", slog.Int("count", saved))
	return nil
}

func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO oris_runs (source, result, error, created_at) VALUES (?, ?, ?, ?)"),
		run.Source, run.Result, run.Error, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: exec failed: %w", err)
	}
	return nil
}

// Runs returns up to limit journal entries, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT id, source, result, error, created_at FROM oris_runs ORDER BY id DESC LIMIT ?"),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt int64
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Result, &run.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan failed: %w", err)
		}
		run.CreatedAt = time.UnixMilli(createdAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query failed: %w", err)
	}
	return runs, nil
}

// rebind rewrites ? placeholders into the $n form postgres expects.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encodeValue(value object.Object) (kind string, text string, ok bool) {
	switch v := value.(type) {
	case *object.Integer:
		return object.INTEGER_OBJ, strconv.FormatInt(int64(v.Value), 10), true
	case *object.Boolean:
		return object.BOOLEAN_OBJ, strconv.FormatBool(v.Value), true
	case *object.String:
		return object.STRING_OBJ, v.Value, true
	default:
		return "", "", false
	}
}

var errUnknownKind = errors.New("unknown kind")

func decodeValue(kind, text string) (any, error) {
	switch object.ObjectType(kind) {
	case object.INTEGER_OBJ:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case object.BOOLEAN_OBJ:
		return strconv.ParseBool(text)
	case object.STRING_OBJ:
		return text, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownKind, kind)
	}
}
