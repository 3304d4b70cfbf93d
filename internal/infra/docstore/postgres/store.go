// Package postgres implements the document store on Postgres through the pgx
// database/sql driver. Documents are JSONB rows keyed by (collection, id).
package postgres

import (
	"carecore/internal/docstore/core"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/carecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists documents to Postgres.
type Store struct {
	db *sql.DB
}

// New opens dsn (falls back to defaultDSN), pings it and ensures the documents table.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureDocumentsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureDocumentsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (collection, id)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

// Driver returns the driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverPostgres }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// Set upserts a document.
func (s *Store) Set(ctx context.Context, collection core.Collection, id string, doc any) error {
	if err := core.ValidateKey(collection, id); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(collection,id,payload) VALUES($1,$2,$3) ON CONFLICT(collection,id) DO UPDATE SET payload=EXCLUDED.payload`,
		string(collection), id, b); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges fields with the JSONB concatenation operator; null values
// are stripped afterwards so they remove the key.
func (s *Store) Update(ctx context.Context, collection core.Collection, id string, fields map[string]any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields %s/%s: %w", collection, id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET payload=jsonb_strip_nulls(payload || $3::jsonb) WHERE collection=$1 AND id=$2`,
		string(collection), id, b)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return core.NotFound(collection, id)
	}
	return nil
}

// Delete removes a document; missing rows are ignored.
func (s *Store) Delete(ctx context.Context, collection core.Collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, string(collection), id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get decodes one document into out.
func (s *Store) Get(ctx context.Context, collection core.Collection, id string, out any) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE collection=$1 AND id=$2`, string(collection), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(collection, id)
	}
	if err != nil {
		return fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(payload, out)
}

// Query filters on payload->>field.
func (s *Store) Query(ctx context.Context, collection core.Collection, filter core.Filter) ([][]byte, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.Field == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM documents WHERE collection=$1 ORDER BY id`, string(collection))
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT payload FROM documents WHERE collection=$1 AND payload->>$2 = $3 ORDER BY id`,
			string(collection), filter.Field, filter.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()
	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
