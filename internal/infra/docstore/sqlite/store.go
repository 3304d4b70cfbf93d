// Package sqlite implements the document store on a local SQLite file using
// the pure-Go modernc driver. Each document is one row of a single table.
package sqlite

import (
	"carecore/internal/docstore/core"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// Store persists JSON documents in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "carecore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Driver returns the driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(collection,id,payload) VALUES(?,?,?)
		 ON CONFLICT(collection,id) DO UPDATE SET payload=excluded.payload`,
		string(collection), id, string(b))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges fields into an existing document inside a transaction.
func (s *Store) Update(ctx context.Context, collection core.Collection, id string, fields map[string]any) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	var payload string
	err = tx.QueryRowContext(ctx, `SELECT payload FROM documents WHERE collection=? AND id=?`, string(collection), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(collection, id)
	}
	if err != nil {
		return fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	merged, err := core.Merge([]byte(payload), fields)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET payload=? WHERE collection=? AND id=?`, string(merged), string(collection), id); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

// Delete removes a document; missing rows are ignored.
func (s *Store) Delete(ctx context.Context, collection core.Collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection=? AND id=?`, string(collection), id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get decodes one document into out.
func (s *Store) Get(ctx context.Context, collection core.Collection, id string, out any) error {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE collection=? AND id=?`, string(collection), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(collection, id)
	}
	if err != nil {
		return fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal([]byte(payload), out)
}

// Query filters with json_extract on the requested field.
func (s *Store) Query(ctx context.Context, collection core.Collection, filter core.Filter) ([][]byte, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.Field == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM documents WHERE collection=? ORDER BY id`, string(collection))
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT payload FROM documents WHERE collection=? AND json_extract(payload, ?) = ? ORDER BY id`,
			string(collection), "$."+filter.Field, filter.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()
	var out [][]byte
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, []byte(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}
