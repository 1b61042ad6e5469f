/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: Trained-model store backed by a single SQLite table. Each row holds one
network document as a JSON blob under a generated UUID; loading decodes the document and
rebuilds the network through network.Build so stored models are revalidated on the way out.
*/

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/bayesnet/pkg/network"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNotFound is returned when no model matches an ID or name
var ErrNotFound = errors.New("store: model not found")

// Record describes a stored model without its document
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Variables int       `json:"variables"`
}

// Store persists network documents
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path
func Open(path string) (*Store, error) {
	if path == "" {
		path = "bayesnet.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		variables INTEGER NOT NULL,
		document BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create models table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location
func (s *Store) Path() string { return s.path }

// Close releases the database
func (s *Store) Close() error { return s.db.Close() }

// Save stores the network under name and returns its record
func (s *Store) Save(ctx context.Context, name string, net *network.Network) (*Record, error) {
	doc, err := network.Marshal(net, name, network.FormatJSON)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Variables: len(net.Names()),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO models (id, name, created_at, variables, document) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.CreatedAt.UnixMilli(), rec.Variables, doc,
	); err != nil {
		return nil, fmt.Errorf("insert model: %w", err)
	}
	return rec, nil
}

// Load rebuilds the model whose ID or name matches ref. Names resolve to the newest model.
func (s *Store) Load(ctx context.Context, ref string, opts ...network.Option) (*network.Network, *Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, variables, document FROM models
		 WHERE id = ? OR name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, ref, ref)

	var (
		rec     Record
		created int64
		doc     []byte
	)
	if err := row.Scan(&rec.ID, &rec.Name, &created, &rec.Variables, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, nil, fmt.Errorf("select model: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()

	net, err := network.Unmarshal(doc, network.FormatJSON, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", rec.ID, err)
	}
	return net, &rec, nil
}

// List returns every record, newest first
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, variables FROM models ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("select models: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &created, &rec.Variables); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a model by ID
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
