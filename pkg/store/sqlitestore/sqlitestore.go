// Package sqlitestore keeps a tree store in a single SQLite file. Nodes are
// rows keyed by path; child order is insertion order.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	path TEXT PRIMARY KEY,
	parent TEXT,
	name TEXT NOT NULL,
	kind INTEGER NOT NULL,
	attrs BLOB,
	payload BLOB
);
CREATE INDEX IF NOT EXISTS idx_parent ON nodes(parent);
`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// Store is a tree store backed by SQLite. A writable store holds one
// transaction that is committed on Close.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	tx       *sql.Tx
	q        querier
	path     string
	readOnly bool
}

var _ store.Store = (*Store)(nil)

// Create makes a new store file at path, which must not exist.
func Create(path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create %s: %w", path, store.ErrExists)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Performance tuning for bulk insert
	for _, pragma := range []string{"PRAGMA synchronous = OFF", "PRAGMA journal_mode = MEMORY"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, tx: tx, q: tx, path: path}

	if _, err := tx.Exec(`INSERT INTO nodes (path, parent, name, kind) VALUES (?, NULL, '', ?)`,
		store.Root, int(store.GroupNode)); err != nil {
		_ = tx.Rollback()
		_ = db.Close()
		return nil, fmt.Errorf("create root: %w", err)
	}
	slog.Debug("SQLiteStore created", slog.String("path", path))
	return s, nil
}

// Open opens an existing store file read-only.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, store.ErrNotFound)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &Store{db: db, q: db, path: path, readOnly: true}, nil
}

func (s *Store) Path() string { return s.path }

// Close commits pending writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var commitErr error
	if s.tx != nil {
		commitErr = s.tx.Commit()
		s.tx = nil
	}
	closeErr := s.db.Close()
	if commitErr != nil {
		slog.Error("SQLiteStore failed to commit on close", slog.Any("error", commitErr))
		return fmt.Errorf("commit failed: %w", commitErr)
	}
	return closeErr
}

func (s *Store) kind(path string) (store.NodeType, error) {
	var kind int
	err := s.q.QueryRow(`SELECT kind FROM nodes WHERE path = ?`, path).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return store.NodeType(kind), err
}

func (s *Store) insert(path string, kind store.NodeType, payload []byte) error {
	if s.readOnly {
		return store.ErrReadOnly
	}
	path = store.Clean(path)
	if _, err := s.kind(path); err == nil {
		return fmt.Errorf("%s: %w", path, store.ErrExists)
	}
	parent, name := store.Split(path)
	pk, err := s.kind(parent)
	if err != nil {
		return err
	}
	if pk != store.GroupNode {
		return fmt.Errorf("%s: %w", parent, store.ErrNotGroup)
	}

	_, err = s.q.Exec(`INSERT INTO nodes (path, parent, name, kind, payload) VALUES (?, ?, ?, ?, ?)`,
		path, parent, name, int(kind), payload)
	return err
}

func (s *Store) CreateGroup(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(path, store.GroupNode, nil)
}

func (s *Store) CreateDataset(path string, v models.Value, opts store.DatasetOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := store.EncodeValue(v, opts.Compress)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return s.insert(path, store.DatasetNode, payload)
}

func (s *Store) SetAttributes(path string, attrs models.Attributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return store.ErrReadOnly
	}
	path = store.Clean(path)

	current, err := s.Attributes(path)
	if err != nil {
		return err
	}
	data, err := store.EncodeAttributes(store.MergeAttributes(current, attrs))
	if err != nil {
		return err
	}
	_, err = s.q.Exec(`UPDATE nodes SET attrs = ? WHERE path = ?`, data, path)
	return err
}

func (s *Store) Stat(path string) (store.Entry, error) {
	path = store.Clean(path)
	var (
		kind    int
		attrs   []byte
		payload []byte
	)
	err := s.q.QueryRow(`SELECT kind, attrs, substr(payload, 1, 1) FROM nodes WHERE path = ?`, path).
		Scan(&kind, &attrs, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	if err != nil {
		return store.Entry{}, err
	}
	a, err := store.DecodeAttributes(attrs)
	if err != nil {
		return store.Entry{}, err
	}
	return store.Entry{
		Path:       path,
		Type:       store.NodeType(kind),
		Attrs:      a,
		Compressed: store.IsCompressed(payload),
	}, nil
}

func (s *Store) Children(path string) ([]string, error) {
	path = store.Clean(path)
	kind, err := s.kind(path)
	if err != nil {
		return nil, err
	}
	if kind != store.GroupNode {
		return nil, fmt.Errorf("%s: %w", path, store.ErrNotGroup)
	}

	rows, err := s.q.Query(`SELECT name FROM nodes WHERE parent = ? ORDER BY rowid`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Attributes(path string) (models.Attributes, error) {
	path = store.Clean(path)
	var attrs []byte
	err := s.q.QueryRow(`SELECT attrs FROM nodes WHERE path = ?`, path).Scan(&attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeAttributes(attrs)
}

func (s *Store) Dataset(path string) (models.Value, error) {
	path = store.Clean(path)
	var (
		kind    int
		payload []byte
	)
	err := s.q.QueryRow(`SELECT kind, payload FROM nodes WHERE path = ?`, path).Scan(&kind, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Value{}, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	if err != nil {
		return models.Value{}, err
	}
	if store.NodeType(kind) != store.DatasetNode {
		return models.Value{}, fmt.Errorf("%s: %w", path, store.ErrNotDataset)
	}
	return store.DecodeValue(payload)
}
