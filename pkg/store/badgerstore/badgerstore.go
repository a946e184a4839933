// Package badgerstore keeps a tree store in a BadgerDB directory.
//
// Every node has a metadata record under "n:<path>" holding its type, its
// attributes and, for groups, the ordered child names. Dataset payloads are
// split into chunks under "c:<path>\x00<index>" so large pixel arrays do not
// hit the transaction size limit.
package badgerstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/store"
)

// ChunkSize is the largest payload slice stored under one key.
const ChunkSize = 1 << 20

type record struct {
	Type       store.NodeType
	Attrs      []byte
	Children   []string
	Compressed bool
	Chunks     int
}

// Store is a tree store backed by BadgerDB.
type Store struct {
	mu       sync.Mutex
	db       *badger.DB
	path     string
	readOnly bool
}

var _ store.Store = (*Store)(nil)

// Create makes a new store in the directory path, which must not exist.
func Create(path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create %s: %w", path, store.ErrExists)
	}
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerStore failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}
	s := &Store{db: db, path: path}

	if err := s.putRecord(store.Root, record{Type: store.GroupNode}); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("BadgerStore created", slog.String("path", path))
	return s, nil
}

// Open opens an existing store read-only.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, store.ErrNotFound)
	}
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerStore failed to open database", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &Store{db: db, path: path, readOnly: true}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		slog.Error("BadgerStore failed to close database", slog.Any("error", err))
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

func nodeKey(path string) []byte { return []byte("n:" + path) }

func chunkPrefix(path string) []byte { return []byte("c:" + path + "\x00") }

func chunkKey(path string, index int) []byte {
	key := chunkPrefix(path)
	return binary.BigEndian.AppendUint32(key, uint32(index))
}

func encodeRecord(r record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Store) getRecord(txn *badger.Txn, path string) (record, error) {
	var r record
	item, err := txn.Get(nodeKey(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return r, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	if err != nil {
		return r, err
	}
	err = item.Value(func(val []byte) error {
		return gob.NewDecoder(bytes.NewReader(val)).Decode(&r)
	})
	return r, err
}

func (s *Store) putRecord(path string, r record) error {
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(path), data)
	})
}

// attach registers a new node with its parent group and stores its record.
func (s *Store) attach(path string, r record) error {
	if s.readOnly {
		return store.ErrReadOnly
	}
	path = store.Clean(path)
	if path == store.Root {
		return fmt.Errorf("%s: %w", path, store.ErrExists)
	}
	parent, name := store.Split(path)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(path)); err == nil {
			return fmt.Errorf("%s: %w", path, store.ErrExists)
		}
		p, err := s.getRecord(txn, parent)
		if err != nil {
			return err
		}
		if p.Type != store.GroupNode {
			return fmt.Errorf("%s: %w", parent, store.ErrNotGroup)
		}
		p.Children = append(p.Children, name)

		pdata, err := encodeRecord(p)
		if err != nil {
			return err
		}
		data, err := encodeRecord(r)
		if err != nil {
			return err
		}
		if err := txn.Set(nodeKey(parent), pdata); err != nil {
			return err
		}
		return txn.Set(nodeKey(path), data)
	})
}

// checkNew fails unless path is free and its parent is a group.
func (s *Store) checkNew(path string) error {
	parent, _ := store.Split(path)
	return s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(path)); err == nil {
			return fmt.Errorf("%s: %w", path, store.ErrExists)
		}
		p, err := s.getRecord(txn, parent)
		if err != nil {
			return err
		}
		if p.Type != store.GroupNode {
			return fmt.Errorf("%s: %w", parent, store.ErrNotGroup)
		}
		return nil
	})
}

func (s *Store) CreateGroup(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attach(path, record{Type: store.GroupNode})
}

// CreateDataset writes the payload chunks with a write batch, then
// registers the node.
func (s *Store) CreateDataset(path string, v models.Value, opts store.DatasetOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return store.ErrReadOnly
	}
	path = store.Clean(path)
	if err := s.checkNew(path); err != nil {
		return err
	}

	payload, err := store.EncodeValue(v, opts.Compress)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	chunks := 0
	for start := 0; start < len(payload); start += ChunkSize {
		end := min(start+ChunkSize, len(payload))
		if err := wb.Set(chunkKey(path, chunks), payload[start:end]); err != nil {
			slog.Error("BadgerStore failed to set chunk in batch", slog.String("path", path), slog.Any("error", err))
			return fmt.Errorf("write batch error: %w", err)
		}
		chunks++
	}
	if err := wb.Flush(); err != nil {
		slog.Error("BadgerStore failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return s.attach(path, record{Type: store.DatasetNode, Compressed: opts.Compress, Chunks: chunks})
}

func (s *Store) SetAttributes(path string, attrs models.Attributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return store.ErrReadOnly
	}
	path = store.Clean(path)

	return s.db.Update(func(txn *badger.Txn) error {
		r, err := s.getRecord(txn, path)
		if err != nil {
			return err
		}
		current, err := store.DecodeAttributes(r.Attrs)
		if err != nil {
			return err
		}
		if r.Attrs, err = store.EncodeAttributes(store.MergeAttributes(current, attrs)); err != nil {
			return err
		}
		data, err := encodeRecord(r)
		if err != nil {
			return err
		}
		return txn.Set(nodeKey(path), data)
	})
}

func (s *Store) record(path string) (record, error) {
	var r record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = s.getRecord(txn, path)
		return err
	})
	return r, err
}

func (s *Store) Stat(path string) (store.Entry, error) {
	path = store.Clean(path)
	r, err := s.record(path)
	if err != nil {
		return store.Entry{}, err
	}
	attrs, err := store.DecodeAttributes(r.Attrs)
	if err != nil {
		return store.Entry{}, err
	}
	return store.Entry{Path: path, Type: r.Type, Attrs: attrs, Compressed: r.Compressed}, nil
}

func (s *Store) Children(path string) ([]string, error) {
	path = store.Clean(path)
	r, err := s.record(path)
	if err != nil {
		return nil, err
	}
	if r.Type != store.GroupNode {
		return nil, fmt.Errorf("%s: %w", path, store.ErrNotGroup)
	}
	return r.Children, nil
}

func (s *Store) Attributes(path string) (models.Attributes, error) {
	e, err := s.Stat(path)
	if err != nil {
		return nil, err
	}
	return e.Attrs, nil
}

// Dataset reassembles the payload chunks in key order and decodes them.
func (s *Store) Dataset(path string) (models.Value, error) {
	path = store.Clean(path)
	var payload []byte

	err := s.db.View(func(txn *badger.Txn) error {
		r, err := s.getRecord(txn, path)
		if err != nil {
			return err
		}
		if r.Type != store.DatasetNode {
			return fmt.Errorf("%s: %w", path, store.ErrNotDataset)
		}

		prefix := chunkPrefix(path)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				payload = append(payload, val...)
				return nil
			})
			if err != nil {
				return fmt.Errorf("item data error: %w", err)
			}
			n++
		}
		if n != r.Chunks {
			return fmt.Errorf("%s: expected %d chunks, found %d", path, r.Chunks, n)
		}
		return nil
	})
	if err != nil {
		return models.Value{}, err
	}
	return store.DecodeValue(payload)
}
