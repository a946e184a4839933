// Package treefile writes assembled instrument trees into a persistent tree
// store and reads them back by dot separated paths.
package treefile

import (
	"fmt"
	"log/slog"
	"os"

	"nexusgeometry/pkg/nexus"
	"nexusgeometry/pkg/store"
	"nexusgeometry/pkg/store/badgerstore"
	"nexusgeometry/pkg/store/sqlitestore"
)

// Backend names a store implementation.
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
)

// Valid reports whether b names a known backend.
func (b Backend) Valid() bool {
	return b == BackendBadger || b == BackendSQLite
}

// CreateStore creates a new store of the given backend at path.
func CreateStore(backend Backend, path string) (store.Store, error) {
	switch backend {
	case BackendBadger:
		return badgerstore.Create(path)
	case BackendSQLite:
		return sqlitestore.Create(path)
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}

// OpenStore opens an existing store read-only. A directory is a badger
// store, a regular file a sqlite store.
func OpenStore(path string) (store.Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, store.ErrNotFound)
	}
	if info.IsDir() {
		return badgerstore.Open(path)
	}
	return sqlitestore.Open(path)
}

// Builder writes a tree: leaves become datasets, groups become groups, and
// attributes land on whichever node was just created.
type Builder struct {
	w store.Writer

	// CompressThreshold compresses datasets holding at least this many
	// elements. Zero disables compression
	CompressThreshold int

	datasets int
	groups   int
}

func NewBuilder(w store.Writer, compressThreshold int) *Builder {
	return &Builder{w: w, CompressThreshold: compressThreshold}
}

// Write stores the children of root below the store root, and the root
// attributes on the store root.
func (b *Builder) Write(root *nexus.Group) error {
	if err := b.writeChildren(store.Root, root); err != nil {
		return err
	}
	if err := b.setAttributes(store.Root, root); err != nil {
		return err
	}
	slog.Debug("Tree written", slog.Int("groups", b.groups), slog.Int("datasets", b.datasets))
	return nil
}

// WriteAt stores n at path. The parent of path must exist.
func (b *Builder) WriteAt(path string, n nexus.Node) error {
	switch v := n.(type) {
	case *nexus.Leaf:
		opts := store.DatasetOptions{Compress: b.CompressThreshold > 0 && v.Value.Len() >= b.CompressThreshold}
		if err := b.w.CreateDataset(path, v.Value, opts); err != nil {
			return fmt.Errorf("dataset %s: %w", path, err)
		}
		b.datasets++
	case *nexus.Group:
		if err := b.w.CreateGroup(path); err != nil {
			return fmt.Errorf("group %s: %w", path, err)
		}
		b.groups++
		if err := b.writeChildren(path, v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("node %s: unsupported type %T", path, n)
	}
	return b.setAttributes(path, n)
}

func (b *Builder) writeChildren(path string, g *nexus.Group) error {
	return g.Each(func(name string, child nexus.Node) error {
		return b.WriteAt(store.Join(path, name), child)
	})
}

func (b *Builder) setAttributes(path string, n nexus.Node) error {
	attrs := n.Attributes()
	if len(attrs) == 0 {
		return nil
	}
	if err := b.w.SetAttributes(path, attrs); err != nil {
		return fmt.Errorf("attributes %s: %w", path, err)
	}
	return nil
}

// Counts returns the number of groups and datasets written so far.
func (b *Builder) Counts() (groups, datasets int) { return b.groups, b.datasets }
