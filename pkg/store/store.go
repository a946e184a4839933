// Package store defines the persistent tree store the geometry files are
// written to: groups and typed datasets addressed by slash separated paths,
// each carrying an attribute map.
package store

import (
	"errors"
	"fmt"

	"nexusgeometry/internal/models"
)

var (
	ErrNotFound   = errors.New("store: path not found")
	ErrExists     = errors.New("store: path already exists")
	ErrNotDataset = errors.New("store: not a dataset")
	ErrNotGroup   = errors.New("store: not a group")
	ErrReadOnly   = errors.New("store: opened read-only")
)

// NodeType tells groups and datasets apart.
type NodeType int

const (
	GroupNode NodeType = iota
	DatasetNode
)

func (t NodeType) String() string {
	if t == DatasetNode {
		return "dataset"
	}
	return "group"
}

// Entry describes one stored node.
type Entry struct {
	Path  string
	Type  NodeType
	Attrs models.Attributes

	// Compressed is set on datasets written with compression
	Compressed bool
}

// DatasetOptions control how a dataset is persisted.
type DatasetOptions struct {
	Compress bool
}

// Writer creates nodes. The parent of every created node must already be a
// group; the root "/" always exists.
type Writer interface {
	CreateGroup(path string) error
	CreateDataset(path string, v models.Value, opts DatasetOptions) error
	SetAttributes(path string, attrs models.Attributes) error
	Close() error
}

// Reader navigates an existing store.
type Reader interface {
	Stat(path string) (Entry, error)

	// Children returns the names below a group in creation order
	Children(path string) ([]string, error)

	Dataset(path string) (models.Value, error)
	Attributes(path string) (models.Attributes, error)
	Close() error
}

// Store is a store opened for writing. It can read back what it holds.
type Store interface {
	Reader
	Writer
}

// Copy copies the subtree at srcPath of src to dstPath of dst, keeping
// attributes, child order and dataset compression.
func Copy(dst Writer, src Reader, srcPath, dstPath string) error {
	srcPath, dstPath = Clean(srcPath), Clean(dstPath)
	e, err := src.Stat(srcPath)
	if err != nil {
		return err
	}

	switch e.Type {
	case DatasetNode:
		v, err := src.Dataset(srcPath)
		if err != nil {
			return err
		}
		if err := dst.CreateDataset(dstPath, v, DatasetOptions{Compress: e.Compressed}); err != nil {
			return fmt.Errorf("copy %s: %w", srcPath, err)
		}
	default:
		if dstPath != Root {
			if err := dst.CreateGroup(dstPath); err != nil {
				return fmt.Errorf("copy %s: %w", srcPath, err)
			}
		}
		names, err := src.Children(srcPath)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := Copy(dst, src, Join(srcPath, name), Join(dstPath, name)); err != nil {
				return err
			}
		}
	}

	if len(e.Attrs) > 0 {
		return dst.SetAttributes(dstPath, e.Attrs)
	}
	return nil
}
