package treefile

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"nexusgeometry/internal/models"
	"nexusgeometry/pkg/nexus"
	"nexusgeometry/pkg/store"
)

// Loader reads a stored tree by dot separated paths such as
// entry.instrument.detector_0.detector_number.
type Loader struct {
	r store.Reader
}

func NewLoader(r store.Reader) *Loader {
	return &Loader{r: r}
}

// Load opens the store at path read-only.
func Load(path string) (*Loader, error) {
	r, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	return NewLoader(r), nil
}

func (l *Loader) Close() error { return l.r.Close() }

// Reader exposes the underlying store.
func (l *Loader) Reader() store.Reader { return l.r }

// GetData returns the dataset at the dot path.
func (l *Loader) GetData(dotPath string) (models.Value, error) {
	return l.r.Dataset(store.FromDotPath(dotPath))
}

// GetAttributes returns the attributes of the group or dataset at the dot path.
func (l *Loader) GetAttributes(dotPath string) (models.Attributes, error) {
	return l.r.Attributes(store.FromDotPath(dotPath))
}

// Get returns both the data and the attributes of a dataset.
func (l *Loader) Get(dotPath string) (models.Value, models.Attributes, error) {
	v, err := l.GetData(dotPath)
	if err != nil {
		return models.Value{}, nil, err
	}
	attrs, err := l.GetAttributes(dotPath)
	if err != nil {
		return models.Value{}, nil, err
	}
	return v, attrs, nil
}

// Tree reloads the subtree at the dot path. An empty path is the root.
func (l *Loader) Tree(dotPath string) (nexus.Node, error) {
	return l.load(store.FromDotPath(dotPath))
}

func (l *Loader) load(path string) (nexus.Node, error) {
	e, err := l.r.Stat(path)
	if err != nil {
		return nil, err
	}
	if e.Type == store.DatasetNode {
		v, err := l.r.Dataset(path)
		if err != nil {
			return nil, err
		}
		return nexus.NewLeaf(v, e.Attrs), nil
	}

	g := nexus.NewGroup(e.Attrs)
	names, err := l.r.Children(path)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		child, err := l.load(store.Join(path, name))
		if err != nil {
			return nil, err
		}
		g.Set(name, child)
	}
	return g, nil
}

// Query evaluates a JSONPath expression against the plain form of the tree,
// for example $.entry.instrument.*.depends_on.
func (l *Loader) Query(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	root, err := l.Tree("")
	if err != nil {
		return nil, err
	}
	return x.Get(nexus.Plain(root)), nil
}

// JSON renders the subtree at the dot path in the values/attributes layout.
func (l *Loader) JSON(dotPath string) (string, error) {
	n, err := l.Tree(dotPath)
	if err != nil {
		return "", err
	}
	return oj.JSON(nexus.Document(n), &oj.Options{Indent: 2, Sort: true}), nil
}
