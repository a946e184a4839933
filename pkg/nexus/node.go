// Package nexus assembles the instrument description as a strict tree of
// typed leaves and groups, following the NeXus class conventions.
package nexus

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"nexusgeometry/internal/models"
)

// Node is either a *Leaf or a *Group.
type Node interface {
	Attributes() models.Attributes
	isNode()
}

// Leaf is a dataset: a scalar or array value with optional attributes.
type Leaf struct {
	Value models.Value
	Attrs models.Attributes
}

// NewLeaf creates a leaf. attrs may be nil.
func NewLeaf(v models.Value, attrs models.Attributes) *Leaf {
	return &Leaf{Value: v, Attrs: attrs}
}

func (l *Leaf) Attributes() models.Attributes { return l.Attrs }
func (*Leaf) isNode()                         {}

// Group holds named children in insertion order.
type Group struct {
	Attrs    models.Attributes
	children *orderedmap.OrderedMap[string, Node]
}

// NewGroup creates an empty group. attrs may be nil.
func NewGroup(attrs models.Attributes) *Group {
	return &Group{Attrs: attrs, children: orderedmap.New[string, Node]()}
}

func (g *Group) Attributes() models.Attributes { return g.Attrs }
func (*Group) isNode()                         {}

// Set adds or replaces a child. A replaced child keeps its position.
func (g *Group) Set(name string, n Node) *Group {
	g.children.Set(name, n)
	return g
}

// Get returns the direct child called name.
func (g *Group) Get(name string) (Node, bool) {
	return g.children.Get(name)
}

// Group returns the direct child called name when it is a group.
func (g *Group) Group(name string) (*Group, bool) {
	n, ok := g.children.Get(name)
	if !ok {
		return nil, false
	}
	child, ok := n.(*Group)
	return child, ok
}

func (g *Group) Len() int { return g.children.Len() }

// Names returns the child names in insertion order.
func (g *Group) Names() []string {
	names := make([]string, 0, g.children.Len())
	for pair := g.children.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Each visits the children in insertion order and stops at the first error.
func (g *Group) Each(fn func(name string, n Node) error) error {
	for pair := g.children.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Lookup follows a slash separated path below g.
func (g *Group) Lookup(path string) (Node, bool) {
	var n Node = g
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		group, ok := n.(*Group)
		if !ok {
			return nil, false
		}
		if n, ok = group.Get(part); !ok {
			return nil, false
		}
	}
	return n, true
}
