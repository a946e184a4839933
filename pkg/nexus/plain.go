package nexus

// Plain converts a tree into maps, slices and scalars. Attributes are dropped.
func Plain(n Node) any {
	switch v := n.(type) {
	case *Leaf:
		return v.Value.Interface()
	case *Group:
		out := make(map[string]any, v.Len())
		_ = v.Each(func(name string, child Node) error {
			out[name] = Plain(child)
			return nil
		})
		return out
	}
	return nil
}

// Document converts a tree into the values/attributes layout, where every
// node is a map with a "values" entry and an "attributes" entry.
func Document(n Node) map[string]any {
	var values any
	switch v := n.(type) {
	case *Leaf:
		values = v.Value.Interface()
	case *Group:
		children := make(map[string]any, v.Len())
		_ = v.Each(func(name string, child Node) error {
			children[name] = Document(child)
			return nil
		})
		values = children
	}

	var attrs any
	if a := n.Attributes(); len(a) > 0 {
		m := make(map[string]any, len(a))
		for k, val := range a {
			m[k] = val.Interface()
		}
		attrs = m
	}
	return map[string]any{Values: values, AttributesKey: attrs}
}
