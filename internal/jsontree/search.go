package jsontree

import "iter"

// FindFirst does a depth-first search for the first object entry named key.
// At each object its own entry is checked before any child is visited;
// children are visited in document order and array items in index order.
// Entries whose value is null do not count as a match: the search keeps
// going into the children, so {"k":null,"a":{"k":1}} yields 1. A lookup
// that stops at the first object owning key would yield null instead.
func FindFirst(n *Node, key string) *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case Object:
		if v := n.Get(key); !v.IsNull() {
			return v
		}
		for _, f := range n.Fields {
			if r := FindFirst(f.Value, key); r != nil {
				return r
			}
		}
	case Array:
		for _, it := range n.Items {
			if r := FindFirst(it, key); r != nil {
				return r
			}
		}
	}
	return nil
}

// CoerceFirst unwraps single-element (or any non-empty) arrays to their
// first element. Other values are returned unchanged.
func CoerceFirst(n *Node) *Node {
	if n != nil && n.Kind == Array && len(n.Items) > 0 {
		return n.Items[0]
	}
	return n
}

// FindText is CoerceFirst(FindFirst(n, key)).Text().
func FindText(n *Node, key string) string {
	return CoerceFirst(FindFirst(n, key)).Text()
}

// IterRecords yields, in pre-order, every object that has at least one of
// the marker keys. Matching objects are still descended into.
func IterRecords(n *Node, markers ...string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		walkRecords(n, markers, yield)
	}
}

func walkRecords(n *Node, markers []string, yield func(*Node) bool) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case Object:
		for _, m := range markers {
			if n.Has(m) {
				if !yield(n) {
					return false
				}
				break
			}
		}
		for _, f := range n.Fields {
			if !walkRecords(f.Value, markers, yield) {
				return false
			}
		}
	case Array:
		for _, it := range n.Items {
			if !walkRecords(it, markers, yield) {
				return false
			}
		}
	}
	return true
}
