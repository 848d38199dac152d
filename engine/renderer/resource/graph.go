// Package resource tracks ownership of GPU backed objects so they can be torn
// down deterministically.
package resource

import (
	"cmp"
	"slices"
)

// Index identifies a record in a Graph. Indices are handed out in creation
// order and never reused.
type Index uint32

// Resource is implemented by every GPU backed object.
type Resource interface {
	Index() Index
	Disposed() bool
	Dispose()
}

type record struct {
	name      string
	onDispose func()
	children  []Index
	parent    Index
	owned     bool
}

// Graph is an arena of resource records. Each record may own children, which
// are disposed with it. A record is dropped as soon as it is disposed, so
// only live records take space. It is not safe for concurrent use; all GPU
// objects live on the render thread.
type Graph struct {
	records map[Index]*record
	next    Index
}

func NewGraph() *Graph {
	return &Graph{records: map[Index]*record{}}
}

// Create registers a new record. onDispose runs exactly once, when the record
// is disposed.
func (g *Graph) Create(name string, onDispose func()) Index {
	if g.records == nil {
		g.records = map[Index]*record{}
	}
	i := g.next
	g.next++
	g.records[i] = &record{name: name, onDispose: onDispose}
	return i
}

// Adopt makes child exclusively owned by parent, taking it from any previous
// owner. Adopting into a parent that is already disposed disposes the child
// straight away.
func (g *Graph) Adopt(parent, child Index) {
	c, ok := g.records[child]
	if parent == child || !ok {
		return
	}
	if c.owned {
		g.detach(child, c)
	}
	p, ok := g.records[parent]
	if !ok {
		if parent < g.next {
			g.Dispose(child)
		}
		return
	}
	c.owned = true
	c.parent = parent
	p.children = append(p.children, child)
}

// Dispose releases the record and then everything it owns, newest child
// first. Disposing twice is a no-op.
func (g *Graph) Dispose(i Index) {
	r, ok := g.records[i]
	if !ok {
		return
	}
	delete(g.records, i)
	if r.owned {
		g.detach(i, r)
	}

	if r.onDispose != nil {
		r.onDispose()
	}
	for c := len(r.children) - 1; c >= 0; c-- {
		g.Dispose(r.children[c])
	}
}

// detach removes child from the children of its owner.
func (g *Graph) detach(child Index, c *record) {
	c.owned = false
	p, ok := g.records[c.parent]
	if !ok {
		return
	}
	if k := slices.Index(p.children, child); k >= 0 {
		p.children = slices.Delete(p.children, k, k+1)
	}
}

// DisposeAll disposes every record that is still alive, highest index first.
func (g *Graph) DisposeAll() {
	live := make([]Index, 0, len(g.records))
	for i := range g.records {
		live = append(live, i)
	}
	slices.SortFunc(live, func(a, b Index) int { return cmp.Compare(b, a) })
	for _, i := range live {
		g.Dispose(i)
	}
}

// IsDisposed reports whether i was created and has since been disposed.
// Indices the graph never handed out also count as disposed.
func (g *Graph) IsDisposed(i Index) bool {
	_, ok := g.records[i]
	return !ok
}

// Children returns the live children of i in creation order.
func (g *Graph) Children(i Index) []Index {
	r, ok := g.records[i]
	if !ok {
		return nil
	}
	return slices.Clone(r.children)
}

func (g *Graph) Name(i Index) string {
	if r, ok := g.records[i]; ok {
		return r.name
	}
	return ""
}

// Live is the number of records not yet disposed.
func (g *Graph) Live() int {
	return len(g.records)
}
