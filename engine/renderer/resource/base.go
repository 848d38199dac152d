package resource

// Base is embedded by GPU objects to give them a record in a Graph.
type Base struct {
	graph *Graph
	index Index
}

// Init registers the object. It must be called once, from the constructor.
func (b *Base) Init(g *Graph, name string, onDispose func()) {
	b.graph = g
	b.index = g.Create(name, onDispose)
}

func (b *Base) Index() Index {
	return b.index
}

func (b *Base) Disposed() bool {
	if b.graph == nil {
		return false
	}
	return b.graph.IsDisposed(b.index)
}

func (b *Base) Dispose() {
	if b.graph != nil {
		b.graph.Dispose(b.index)
	}
}

// Own transfers ownership of child to this object.
func (b *Base) Own(child Resource) {
	if b.graph != nil && child != nil {
		b.graph.Adopt(b.index, child.Index())
	}
}

// Graph returns the arena this object was registered in.
func (b *Base) Graph() *Graph {
	return b.graph
}

// Owned adopts child into owner and returns it, so construction and
// ownership read as one expression.
func Owned[T Resource](owner *Base, child T) T {
	owner.Own(child)
	return child
}
