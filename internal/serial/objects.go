package serial

import "github.com/vk/glgrid/internal/graph"

// ObjectIDPool maps document references to live objects and back. Objects
// are keyed by pointer identity, so two distinct blocks with equal content
// get distinct references.
type ObjectIDPool struct {
	byRef    map[string]any
	byObject map[any]string
}

// NewObjectIDPool returns an empty pool.
func NewObjectIDPool() *ObjectIDPool {
	return &ObjectIDPool{
		byRef:    make(map[string]any),
		byObject: make(map[any]string),
	}
}

// Bind associates ref with obj. A reference or object bound twice is a
// serialization inconsistency.
func (p *ObjectIDPool) Bind(ref string, obj any) error {
	if _, taken := p.byRef[ref]; taken {
		return graph.Errorf(graph.ErrSerialization, "reference %q is defined twice", ref)
	}
	if prev, taken := p.byObject[obj]; taken {
		return graph.Errorf(graph.ErrSerialization, "object already bound as %q", prev)
	}
	p.byRef[ref] = obj
	p.byObject[obj] = ref
	return nil
}

// Resolve returns the object bound to ref.
func (p *ObjectIDPool) Resolve(ref string) (any, bool) {
	obj, ok := p.byRef[ref]
	return obj, ok
}

// Ref returns the reference of obj.
func (p *ObjectIDPool) Ref(obj any) (string, bool) {
	ref, ok := p.byObject[obj]
	return ref, ok
}

// Len returns the number of bound objects.
func (p *ObjectIDPool) Len() int { return len(p.byRef) }

// Block resolves ref to a block.
func (p *ObjectIDPool) Block(ref string) (*graph.Block, error) {
	obj, ok := p.byRef[ref]
	if !ok {
		return nil, graph.Errorf(graph.ErrSerialization, "unknown block %q", ref)
	}
	b, ok := obj.(*graph.Block)
	if !ok {
		return nil, graph.Errorf(graph.ErrSerialization, "%q is not a block", ref)
	}
	return b, nil
}
