package graph

import (
	"fmt"
	"slices"
)

// Block is a typed node of the pipeline graph. Its behavior and
// kind-specific state live in its Kind.
type Block struct {
	health
	id       ItemID
	name     string
	kind     Kind
	pipeline *Pipeline
	ports    []*Port
}

func (b *Block) ID() ItemID { return b.id }

func (b *Block) Name() string { return b.name }

// Type never changes after construction.
func (b *Block) Type() BlockType { return b.kind.Type() }

// Kind returns the kind-specific state, e.g. *Mixer or *DataSource.
func (b *Block) Kind() Kind { return b.kind }

// Pipeline returns the owning pipeline, nil once the block was deleted.
func (b *Block) Pipeline() *Pipeline { return b.pipeline }

// Ports returns the ports in declaration order.
func (b *Block) Ports() []*Port { return slices.Clone(b.ports) }

// Port returns the port with the given name.
func (b *Block) Port(name string) (*Port, bool) {
	for _, p := range b.ports {
		if p.spec.Name == name {
			return p, true
		}
	}
	return nil, false
}

// CreatePorts rebuilds the port set from the kind's declaration. Every
// connection touching the old ports is severed first.
func (b *Block) CreatePorts() {
	b.disconnectAll()
	for _, p := range b.ports {
		p.block = nil
	}
	specs := b.kind.PortSpecs()
	b.ports = make([]*Port, 0, len(specs))
	for _, spec := range specs {
		p := &Port{block: b, spec: spec}
		if b.pipeline != nil {
			b.pipeline.manager.assign(&p.id)
		}
		b.ports = append(b.ports, p)
	}
}

// Incoming returns the connections arriving at input ports of the given
// type, in port order. PortUndefined matches every input port.
func (b *Block) Incoming(t PortType) []*Connection {
	var out []*Connection
	for _, p := range b.ports {
		if p.spec.Dir&In == 0 {
			continue
		}
		if t != PortUndefined && p.spec.Type != t {
			continue
		}
		out = append(out, p.incoming...)
	}
	return out
}

// Outgoing returns the connections leaving every output port, in port order.
func (b *Block) Outgoing() []*Connection {
	var out []*Connection
	for _, p := range b.ports {
		out = append(out, p.outgoing...)
	}
	return out
}

func (b *Block) disconnectAll() {
	for _, p := range b.ports {
		p.disconnectAll()
	}
}

func (b *Block) String() string {
	return fmt.Sprintf("%s %q", b.Type(), b.name)
}

// PortSpec declares one port of a block kind.
type PortSpec struct {
	Name string
	Type PortType
	Dir  PortDirection
	// Multi input ports accept any number of incoming connections.
	Multi bool
	// Required input ports leave the block chilled while unconnected.
	Required bool
	// MinGL is the minimum GL version the port needs, 0 for any.
	MinGL int
	// Accepts is the whitelist of source block types for input ports.
	Accepts []BlockType
}

// Port is a typed, directed connection point. It belongs to one Block, owns
// its outgoing connections and indexes its incoming ones.
type Port struct {
	health
	id       ItemID
	block    *Block
	spec     PortSpec
	outgoing []*Connection
	incoming []*Connection
}

func (p *Port) ID() ItemID { return p.id }

func (p *Port) Name() string { return p.spec.Name }

func (p *Port) Type() PortType { return p.spec.Type }

func (p *Port) Direction() PortDirection { return p.spec.Dir }

// Spec returns the declaration the port was built from.
func (p *Port) Spec() PortSpec { return p.spec }

// Block returns the owning block, nil once the port was deleted.
func (p *Port) Block() *Block { return p.block }

// Outgoing returns the connections owned by this port.
func (p *Port) Outgoing() []*Connection { return slices.Clone(p.outgoing) }

// Incoming returns the connections whose destination is this port.
func (p *Port) Incoming() []*Connection { return slices.Clone(p.incoming) }

// IsConnected reports whether any connection touches the port.
func (p *Port) IsConnected() bool {
	return len(p.outgoing) > 0 || len(p.incoming) > 0
}

// accepts applies the port's whitelist to a candidate source block.
func (p *Port) accepts(src BlockType) (bool, string) {
	if slices.Contains(p.spec.Accepts, src) {
		return true, ""
	}
	return false, fmt.Sprintf("port %q of %s does not accept %s blocks", p.spec.Name, p.block, src)
}

func (p *Port) disconnectAll() {
	for len(p.outgoing) > 0 {
		sever(p.outgoing[len(p.outgoing)-1])
	}
	for len(p.incoming) > 0 {
		sever(p.incoming[len(p.incoming)-1])
	}
}

func (p *Port) String() string {
	if p.block == nil {
		return fmt.Sprintf("port %q", p.spec.Name)
	}
	return fmt.Sprintf("%s.%s", p.block.name, p.spec.Name)
}
