package graph

import (
	"fmt"
	"slices"
)

// NotifyMask selects which endpoint blocks hear about connect and
// disconnect events.
type NotifyMask uint8

const (
	NotifyNone        NotifyMask = 0
	NotifySource      NotifyMask = 1
	NotifyDestination NotifyMask = 2
	NotifyBoth                   = NotifySource | NotifyDestination
)

// ConnectionObserver is implemented by kinds that keep state about their
// connections, such as the Mixer layout. Connected fires after the edge
// exists, Disconnected fires before it is removed.
type ConnectionObserver interface {
	Connected(self *Block, c *Connection)
	Disconnected(self *Block, c *Connection)
}

// Connection is a directed edge owned by its source port.
type Connection struct {
	health
	id     ItemID
	src    *Port
	dst    *Port
	notify NotifyMask
}

func (c *Connection) ID() ItemID { return c.id }

func (c *Connection) Source() *Port { return c.src }

func (c *Connection) Destination() *Port { return c.dst }

func (c *Connection) Notify() NotifyMask { return c.notify }

func (c *Connection) String() string {
	return fmt.Sprintf("%s -> %s", c.src, c.dst)
}

// Connect creates the edge src -> dst and notifies both endpoints.
func (p *Pipeline) Connect(src, dst *Port) (*Connection, error) {
	return p.ConnectWithMask(src, dst, NotifyBoth)
}

// ConnectWithMask creates the edge src -> dst. On failure the graph is left
// untouched.
func (p *Pipeline) ConnectWithMask(src, dst *Port, notify NotifyMask) (*Connection, error) {
	if src == nil || dst == nil {
		return nil, Errorf(ErrInvalidConnection, "both ports are required")
	}
	if src.block == nil || dst.block == nil || src.block.pipeline != p || dst.block.pipeline != p {
		return nil, Errorf(ErrInvalidArgument, "ports must belong to pipeline %q", p.name)
	}
	if src.block == dst.block {
		return nil, Errorf(ErrInvalidConnection, "%s cannot connect to itself", src.block)
	}
	if src.spec.Dir&Out == 0 || dst.spec.Dir&In == 0 {
		return nil, Errorf(ErrInvalidConnection, "%s is not an output or %s is not an input", src, dst)
	}
	if src.spec.Type != dst.spec.Type {
		return nil, Errorf(ErrInvalidConnection, "port types differ: %s is %s, %s is %s",
			src, src.spec.Type, dst, dst.spec.Type)
	}
	if findConnection(src, dst) != nil {
		return nil, Errorf(ErrInvalidConnection, "%s is already connected to %s", src, dst)
	}
	if ok, reason := dst.accepts(src.block.Type()); !ok {
		return nil, Errorf(ErrPolicyRejected, "%s", reason)
	}
	if !dst.spec.Multi && len(dst.incoming) > 0 {
		return nil, Errorf(ErrPolicyRejected, "port %s is already connected", dst)
	}

	c := &Connection{src: src, dst: dst, notify: notify}
	p.manager.assign(&c.id)
	src.outgoing = append(src.outgoing, c)
	dst.incoming = append(dst.incoming, c)

	if notify&NotifySource != 0 {
		if o, ok := src.block.kind.(ConnectionObserver); ok {
			o.Connected(src.block, c)
		}
	}
	if notify&NotifyDestination != 0 {
		if o, ok := dst.block.kind.(ConnectionObserver); ok {
			o.Connected(dst.block, c)
		}
	}
	return c, nil
}

// Disconnect removes the edge src -> dst. Both endpoints are notified
// before the edge disappears.
func (p *Pipeline) Disconnect(src, dst *Port) error {
	if src == nil || dst == nil {
		return Errorf(ErrNotFound, "connection does not exist")
	}
	c := findConnection(src, dst)
	if c == nil || src.block == nil || src.block.pipeline != p {
		return Errorf(ErrNotFound, "%s is not connected to %s", src, dst)
	}
	sever(c)
	return nil
}

// Connection returns the edge src -> dst if it exists.
func (p *Pipeline) Connection(src, dst *Port) (*Connection, bool) {
	if src == nil || dst == nil {
		return nil, false
	}
	c := findConnection(src, dst)
	return c, c != nil
}

func findConnection(src, dst *Port) *Connection {
	for _, c := range src.outgoing {
		if c.dst == dst {
			return c
		}
	}
	return nil
}

// sever notifies the endpoints and unlinks c from both index lists.
func sever(c *Connection) {
	if c.notify&NotifySource != 0 && c.src.block != nil {
		if o, ok := c.src.block.kind.(ConnectionObserver); ok {
			o.Disconnected(c.src.block, c)
		}
	}
	if c.notify&NotifyDestination != 0 && c.dst.block != nil {
		if o, ok := c.dst.block.kind.(ConnectionObserver); ok {
			o.Disconnected(c.dst.block, c)
		}
	}
	if i := slices.Index(c.src.outgoing, c); i >= 0 {
		c.src.outgoing = slices.Delete(c.src.outgoing, i, i+1)
	}
	if i := slices.Index(c.dst.incoming, c); i >= 0 {
		c.dst.incoming = slices.Delete(c.dst.incoming, i, i+1)
	}
}
