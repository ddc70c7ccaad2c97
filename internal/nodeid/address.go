package nodeid

import (
	"fmt"
	"slices"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			fmt.Fprintf(&sb, "[%d]", segment.Index)
		}
	}
	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}

// PortRef interprets the address as `block.port[index]`.
func (a *Address) PortRef() (PortRef, error) {
	if a == nil || len(a.Path) != 2 {
		return PortRef{}, fmt.Errorf("port reference %q must have the form block.port", a.String())
	}
	if a.Path[0].HasIndex() {
		return PortRef{}, fmt.Errorf("port reference %q: the block segment cannot be indexed", a.String())
	}
	return PortRef{Block: a.Path[0].Name, Port: a.Path[1].Name, Index: a.Path[1].Index}, nil
}

// HasIndex reports whether the reference carries a layout position.
func (r PortRef) HasIndex() bool { return r.Index != -1 }

func (r PortRef) String() string {
	a := &Address{Path: []Segment{NewSegment(r.Block), {Name: r.Port, Index: r.Index}}}
	return a.String()
}
