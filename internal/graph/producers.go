package graph

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// DataSource is a leaf producing a list of elements, each of Components
// scalars of ComponentType. Values are given inline or read from Path, a raw
// little-endian file.
type DataSource struct {
	ComponentType ComponentType
	Components    int
	Values        []float64
	Path          string
}

func (*DataSource) Type() BlockType { return BlockDataSource }

func (*DataSource) PortSpecs() []PortSpec {
	return []PortSpec{{Name: "data", Type: PortData, Dir: Out}}
}

func (k *DataSource) Validate(*Block) (Status, string) {
	if k.ComponentType.Size() == 0 {
		return StatusError, "component type is not set"
	}
	if k.Components < 1 || k.Components > 4 {
		return StatusError, fmt.Sprintf("components must be between 1 and 4, got %d", k.Components)
	}
	if len(k.Values) > 0 && k.Path != "" {
		return StatusError, "values and path are mutually exclusive"
	}
	if len(k.Values) == 0 && k.Path == "" {
		return StatusChilled, "no data"
	}
	if len(k.Values)%k.Components != 0 {
		return StatusError, fmt.Sprintf("%d values do not split into elements of %d components", len(k.Values), k.Components)
	}
	return StatusHealthy, ""
}

func (k *DataSource) Assets() []string {
	if k.Path == "" {
		return nil
	}
	return []string{k.Path}
}

// Uniform is a constant: a number, a vector or a matrix.
type Uniform struct {
	Value         cty.Value
	ComponentType ComponentType
}

func (*Uniform) Type() BlockType { return BlockUniform }

func (*Uniform) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "data", Type: PortData, Dir: Out},
		{Name: "uniform", Type: PortUniform, Dir: Out},
	}
}

// Components returns the flattened numeric components of the value.
func (k *Uniform) Components() ([]float64, error) {
	return FlattenNumbers(k.Value)
}

func (k *Uniform) Validate(*Block) (Status, string) {
	if k.Value.IsNull() {
		return StatusChilled, "no value"
	}
	if k.ComponentType.Size() == 0 {
		return StatusError, "component type is not set"
	}
	comps, err := k.Components()
	if err != nil {
		return StatusError, Reason(err)
	}
	if len(comps) < 1 || len(comps) > 16 {
		return StatusError, fmt.Sprintf("a uniform holds 1 to 16 components, got %d", len(comps))
	}
	return StatusHealthy, ""
}

// FlattenNumbers turns a number, or a list or tuple of numbers, into
// float64 components.
func FlattenNumbers(v cty.Value) ([]float64, error) {
	if !v.IsKnown() || v.IsNull() {
		return nil, Errorf(ErrInvalidArgument, "value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return []float64{f}, nil
	case ty.IsListType() || ty.IsTupleType():
		out := make([]float64, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			if ev.IsNull() || ev.Type() != cty.Number {
				return nil, Errorf(ErrInvalidArgument, "uniform components must be numbers")
			}
			f, _ := ev.AsBigFloat().Float64()
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, Errorf(ErrInvalidArgument, "uniform value must be a number or a list of numbers, got %s", ty.FriendlyName())
	}
}

// MixerEntry pairs one incoming data connection with a conversion and a
// display name.
type MixerEntry struct {
	Connection *Connection
	Name       string
	Conversion Conversion
}

// MixerLayout is the ordered list of entries a mixer combines.
type MixerLayout struct {
	// AsStruct interleaves one element of every entry per row. Otherwise
	// every entry's stream is written as one contiguous block.
	AsStruct bool
	Entries  []*MixerEntry
}

// Entry returns the layout entry for a connection.
func (l *MixerLayout) Entry(c *Connection) (*MixerEntry, bool) {
	for _, e := range l.Entries {
		if e.Connection == c {
			return e, true
		}
	}
	return nil, false
}

// MoveEntry moves the entry of c to position idx, clamped to the list.
func (l *MixerLayout) MoveEntry(c *Connection, idx int) error {
	from := -1
	for i, e := range l.Entries {
		if e.Connection == c {
			from = i
			break
		}
	}
	if from < 0 {
		return Errorf(ErrNotFound, "connection %s has no layout entry", c)
	}
	e := l.Entries[from]
	l.Entries = append(l.Entries[:from], l.Entries[from+1:]...)
	idx = max(0, min(idx, len(l.Entries)))
	l.Entries = append(l.Entries[:idx], append([]*MixerEntry{e}, l.Entries[idx:]...)...)
	return nil
}

// Mixer interleaves or concatenates data from several producers.
type Mixer struct {
	Layout MixerLayout
}

func (*Mixer) Type() BlockType { return BlockMixer }

func (*Mixer) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "data", Type: PortData, Dir: In, Multi: true, Accepts: dataProducers},
		{Name: "mixed", Type: PortData, Dir: Out},
	}
}

// Connected appends an identity entry for every new incoming connection.
func (k *Mixer) Connected(self *Block, c *Connection) {
	if c.dst.block != self {
		return
	}
	if _, ok := k.Layout.Entry(c); ok {
		return
	}
	k.Layout.Entries = append(k.Layout.Entries, &MixerEntry{Connection: c, Name: c.src.block.name})
}

// Disconnected drops the entry of a severed connection.
func (k *Mixer) Disconnected(self *Block, c *Connection) {
	out := k.Layout.Entries[:0]
	for _, e := range k.Layout.Entries {
		if e.Connection != c {
			out = append(out, e)
		}
	}
	k.Layout.Entries = out
}

func (k *Mixer) Validate(b *Block) (Status, string) {
	if len(k.Layout.Entries) == 0 {
		return StatusChilled, "layout is empty"
	}
	for _, e := range k.Layout.Entries {
		if err := e.Conversion.Validate(); err != nil {
			return StatusError, fmt.Sprintf("entry %q: %s", e.Name, Reason(err))
		}
		if !e.Conversion.IsIdentity() && e.Connection.src.block.Type() == BlockMixer {
			return StatusError, fmt.Sprintf("entry %q: a nested mixer cannot be converted", e.Name)
		}
	}
	for _, c := range b.Incoming(PortData) {
		if _, ok := k.Layout.Entry(c); !ok {
			return StatusChilled, fmt.Sprintf("%s is not part of the layout", c)
		}
	}
	return StatusHealthy, ""
}
