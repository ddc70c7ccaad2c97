package dataflow

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/glgrid/internal/cache"
	"github.com/vk/glgrid/internal/graph"
)

// RuntimeKey stands in for data that only exists while rendering.
const RuntimeKey = "<runtime>"

// DataSourceKey is the leaf key of a data source. Inline values are hashed;
// file-backed sources are keyed by their quoted path, which cannot run into
// the separators of an enclosing mixer key.
func DataSourceKey(ds *graph.DataSource) string {
	prefix := fmt.Sprintf("DataSourceBlock#%sx%d:", ds.ComponentType.Code(), ds.Components)
	if len(ds.Values) == 0 && ds.Path != "" {
		return prefix + "file:" + strconv.Quote(ds.Path)
	}
	h := sha256.New()
	var buf [8]byte
	for _, v := range ds.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// UniformKey is the leaf key of a uniform: its component type and its value
// as JSON.
func UniformKey(u *graph.Uniform) string {
	if u.Value.IsNull() || !u.Value.IsWhollyKnown() {
		return ""
	}
	raw, err := ctyjson.Marshal(u.Value, u.Value.Type())
	if err != nil {
		return ""
	}
	return fmt.Sprintf("UniformBlock#%s:%s", u.ComponentType.Code(), raw)
}

// keyBuilder describes producer trees. It remembers whether runtime data was
// reached and guards against mixer cycles.
type keyBuilder struct {
	visiting map[*graph.Block]bool
	runtime  bool
}

func newKeyBuilder() *keyBuilder {
	return &keyBuilder{visiting: make(map[*graph.Block]bool)}
}

func (kb *keyBuilder) describe(p Producer) (string, error) {
	switch p := p.(type) {
	case DataSourceProducer:
		return DataSourceKey(p.Source), nil
	case UniformProducer:
		key := UniformKey(p.Uniform)
		if key == "" {
			return "", graph.Errorf(graph.ErrInvalidArgument, "%s has no value", p.Block)
		}
		return key, nil
	case RuntimeProducer:
		kb.runtime = true
		return RuntimeKey, nil
	case MixerProducer:
		return kb.describeMixer(p)
	default:
		return "", graph.Errorf(graph.ErrInvalidArgument, "unknown producer %T", p)
	}
}

func (kb *keyBuilder) describeMixer(p MixerProducer) (string, error) {
	if kb.visiting[p.Block] {
		return "", graph.Errorf(graph.ErrCycleDetected, "%s feeds itself", p.Block)
	}
	kb.visiting[p.Block] = true
	defer delete(kb.visiting, p.Block)

	var sb strings.Builder
	if p.Mixer.Layout.AsStruct {
		sb.WriteString("MixerBlock/asStruct:")
	} else {
		sb.WriteString("MixerBlock/asBlock:")
	}
	for _, e := range p.Mixer.Layout.Entries {
		src, err := Resolve(e.Connection)
		if err != nil {
			return "", err
		}
		desc, err := kb.describe(src)
		if err != nil {
			return "", err
		}
		if code := e.Conversion.Code(); code != "" {
			sb.WriteString("(" + code + ")")
		}
		if _, nested := src.(MixerProducer); nested {
			desc = "[" + desc + "]"
		}
		sb.WriteString(desc)
		sb.WriteString("/")
	}
	return sb.String(), nil
}

// bufferInput returns the single connection feeding a buffer through its
// data or storage port.
func bufferInput(b *graph.Block) (*graph.Connection, bool) {
	in := append(b.Incoming(graph.PortData), b.Incoming(graph.PortStorage)...)
	if len(in) != 1 {
		return nil, false
	}
	return in[0], true
}

// BufferKey derives the cache key of a buffer block:
// "BufferBlock/<src port>><dst port>[<source description>]". It is empty
// when the buffer does not have exactly one input or the upstream tree
// cannot be described.
func BufferKey(b *graph.Block) cache.Key {
	key, _, err := bufferKey(b)
	if err != nil {
		return ""
	}
	return key
}

func bufferKey(b *graph.Block) (cache.Key, bool, error) {
	if b.Type() != graph.BlockBuffer {
		return "", false, graph.Errorf(graph.ErrInvalidArgument, "%s is not a buffer", b)
	}
	c, ok := bufferInput(b)
	if !ok {
		return "", false, graph.Errorf(graph.ErrInvalidArgument, "%s needs exactly one input", b)
	}
	src, err := Resolve(c)
	if err != nil {
		return "", false, err
	}
	kb := newKeyBuilder()
	desc, err := kb.describe(src)
	if err != nil {
		return "", false, err
	}
	key := fmt.Sprintf("BufferBlock/%s>%s[%s]", c.Source().Name(), c.Destination().Name(), desc)
	return cache.Key(key), kb.runtime, nil
}

// MixerKey describes a mixer block on its own, as used inside buffer keys.
func MixerKey(b *graph.Block) (string, error) {
	m, ok := b.Kind().(*graph.Mixer)
	if !ok {
		return "", graph.Errorf(graph.ErrInvalidArgument, "%s is not a mixer", b)
	}
	return newKeyBuilder().describe(MixerProducer{Block: b, Mixer: m})
}
