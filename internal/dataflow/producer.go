// Package dataflow derives cache keys and byte streams from the data
// producing part of a pipeline graph.
//
// # Why Dataflow Package Exists
//
// A Buffer uploads whatever arrives on its single data connection. Upstream
// of that connection sits a small tree of producers: DataSource leaves,
// Uniform constants and Mixers that interleave or concatenate other
// producers. This package turns that tree into:
//   - **Cache keys:** deterministic strings describing the tree's shape and
//     parameters, never its identity, so equal subgraphs share one entry.
//   - **Byte streams:** the little-endian payload a GL buffer would receive,
//     laid out in struct (interleaved) or block (contiguous) mode.
//
// Producers whose data only exists while rendering (transform feedback,
// shader storage) are represented by RuntimeProducer and short-circuit to
// RuntimeKey.
package dataflow

import (
	"github.com/vk/glgrid/internal/graph"
)

// Producer is the closed set of things a data connection can originate from.
// Switch over DataSourceProducer, UniformProducer, MixerProducer and
// RuntimeProducer.
type Producer interface {
	// Origin is the block the data comes from.
	Origin() *graph.Block
	isProducer()
}

type DataSourceProducer struct {
	Block  *graph.Block
	Source *graph.DataSource
}

type UniformProducer struct {
	Block   *graph.Block
	Uniform *graph.Uniform
}

type MixerProducer struct {
	Block *graph.Block
	Mixer *graph.Mixer
}

// RuntimeProducer is data written by the GPU during a render pass.
type RuntimeProducer struct {
	Block *graph.Block
	Port  *graph.Port
}

func (p DataSourceProducer) Origin() *graph.Block { return p.Block }
func (p UniformProducer) Origin() *graph.Block    { return p.Block }
func (p MixerProducer) Origin() *graph.Block      { return p.Block }
func (p RuntimeProducer) Origin() *graph.Block    { return p.Block }

func (DataSourceProducer) isProducer() {}
func (UniformProducer) isProducer()    {}
func (MixerProducer) isProducer()      {}
func (RuntimeProducer) isProducer()    {}

// Resolve classifies the source of a data connection.
func Resolve(c *graph.Connection) (Producer, error) {
	if c == nil || c.Source() == nil || c.Source().Block() == nil {
		return nil, graph.Errorf(graph.ErrInvalidArgument, "connection has no source block")
	}
	src := c.Source().Block()
	switch k := src.Kind().(type) {
	case *graph.DataSource:
		return DataSourceProducer{Block: src, Source: k}, nil
	case *graph.Uniform:
		return UniformProducer{Block: src, Uniform: k}, nil
	case *graph.Mixer:
		return MixerProducer{Block: src, Mixer: k}, nil
	case *graph.TransformFeedback:
		return RuntimeProducer{Block: src, Port: c.Source()}, nil
	case *graph.Shader:
		if c.Source().Type() == graph.PortStorage {
			return RuntimeProducer{Block: src, Port: c.Source()}, nil
		}
	}
	return nil, graph.Errorf(graph.ErrInvalidArgument, "%s does not produce data", src)
}
