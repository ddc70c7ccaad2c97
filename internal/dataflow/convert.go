package dataflow

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"

	"github.com/vk/glgrid/internal/graph"
)

// elementWidth is the byte size of one element after conversion.
func elementWidth(components int, src graph.ComponentType, conv graph.Conversion) int {
	return conv.OutputComponents(components) * conv.OutputType(src).Size()
}

// swizzle applies the conversion's component selection. Components missing
// from the source read as (0, 0, 0, 1).
func swizzle(comps []float64, mask string) []float64 {
	if mask == "" {
		return comps
	}
	out := make([]float64, 0, len(mask))
	for _, r := range mask {
		idx, constant, isConst := graph.SwizzleSource(r)
		switch {
		case isConst:
			out = append(out, constant)
		case idx < len(comps):
			out = append(out, comps[idx])
		case idx == 3:
			out = append(out, 1)
		default:
			out = append(out, 0)
		}
	}
	return out
}

// appendElement converts one element and appends its little-endian bytes.
func appendElement(dst []byte, comps []float64, src graph.ComponentType, conv graph.Conversion) []byte {
	target := conv.OutputType(src)
	normalize := conv.Normalize && !target.IsFloat()
	for _, v := range swizzle(comps, conv.Swizzle) {
		dst = appendComponent(dst, v, target, normalize)
	}
	return dst
}

func appendComponent(dst []byte, v float64, ct graph.ComponentType, normalize bool) []byte {
	le := binary.LittleEndian
	switch ct {
	case graph.ComponentFloat32:
		return le.AppendUint32(dst, math32.Float32bits(float32(v)))
	case graph.ComponentFloat64:
		return le.AppendUint64(dst, math.Float64bits(v))
	case graph.ComponentInt8:
		return append(dst, byte(int8(toInt(v, math.MinInt8, math.MaxInt8, normalize))))
	case graph.ComponentUint8:
		return append(dst, byte(toInt(v, 0, math.MaxUint8, normalize)))
	case graph.ComponentInt16:
		return le.AppendUint16(dst, uint16(int16(toInt(v, math.MinInt16, math.MaxInt16, normalize))))
	case graph.ComponentUint16:
		return le.AppendUint16(dst, uint16(toInt(v, 0, math.MaxUint16, normalize)))
	case graph.ComponentInt32:
		return le.AppendUint32(dst, uint32(int32(toInt(v, math.MinInt32, math.MaxInt32, normalize))))
	case graph.ComponentUint32:
		return le.AppendUint32(dst, uint32(toInt(v, 0, math.MaxUint32, normalize)))
	}
	return dst
}

// toInt rounds v into [lo, hi]. Normalized values are first clamped to
// [0, 1] (or [-1, 1] for signed types) and scaled to hi.
func toInt(v float64, lo, hi int64, normalize bool) int64 {
	if math.IsNaN(v) {
		return 0
	}
	if normalize {
		v = math.Max(float64(max(lo, -1)), math.Min(1, v)) * float64(hi)
	}
	r := math.Round(v)
	if r < float64(lo) {
		return lo
	}
	if r > float64(hi) {
		return hi
	}
	return int64(r)
}
