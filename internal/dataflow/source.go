package dataflow

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"

	"github.com/vk/glgrid/internal/graph"
)

// MaxComponents is the widest element a data source can describe.
const MaxComponents = 4

// checkShape rejects data sources whose elements cannot be stepped through.
func checkShape(ds *graph.DataSource) error {
	if ds.Components < 1 || ds.Components > MaxComponents {
		return graph.Errorf(graph.ErrInvalidArgument, "components must be between 1 and %d, got %d", MaxComponents, ds.Components)
	}
	return nil
}

// LoadValues returns the scalar values of a data source. Inline values win;
// otherwise Path is read as raw little-endian components, relative to dir.
func LoadValues(ds *graph.DataSource, dir string) ([]float64, error) {
	if err := checkShape(ds); err != nil {
		return nil, err
	}
	if len(ds.Values) > 0 || ds.Path == "" {
		return ds.Values, nil
	}
	path := ds.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data source %q: %w", ds.Path, err)
	}
	return decodeComponents(raw, ds.ComponentType)
}

func decodeComponents(raw []byte, ct graph.ComponentType) ([]float64, error) {
	size := ct.Size()
	if size == 0 {
		return nil, graph.Errorf(graph.ErrInvalidArgument, "component type is not set")
	}
	if len(raw)%size != 0 {
		return nil, graph.Errorf(graph.ErrInvalidArgument, "%d bytes do not split into %s components", len(raw), ct)
	}
	out := make([]float64, 0, len(raw)/size)
	le := binary.LittleEndian
	for off := 0; off < len(raw); off += size {
		b := raw[off : off+size]
		var v float64
		switch ct {
		case graph.ComponentFloat32:
			v = float64(math32.Float32frombits(le.Uint32(b)))
		case graph.ComponentFloat64:
			v = math.Float64frombits(le.Uint64(b))
		case graph.ComponentInt8:
			v = float64(int8(b[0]))
		case graph.ComponentUint8:
			v = float64(b[0])
		case graph.ComponentInt16:
			v = float64(int16(le.Uint16(b)))
		case graph.ComponentUint16:
			v = float64(le.Uint16(b))
		case graph.ComponentInt32:
			v = float64(int32(le.Uint32(b)))
		case graph.ComponentUint32:
			v = float64(le.Uint32(b))
		}
		out = append(out, v)
	}
	return out, nil
}
