package dataflow

import (
	"github.com/vk/glgrid/internal/graph"
)

// Stream is the state of one streaming traversal. It keeps a row index per
// struct-mode mixer, so a mixer nested under several parents advances
// consistently, and memoizes the full output of block-mode mixers.
type Stream struct {
	dir      string
	rows     map[*graph.Block]int
	values   map[*graph.Block][]float64
	blocks   map[*graph.Block][]byte
	pulled   map[*graph.Block]bool
	visiting map[*graph.Block]bool
}

// NewStream starts a traversal. File-backed data sources are resolved
// relative to dir.
func NewStream(dir string) *Stream {
	return &Stream{
		dir:      dir,
		rows:     make(map[*graph.Block]int),
		values:   make(map[*graph.Block][]float64),
		blocks:   make(map[*graph.Block][]byte),
		pulled:   make(map[*graph.Block]bool),
		visiting: make(map[*graph.Block]bool),
	}
}

// StreamToBuffer produces the bytes a buffer fed by the given mixer receives.
func StreamToBuffer(mixer *graph.Block, dir string) ([]byte, error) {
	return NewStream(dir).Mixer(mixer)
}

// Row returns how many rows a struct-mode mixer has produced so far.
func (s *Stream) Row(mixer *graph.Block) int {
	return s.rows[mixer]
}

// Mixer returns the remaining output of a mixer. Struct mode pulls rows until
// a row comes back empty for every entry; block mode concatenates each
// entry's full stream.
func (s *Stream) Mixer(b *graph.Block) ([]byte, error) {
	m, ok := b.Kind().(*graph.Mixer)
	if !ok {
		return nil, graph.Errorf(graph.ErrInvalidArgument, "%s is not a mixer", b)
	}
	if !m.Layout.AsStruct {
		return s.blockStream(b, m)
	}
	var out []byte
	for {
		row, ok, err := s.structRow(b, m)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, row...)
	}
}

func (s *Stream) enter(b *graph.Block) error {
	if s.visiting[b] {
		return graph.Errorf(graph.ErrCycleDetected, "%s feeds itself", b)
	}
	s.visiting[b] = true
	return nil
}

func (s *Stream) leave(b *graph.Block) { delete(s.visiting, b) }

// structRow assembles the next row of a struct-mode mixer. Entries with no
// data left are zero padded to their width; a row where every entry is empty
// ends the stream and is not counted.
func (s *Stream) structRow(b *graph.Block, m *graph.Mixer) ([]byte, bool, error) {
	if err := s.enter(b); err != nil {
		return nil, false, err
	}
	defer s.leave(b)

	row := s.rows[b]
	type piece struct {
		data  []byte
		width int
	}
	pieces := make([]piece, 0, len(m.Layout.Entries))
	filled := false
	for _, e := range m.Layout.Entries {
		data, width, err := s.pull(e, row)
		if err != nil {
			return nil, false, err
		}
		if data != nil {
			filled = true
		}
		pieces = append(pieces, piece{data: data, width: width})
	}
	if !filled {
		return nil, false, nil
	}

	var out []byte
	for _, p := range pieces {
		if p.data == nil {
			out = append(out, make([]byte, p.width)...)
			continue
		}
		out = append(out, p.data...)
	}
	s.rows[b] = row + 1
	return out, true, nil
}

// pull returns the bytes one entry contributes to a parent row, or nil when
// it has nothing left, together with the entry's width for padding.
func (s *Stream) pull(e *graph.MixerEntry, row int) ([]byte, int, error) {
	src, err := Resolve(e.Connection)
	if err != nil {
		return nil, 0, err
	}
	switch p := src.(type) {
	case DataSourceProducer:
		vals, err := s.load(p)
		if err != nil {
			return nil, 0, err
		}
		n := p.Source.Components
		width := elementWidth(n, p.Source.ComponentType, e.Conversion)
		if (row+1)*n > len(vals) {
			return nil, width, nil
		}
		return appendElement(nil, vals[row*n:(row+1)*n], p.Source.ComponentType, e.Conversion), width, nil

	case UniformProducer:
		comps, err := p.Uniform.Components()
		if err != nil {
			return nil, 0, err
		}
		width := elementWidth(len(comps), p.Uniform.ComponentType, e.Conversion)
		if row != 0 {
			return nil, width, nil
		}
		return appendElement(nil, comps, p.Uniform.ComponentType, e.Conversion), width, nil

	case MixerProducer:
		if !e.Conversion.IsIdentity() {
			return nil, 0, graph.Errorf(graph.ErrInvalidArgument, "entry %q: a nested mixer cannot be converted", e.Name)
		}
		if p.Mixer.Layout.AsStruct {
			width, err := s.structWidth(p.Block, p.Mixer)
			if err != nil {
				return nil, 0, err
			}
			data, ok, err := s.structRow(p.Block, p.Mixer)
			if err != nil || !ok {
				return nil, width, err
			}
			return data, width, nil
		}
		data, err := s.blockStream(p.Block, p.Mixer)
		if err != nil {
			return nil, 0, err
		}
		if s.pulled[p.Block] {
			return nil, len(data), nil
		}
		s.pulled[p.Block] = true
		return data, len(data), nil

	case RuntimeProducer:
		return nil, 0, graph.Errorf(graph.ErrInvalidArgument, "%s only has data while rendering", p.Block)
	}
	return nil, 0, graph.Errorf(graph.ErrInvalidArgument, "unknown producer %T", src)
}

// full returns everything one entry produces, for block-mode parents.
func (s *Stream) full(e *graph.MixerEntry) ([]byte, error) {
	src, err := Resolve(e.Connection)
	if err != nil {
		return nil, err
	}
	switch p := src.(type) {
	case DataSourceProducer:
		vals, err := s.load(p)
		if err != nil {
			return nil, err
		}
		n := p.Source.Components
		var out []byte
		for off := 0; off+n <= len(vals); off += n {
			out = appendElement(out, vals[off:off+n], p.Source.ComponentType, e.Conversion)
		}
		return out, nil
	case UniformProducer:
		comps, err := p.Uniform.Components()
		if err != nil {
			return nil, err
		}
		return appendElement(nil, comps, p.Uniform.ComponentType, e.Conversion), nil
	case MixerProducer:
		if !e.Conversion.IsIdentity() {
			return nil, graph.Errorf(graph.ErrInvalidArgument, "entry %q: a nested mixer cannot be converted", e.Name)
		}
		return s.Mixer(p.Block)
	case RuntimeProducer:
		return nil, graph.Errorf(graph.ErrInvalidArgument, "%s only has data while rendering", p.Block)
	}
	return nil, graph.Errorf(graph.ErrInvalidArgument, "unknown producer %T", src)
}

func (s *Stream) blockStream(b *graph.Block, m *graph.Mixer) ([]byte, error) {
	if data, ok := s.blocks[b]; ok {
		return data, nil
	}
	if err := s.enter(b); err != nil {
		return nil, err
	}
	defer s.leave(b)

	var out []byte
	for _, e := range m.Layout.Entries {
		data, err := s.full(e)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	s.blocks[b] = out
	return out, nil
}

// structWidth is the size in bytes of one row of a struct-mode mixer.
func (s *Stream) structWidth(b *graph.Block, m *graph.Mixer) (int, error) {
	if err := s.enter(b); err != nil {
		return 0, err
	}
	defer s.leave(b)

	total := 0
	for _, e := range m.Layout.Entries {
		src, err := Resolve(e.Connection)
		if err != nil {
			return 0, err
		}
		switch p := src.(type) {
		case DataSourceProducer:
			if err := checkShape(p.Source); err != nil {
				return 0, err
			}
			total += elementWidth(p.Source.Components, p.Source.ComponentType, e.Conversion)
		case UniformProducer:
			comps, err := p.Uniform.Components()
			if err != nil {
				return 0, err
			}
			total += elementWidth(len(comps), p.Uniform.ComponentType, e.Conversion)
		case MixerProducer:
			var w int
			if p.Mixer.Layout.AsStruct {
				w, err = s.structWidth(p.Block, p.Mixer)
			} else {
				var data []byte
				data, err = s.blockStream(p.Block, p.Mixer)
				w = len(data)
			}
			if err != nil {
				return 0, err
			}
			total += w
		case RuntimeProducer:
			return 0, graph.Errorf(graph.ErrInvalidArgument, "%s only has data while rendering", p.Block)
		}
	}
	return total, nil
}

// StructWidth is the row size of a struct-mode mixer, 0 for block mode.
func (s *Stream) StructWidth(b *graph.Block) (int, error) {
	m, ok := b.Kind().(*graph.Mixer)
	if !ok {
		return 0, graph.Errorf(graph.ErrInvalidArgument, "%s is not a mixer", b)
	}
	if !m.Layout.AsStruct {
		return 0, nil
	}
	return s.structWidth(b, m)
}

func (s *Stream) load(p DataSourceProducer) ([]float64, error) {
	if vals, ok := s.values[p.Block]; ok {
		return vals, nil
	}
	vals, err := LoadValues(p.Source, s.dir)
	if err != nil {
		return nil, err
	}
	s.values[p.Block] = vals
	return vals, nil
}
