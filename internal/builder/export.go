package builder

import (
	"fmt"

	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/graph"
)

// Export converts every pipeline of the manager back into a model.
func Export(m *graph.Manager, conv config.Converter) (*config.Model, error) {
	model := &config.Model{}
	for _, p := range m.Pipelines() {
		def, err := ExportPipeline(p, conv)
		if err != nil {
			return nil, err
		}
		model.Pipelines = append(model.Pipelines, def)
	}
	return model, nil
}

// ExportPipeline converts one pipeline into its definition. Inputs of
// mixers and vertex arrays are written as layout entries, every other
// connection as a `connect` definition. The sink is not part of a pipeline
// and is left empty.
func ExportPipeline(p *graph.Pipeline, conv config.Converter) (*config.Pipeline, error) {
	def := &config.Pipeline{
		Name:       p.Name(),
		GLVersion:  p.GLVersion(),
		DocumentID: p.DocumentID().String(),
	}

	for _, b := range p.Blocks() {
		bd, err := exportBlock(b, conv)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", b, err)
		}
		def.Blocks = append(def.Blocks, bd)

		for _, c := range b.Outgoing() {
			if isLayoutInput(c) {
				continue
			}
			def.Connections = append(def.Connections, &config.Connection{
				From:   portRef(c.Source()),
				To:     portRef(c.Destination()),
				Notify: notifyName(c.Notify()),
			})
		}
	}

	for _, cmd := range p.RenderCommands() {
		cd := &config.Command{Type: cmd.Type().String(), Name: cmd.Name()}
		if b := cmd.Block(); b != nil {
			cd.Block = b.Name()
		}
		def.Commands = append(def.Commands, cd)
	}
	return def, nil
}

func exportBlock(b *graph.Block, conv config.Converter) (*config.Block, error) {
	settings, err := exportSettings(conv, b.Kind())
	if err != nil {
		return nil, err
	}
	bd := &config.Block{Type: b.Type().String(), Name: b.Name(), Settings: settings}

	switch k := b.Kind().(type) {
	case *graph.Mixer:
		for _, e := range k.Layout.Entries {
			ed := &config.Entry{
				From:      portRef(e.Connection.Source()),
				Swizzle:   e.Conversion.Swizzle,
				Normalize: e.Conversion.Normalize,
			}
			if e.Name != e.Connection.Source().Block().Name() {
				ed.Name = e.Name
			}
			if e.Conversion.Target != graph.ComponentUndefined {
				ed.Convert = e.Conversion.Target.String()
			}
			bd.Entries = append(bd.Entries, ed)
		}
	case *graph.VertexArray:
		for _, a := range k.Attributes {
			loc := a.Location
			ad := &config.Attribute{From: portRef(a.Connection.Source()), Location: &loc}
			if a.Name != a.Connection.Source().Block().Name() {
				ad.Name = a.Name
			}
			bd.Attributes = append(bd.Attributes, ad)
		}
	case *graph.Shader:
		for _, s := range k.Sources {
			bd.Stages = append(bd.Stages, &config.Stage{Stage: s.Stage, Path: s.Path})
		}
	}
	return bd, nil
}

// isLayoutInput reports whether c is written as part of its destination's
// layout instead of as a plain connection.
func isLayoutInput(c *graph.Connection) bool {
	switch c.Destination().Block().Kind().(type) {
	case *graph.Mixer:
		return c.Destination().Name() == "data"
	case *graph.VertexArray:
		return c.Destination().Name() == "attributes"
	}
	return false
}

func portRef(p *graph.Port) string {
	return p.Block().Name() + "." + p.Name()
}

func notifyName(m graph.NotifyMask) string {
	switch m {
	case graph.NotifyNone:
		return "none"
	case graph.NotifySource:
		return "source"
	case graph.NotifyDestination:
		return "destination"
	default:
		return ""
	}
}
