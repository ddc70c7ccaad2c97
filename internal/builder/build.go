package builder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/nodeid"
	"github.com/vk/glgrid/internal/serial"
)

// Result is the outcome of a build.
type Result struct {
	Pipelines []*graph.Pipeline
	// Messages lists the items that were dropped, prefixed with their
	// pipeline.
	Messages []string
}

// Build creates one pipeline in m per pipeline of the model.
func Build(ctx context.Context, m *graph.Manager, model *config.Model, conv config.Converter) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting pipeline construction.", "pipelines", len(model.Pipelines))

	res := &Result{}
	for _, def := range model.Pipelines {
		p, msgs, err := buildPipeline(ctxlog.With(ctx, "pipeline", def.Name), m, def, conv)
		if err != nil {
			return nil, fmt.Errorf("building pipeline %q: %w", def.Name, err)
		}
		res.Pipelines = append(res.Pipelines, p)
		for _, msg := range msgs {
			res.Messages = append(res.Messages, fmt.Sprintf("%s: %s", def.Name, msg))
		}
	}

	logger.Info("Build: Pipelines constructed.", "pipelines", len(res.Pipelines), "messages", len(res.Messages))
	return res, nil
}

// pipelineBuilder holds the state of one pipeline under construction.
type pipelineBuilder struct {
	ctx  context.Context
	p    *graph.Pipeline
	sc   *serial.Context
	conv config.Converter
}

func buildPipeline(ctx context.Context, m *graph.Manager, def *config.Pipeline, conv config.Converter) (*graph.Pipeline, []string, error) {
	logger := ctxlog.FromContext(ctx)
	pb := &pipelineBuilder{
		ctx:  ctx,
		p:    m.NewPipeline(def.Name, def.GLVersion),
		sc:   serial.NewContext(),
		conv: conv,
	}
	if def.DocumentID != "" {
		id, err := uuid.Parse(def.DocumentID)
		if err != nil {
			pb.sc.Inconsistent("document_id %q is not a UUID, keeping %s", def.DocumentID, pb.p.DocumentID())
		} else {
			pb.p.SetDocumentID(id)
		}
	}

	// First pass: create every block so that references can be resolved.
	var created []*config.Block
	for _, bd := range def.Blocks {
		if pb.createBlock(bd) {
			created = append(created, bd)
		}
	}
	logger.Debug("Build: Block creation complete.", "blocks", len(created))

	// Second pass: queue everything that refers to other objects.
	for _, bd := range created {
		for _, e := range bd.Entries {
			pb.deferEntry(bd.Name, e)
		}
		for _, a := range bd.Attributes {
			pb.deferAttribute(bd.Name, a)
		}
	}
	for _, cd := range def.Connections {
		pb.deferConnection(cd)
	}
	for _, cd := range def.Commands {
		pb.deferCommand(cd)
	}
	pb.sc.Defer(serial.PriorityFinalize, "validate", func() error {
		report := graph.Validate(pb.p)
		logger.Info("Build: Pipeline validated.", "status", report.Status.String(), "issues", len(report.Issues))
		for _, issue := range report.Issues {
			logger.Debug("Validation issue.", "issue", issue.String())
		}
		return nil
	})

	if err := pb.sc.Finish(ctx); err != nil {
		return nil, nil, err
	}
	return pb.p, pb.sc.Messages, nil
}

// createBlock reports whether the block made it into the pipeline.
func (pb *pipelineBuilder) createBlock(bd *config.Block) bool {
	kind, err := newKind(pb.ctx, pb.conv, bd)
	if err == nil {
		var b *graph.Block
		if b, err = pb.p.AddBlock(bd.Name, kind); err == nil {
			if err = pb.sc.Objects.Bind(b.Name(), b); err != nil {
				_ = pb.p.DeleteBlock(b)
			}
		}
	}
	if err != nil {
		pb.sc.Inconsistent("block %q %q: %s", bd.Type, bd.Name, graph.Reason(err))
		return false
	}
	return true
}

// port resolves a port reference through the object pool.
func (pb *pipelineBuilder) port(ref nodeid.PortRef) (*graph.Port, error) {
	b, err := pb.sc.Objects.Block(ref.Block)
	if err != nil {
		return nil, err
	}
	port, ok := b.Port(ref.Port)
	if !ok {
		return nil, graph.Errorf(graph.ErrSerialization, "%s has no port %q", b, ref.Port)
	}
	return port, nil
}

// connect links two resolved references. Rejections from the graph are
// reported as serialization inconsistencies.
func (pb *pipelineBuilder) connect(from, to nodeid.PortRef, mask graph.NotifyMask) (*graph.Connection, error) {
	if from.HasIndex() {
		return nil, graph.Errorf(graph.ErrSerialization, "source %s cannot carry an index", from)
	}
	src, err := pb.port(from)
	if err != nil {
		return nil, err
	}
	dst, err := pb.port(to)
	if err != nil {
		return nil, err
	}
	c, err := pb.p.ConnectWithMask(src, dst, mask)
	if err != nil {
		return nil, graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
	}
	return c, nil
}

func parseRef(raw string) (nodeid.PortRef, error) {
	ref, err := nodeid.ParsePortRef(raw)
	if err != nil {
		return nodeid.PortRef{}, graph.Errorf(graph.ErrSerialization, "%s", err.Error())
	}
	return ref, nil
}

func parseNotify(s string) (graph.NotifyMask, error) {
	switch s {
	case "", "both":
		return graph.NotifyBoth, nil
	case "none":
		return graph.NotifyNone, nil
	case "source":
		return graph.NotifySource, nil
	case "destination":
		return graph.NotifyDestination, nil
	default:
		return graph.NotifyNone, graph.Errorf(graph.ErrSerialization, "unknown notify mode %q", s)
	}
}

func (pb *pipelineBuilder) deferConnection(cd *config.Connection) {
	name := fmt.Sprintf("connect %s -> %s", cd.From, cd.To)
	var c *graph.Connection
	var to nodeid.PortRef

	pb.sc.Defer(serial.PriorityConnections, name, func() error {
		from, err := parseRef(cd.From)
		if err != nil {
			return err
		}
		if to, err = parseRef(cd.To); err != nil {
			return err
		}
		mask, err := parseNotify(cd.Notify)
		if err != nil {
			return err
		}
		if c, err = pb.connect(from, to, mask); err != nil {
			return err
		}
		if !to.HasIndex() {
			return nil
		}
		switch k := c.Destination().Block().Kind().(type) {
		case *graph.Mixer:
			pb.sc.Defer(serial.PriorityLayouts, name, func() error {
				if err := k.Layout.MoveEntry(c, to.Index); err != nil {
					return graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
				}
				return nil
			})
		case *graph.VertexArray:
			pb.sc.Defer(serial.PriorityAttributes, name, func() error {
				a, ok := k.Attribute(c)
				if !ok {
					return graph.Errorf(graph.ErrSerialization, "no attribute for %s", c)
				}
				a.Location = to.Index
				return nil
			})
		default:
			return graph.Errorf(graph.ErrSerialization, "index on %s is ignored, it has no layout", to)
		}
		return nil
	})
}

func (pb *pipelineBuilder) deferEntry(mixer string, e *config.Entry) {
	name := fmt.Sprintf("entry %s -> %s", e.From, mixer)
	var c *graph.Connection

	pb.sc.Defer(serial.PriorityConnections, name, func() error {
		from, err := parseRef(e.From)
		if err != nil {
			return err
		}
		c, err = pb.connect(from, nodeid.PortRef{Block: mixer, Port: "data", Index: -1}, graph.NotifyBoth)
		return err
	})
	pb.sc.Defer(serial.PriorityLayouts, name, func() error {
		if c == nil {
			return nil
		}
		k := c.Destination().Block().Kind().(*graph.Mixer)
		entry, ok := k.Layout.Entry(c)
		if !ok {
			return graph.Errorf(graph.ErrSerialization, "no layout entry for %s", c)
		}
		conv := graph.Conversion{Normalize: e.Normalize, Swizzle: e.Swizzle}
		if e.Convert != "" {
			ct, err := graph.ParseComponentType(e.Convert)
			if err != nil {
				return graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
			}
			conv.Target = ct
		}
		if err := conv.Validate(); err != nil {
			return graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
		}
		if e.Name != "" {
			entry.Name = e.Name
		}
		entry.Conversion = conv
		return nil
	})
}

func (pb *pipelineBuilder) deferAttribute(vao string, a *config.Attribute) {
	name := fmt.Sprintf("attribute %s -> %s", a.From, vao)
	var c *graph.Connection

	pb.sc.Defer(serial.PriorityConnections, name, func() error {
		from, err := parseRef(a.From)
		if err != nil {
			return err
		}
		c, err = pb.connect(from, nodeid.PortRef{Block: vao, Port: "attributes", Index: -1}, graph.NotifyBoth)
		return err
	})
	pb.sc.Defer(serial.PriorityAttributes, name, func() error {
		if c == nil {
			return nil
		}
		k := c.Destination().Block().Kind().(*graph.VertexArray)
		attr, ok := k.Attribute(c)
		if !ok {
			return graph.Errorf(graph.ErrSerialization, "no attribute for %s", c)
		}
		if a.Name != "" {
			attr.Name = a.Name
		}
		if a.Location != nil {
			attr.Location = *a.Location
		}
		return nil
	})
}

func (pb *pipelineBuilder) deferCommand(cd *config.Command) {
	name := fmt.Sprintf("command %s %q", cd.Type, cd.Name)
	pb.sc.Defer(serial.PriorityCommands, name, func() error {
		typ, err := graph.ParseCommandType(cd.Type)
		if err != nil {
			return graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
		}
		cmd, err := pb.p.AddRenderCommand(cd.Name, typ)
		if err != nil {
			return graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
		}
		if cd.Block == "" {
			return nil
		}
		b, err := pb.sc.Objects.Block(cd.Block)
		if err == nil {
			err = cmd.Assign(b)
		}
		if err != nil {
			// The command stays, unassigned.
			return graph.Errorf(graph.ErrSerialization, "%s", graph.Reason(err))
		}
		return nil
	})
}
