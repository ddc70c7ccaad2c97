package evaluate

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vk/glgrid/internal/cache"
	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/dataflow"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/renderpass"
)

// Step is one line of a plan.
type Step struct {
	Pass   int
	Block  string
	Type   graph.BlockType
	Detail string
}

func (s Step) String() string {
	if s.Block == "" {
		return fmt.Sprintf("pass %d: %s", s.Pass, s.Detail)
	}
	return fmt.Sprintf("pass %d: %s %q: %s", s.Pass, s.Type, s.Block, s.Detail)
}

// Planner is the dry-run backend. Instead of issuing GL calls it records
// what would be done, and it resolves buffer and texture payloads through
// the cache pool exactly as a real backend would.
type Planner struct {
	resolver dataflow.Resolver

	mu    sync.Mutex
	steps []Step
	seen  map[*renderpass.Pass]bool
}

// NewPlanner creates a planner resolving files relative to dir.
func NewPlanner(pool *cache.Pool, dir string) *Planner {
	return &Planner{
		resolver: dataflow.Resolver{Pool: pool, Dir: dir},
		seen:     make(map[*renderpass.Pass]bool),
	}
}

// Register binds the planner to every block type.
func (p *Planner) Register(r *Registry) {
	for _, t := range TypeOrder {
		r.Register(t, EvaluatorFunc(p.evaluate))
	}
}

// Steps returns the recorded plan.
func (p *Planner) Steps() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// WriteTo prints the plan, one step per line.
func (p *Planner) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, s := range p.Steps() {
		m, err := fmt.Fprintln(w, s.String())
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Reset forgets the recorded plan. Cached payloads stay in the pool.
func (p *Planner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = nil
	p.seen = make(map[*renderpass.Pass]bool)
}

// Release drops the cache claims of the blocks of a pipeline that is
// being replaced.
func (p *Planner) Release(pl *graph.Pipeline) {
	for _, b := range pl.Blocks() {
		p.resolver.Release(b)
	}
}

func (p *Planner) record(s Step) {
	p.mu.Lock()
	p.steps = append(p.steps, s)
	p.mu.Unlock()
}

func (p *Planner) evaluate(ctx context.Context, pass *renderpass.Pass, b *graph.Block) error {
	p.mu.Lock()
	first := !p.seen[pass]
	p.seen[pass] = true
	p.mu.Unlock()
	if first {
		p.record(Step{Pass: pass.Index(), Detail: passHeader(pass)})
	}

	detail, err := p.describe(ctx, b)
	if err != nil {
		return err
	}
	p.record(Step{Pass: pass.Index(), Block: b.Name(), Type: b.Type(), Detail: detail})
	return nil
}

func passHeader(pass *renderpass.Pass) string {
	var b strings.Builder
	fmt.Fprintf(&b, "begin, seeded by %s", pass.Seed())
	if pass.Boundary() != nil {
		fmt.Fprintf(&b, " into %s", pass.Boundary())
	}
	cmds := pass.RenderCommands()
	if len(cmds) > 0 {
		names := make([]string, len(cmds))
		for i, c := range cmds {
			names[i] = fmt.Sprintf("%s %s", c.Type(), c.Name())
		}
		fmt.Fprintf(&b, ", commands: %s", strings.Join(names, ", "))
	}
	return b.String()
}

func (p *Planner) describe(ctx context.Context, b *graph.Block) (string, error) {
	logger := ctxlog.FromContext(ctx)
	switch k := b.Kind().(type) {
	case *graph.DataSource:
		if k.Path != "" {
			return fmt.Sprintf("read %s from %s", k.ComponentType, k.Path), nil
		}
		return fmt.Sprintf("%d %s values", len(k.Values), k.ComponentType), nil
	case *graph.Uniform:
		comps, err := k.Components()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("set %d %s components", len(comps), k.ComponentType), nil
	case *graph.Image:
		return "load " + k.Path, nil
	case *graph.Mixer:
		mode := "block"
		if k.Layout.AsStruct {
			mode = "struct"
		}
		return fmt.Sprintf("mix %d entries as %s", len(k.Layout.Entries), mode), nil
	case *graph.Buffer:
		data, ok := p.resolver.Buffer(b)
		if ok {
			if data.Stride > 0 {
				return fmt.Sprintf("upload %d bytes, stride %d", data.Size(), data.Stride), nil
			}
			return fmt.Sprintf("upload %d bytes", data.Size()), nil
		}
		if _, err := (dataflow.BufferOwner{Block: b, Dir: p.resolver.Dir}).Stream(); err != nil {
			logger.Warn("Buffer has no payload.", "block", b.Name(), "error", err)
			return "skip: " + graph.Reason(err), nil
		}
		return "filled while rendering", nil
	case *graph.Texture:
		if data, ok := p.resolver.Texture(b); ok {
			return fmt.Sprintf("upload %dx%d image", data.Width, data.Height), nil
		}
		if len(b.Incoming(graph.PortImage)) > 0 {
			_, err := (dataflow.TextureOwner{Block: b, Dir: p.resolver.Dir}).Decode()
			if err != nil {
				logger.Warn("Texture has no payload.", "block", b.Name(), "error", err)
				return "skip: " + graph.Reason(err), nil
			}
		}
		return fmt.Sprintf("allocate %dx%d %s target", k.Width, k.Height, k.Format), nil
	case *graph.TextureView:
		return fmt.Sprintf("view %d texture(s)", len(b.Incoming(graph.PortTexture))), nil
	case *graph.VertexArray:
		return fmt.Sprintf("bind %d attributes", len(k.Attributes)), nil
	case *graph.Shader:
		stages := make([]string, len(k.Sources))
		for i, s := range k.Sources {
			stages[i] = s.Stage
		}
		return "use program " + strings.Join(stages, "+"), nil
	case *graph.TransformFeedback:
		return "capture feedback", nil
	case *graph.FrameBuffer:
		return fmt.Sprintf("bind target with %d attachment(s)", len(b.Incoming(graph.PortTexture))), nil
	case *graph.Display:
		return "present", nil
	}
	return "", graph.Errorf(graph.ErrInvalidArgument, "no plan for %s", b)
}
