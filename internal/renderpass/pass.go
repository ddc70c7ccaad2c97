package renderpass

import (
	"fmt"
	"slices"

	"github.com/vk/glgrid/internal/graph"
)

// edge is a connection expanded inside one pass.
type edge struct {
	from, to *graph.Block
}

// Pass is one acyclic execution unit.
type Pass struct {
	index    int
	seed     *graph.Block
	boundary *graph.Block
	members  map[*graph.Block]bool
	edges    []edge
	upstream []*Pass
}

func newPass(index int, seed, boundary *graph.Block) *Pass {
	return &Pass{
		index:    index,
		seed:     seed,
		boundary: boundary,
		members:  make(map[*graph.Block]bool),
	}
}

// Index is the creation order of the pass, 0 for the sink pass.
func (p *Pass) Index() int { return p.index }

// Seed is the block the pass was started from: the sink, or a shader
// drawing into a boundary.
func (p *Pass) Seed() *graph.Block { return p.seed }

// Boundary is the block whose crossing started the pass, nil for the sink
// pass.
func (p *Pass) Boundary() *graph.Block { return p.boundary }

// Contains reports whether b is involved in the pass.
func (p *Pass) Contains(b *graph.Block) bool { return p.members[b] }

// Blocks returns the involved blocks ordered by ID.
func (p *Pass) Blocks() []*graph.Block {
	out := make([]*graph.Block, 0, len(p.members))
	for b := range p.members {
		out = append(out, b)
	}
	slices.SortFunc(out, byID)
	return out
}

// RenderCommands returns, in pipeline order, the commands assigned to a
// block of this pass.
func (p *Pass) RenderCommands() []*graph.RenderCommand {
	if p.seed == nil || p.seed.Pipeline() == nil {
		return nil
	}
	var out []*graph.RenderCommand
	for _, cmd := range p.seed.Pipeline().RenderCommands() {
		if b := cmd.Block(); b != nil && p.members[b] {
			out = append(out, cmd)
		}
	}
	return out
}

// OutgoingConnections returns b's outgoing connections whose destination is
// also part of this pass.
func (p *Pass) OutgoingConnections(b *graph.Block) []*graph.Connection {
	if !p.members[b] {
		return nil
	}
	var out []*graph.Connection
	for _, c := range b.Outgoing() {
		if dst := c.Destination().Block(); dst != nil && p.members[dst] {
			out = append(out, c)
		}
	}
	return out
}

// Upstream returns the passes that must run before this one.
func (p *Pass) Upstream() []*Pass { return slices.Clone(p.upstream) }

func (p *Pass) String() string {
	return fmt.Sprintf("pass %d (seed %s, %d blocks)", p.index, p.seed, len(p.members))
}

func (p *Pass) add(b *graph.Block) bool {
	if p.members[b] {
		return false
	}
	p.members[b] = true
	return true
}

func (p *Pass) dependsOn(q *Pass) bool {
	return slices.Contains(p.upstream, q)
}

// reaches reports whether target is p itself or one of its transitive
// upstream passes.
func (p *Pass) reaches(target *Pass) bool {
	seen := make(map[*Pass]bool)
	var walk func(*Pass) bool
	walk = func(q *Pass) bool {
		if q == target {
			return true
		}
		if seen[q] {
			return false
		}
		seen[q] = true
		for _, up := range q.upstream {
			if walk(up) {
				return true
			}
		}
		return false
	}
	return walk(p)
}

// Result is the outcome of a successful partitioning run.
type Result struct {
	sink   *graph.Block
	passes []*Pass
}

// Sink is the block partitioning started from.
func (r *Result) Sink() *graph.Block { return r.sink }

// Passes returns the passes in creation order.
func (r *Result) Passes() []*Pass { return slices.Clone(r.passes) }

// PassesOf returns the passes a block is involved in.
func (r *Result) PassesOf(b *graph.Block) []*Pass {
	var out []*Pass
	for _, p := range r.passes {
		if p.members[b] {
			out = append(out, p)
		}
	}
	return out
}

// Order returns the passes so that every pass comes after all passes it
// depends on. The sink pass is last.
func (r *Result) Order() []*Pass {
	var out []*Pass
	done := make(map[*Pass]bool)
	var visit func(*Pass)
	visit = func(p *Pass) {
		if done[p] {
			return
		}
		done[p] = true
		for _, up := range p.upstream {
			visit(up)
		}
		out = append(out, p)
	}
	for _, p := range r.passes {
		visit(p)
	}
	return out
}

func byID(a, b *graph.Block) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}
