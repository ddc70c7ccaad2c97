package renderpass

import (
	"context"
	"slices"

	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/graph"
)

// IsBoundary reports whether b forces a pass switch: frame buffers,
// transform feedbacks, and buffers whose only input is a shader storage
// output.
func IsBoundary(b *graph.Block) bool {
	switch b.Type() {
	case graph.BlockFrameBuffer, graph.BlockTransformFeedback:
		return true
	case graph.BlockBuffer:
		in := b.Incoming(graph.PortUndefined)
		return len(in) == 1 && in[0].Source().Type() == graph.PortStorage
	default:
		return false
	}
}

// drawsInto reports whether a connection into a boundary carries GPU output.
// Those sources become the seeds of new passes.
func drawsInto(c *graph.Connection) bool {
	switch c.Source().Type() {
	case graph.PortRender, graph.PortFeedback, graph.PortStorage:
		return true
	default:
		return false
	}
}

type iterator struct {
	pass     *Pass
	frontier []*graph.Block
}

type partitioner struct {
	passes  []*Pass
	crossed map[*graph.Block][]*Pass
	iters   []*iterator
}

// Partition splits the graph upstream of sink into render passes. A cycle
// yields graph.ErrCycleDetected and no result.
func Partition(ctx context.Context, sink *graph.Block) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if sink == nil || sink.Pipeline() == nil {
		return nil, graph.Errorf(graph.ErrInvalidArgument, "sink block is not part of a pipeline")
	}

	pt := &partitioner{crossed: make(map[*graph.Block][]*Pass)}
	root := pt.newPass(sink, nil)
	root.add(sink)
	pt.iters = append(pt.iters, &iterator{pass: root, frontier: []*graph.Block{sink}})

	for len(pt.iters) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Iterators spawned during this round land in pt.iters and are
		// stepped in the next round, after the ones still active.
		current := pt.iters
		pt.iters = nil
		var active []*iterator
		for _, it := range current {
			if err := pt.step(it); err != nil {
				logger.Debug("Render pass partitioning aborted.", "sink", sink.Name(), "error", err)
				return nil, err
			}
			if len(it.frontier) > 0 {
				active = append(active, it)
			}
		}
		pt.iters = append(active, pt.iters...)
	}

	if err := pt.checkRoots(); err != nil {
		return nil, err
	}
	for _, p := range pt.passes {
		if err := checkPassEdges(p); err != nil {
			return nil, err
		}
	}

	logger.Debug("Render passes built.", "sink", sink.Name(), "passes", len(pt.passes))
	return &Result{sink: sink, passes: pt.passes}, nil
}

func (pt *partitioner) newPass(seed, boundary *graph.Block) *Pass {
	p := newPass(len(pt.passes), seed, boundary)
	pt.passes = append(pt.passes, p)
	return p
}

// sortedIncoming orders a block's incoming connections by source block ID,
// then connection ID.
func sortedIncoming(b *graph.Block) []*graph.Connection {
	in := b.Incoming(graph.PortUndefined)
	slices.SortFunc(in, func(x, y *graph.Connection) int {
		if c := byID(x.Source().Block(), y.Source().Block()); c != 0 {
			return c
		}
		switch {
		case x.ID() < y.ID():
			return -1
		case x.ID() > y.ID():
			return 1
		}
		return 0
	})
	return in
}

// step expands one frontier of an iterator.
func (pt *partitioner) step(it *iterator) error {
	frontier := it.frontier
	slices.SortFunc(frontier, byID)
	var next []*graph.Block
	for _, b := range frontier {
		for _, c := range sortedIncoming(b) {
			folded, err := pt.follow(it.pass, c)
			if err != nil {
				return err
			}
			next = append(next, folded...)
		}
	}
	it.frontier = next
	return nil
}

// follow handles one incoming connection of a block in pass p and returns
// the blocks to expand next in p.
func (pt *partitioner) follow(p *Pass, c *graph.Connection) ([]*graph.Block, error) {
	src, dst := c.Source().Block(), c.Destination().Block()
	p.edges = append(p.edges, edge{from: src, to: dst})
	if !IsBoundary(src) {
		if p.add(src) {
			return []*graph.Block{src}, nil
		}
		return nil, nil
	}
	p.add(src)
	return pt.cross(p, src)
}

// cross records that pass p reads boundary b. The first crossing starts one
// pass per shader drawing into b; later crossings reuse them. Inputs of b
// that are not drawn (frame buffer attachments) are expanded inside the new
// passes, or inside p when nothing draws into b.
func (pt *partitioner) cross(p *Pass, b *graph.Block) ([]*graph.Block, error) {
	if spawned, ok := pt.crossed[b]; ok {
		for _, q := range spawned {
			if err := pt.depend(p, q, b); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	var drawers []*graph.Block
	var resources []*graph.Connection
	for _, c := range sortedIncoming(b) {
		if drawsInto(c) {
			src := c.Source().Block()
			if !slices.Contains(drawers, src) {
				drawers = append(drawers, src)
			}
			continue
		}
		resources = append(resources, c)
	}

	if len(drawers) == 0 {
		pt.crossed[b] = nil
		var folded []*graph.Block
		for _, c := range resources {
			more, err := pt.follow(p, c)
			if err != nil {
				return nil, err
			}
			folded = append(folded, more...)
		}
		return folded, nil
	}

	spawned := make([]*Pass, 0, len(drawers))
	for _, seed := range drawers {
		if owner := pt.owner(seed); owner != nil {
			return nil, graph.Errorf(graph.ErrCycleDetected,
				"%s draws into %s but is already part of %s", seed, b, owner)
		}
		q := pt.newPass(seed, b)
		q.add(b)
		q.add(seed)
		q.edges = append(q.edges, edge{from: seed, to: b})
		it := &iterator{pass: q, frontier: []*graph.Block{seed}}
		for _, c := range resources {
			more, err := pt.follow(q, c)
			if err != nil {
				return nil, err
			}
			it.frontier = append(it.frontier, more...)
		}
		spawned = append(spawned, q)
		pt.iters = append(pt.iters, it)
	}
	pt.crossed[b] = spawned
	for _, q := range spawned {
		if err := pt.depend(p, q, b); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// depend makes p run after q. A dependency that closes a loop is a cycle.
func (pt *partitioner) depend(p, q *Pass, via *graph.Block) error {
	if p.dependsOn(q) {
		return nil
	}
	if q.reaches(p) {
		return graph.Errorf(graph.ErrCycleDetected, "%s is read by a pass it depends on", via)
	}
	p.upstream = append(p.upstream, q)
	return nil
}

// owner returns a pass that already involves b.
func (pt *partitioner) owner(b *graph.Block) *Pass {
	for _, p := range pt.passes {
		if p.members[b] {
			return p
		}
	}
	return nil
}

// checkRoots verifies that no seed of a spawned pass was reached by any
// other pass after that pass started.
func (pt *partitioner) checkRoots() error {
	for _, p := range pt.passes {
		if p.boundary == nil {
			continue
		}
		for _, other := range pt.passes {
			if other != p && other.members[p.seed] {
				return graph.Errorf(graph.ErrCycleDetected,
					"%s draws into %s but is also part of %s", p.seed, p.boundary, other)
			}
		}
	}
	return nil
}

// checkPassEdges runs a depth-first search over the edges expanded inside
// one pass. The boundary-based checks cannot see loops that never leave the
// pass, such as texture views reading each other.
func checkPassEdges(p *Pass) error {
	adj := make(map[*graph.Block][]*graph.Block)
	for _, e := range p.edges {
		adj[e.from] = append(adj[e.from], e.to)
	}

	permanent := make(map[*graph.Block]bool)
	temporary := make(map[*graph.Block]bool)

	var visit func(b *graph.Block) error
	visit = func(b *graph.Block) error {
		if permanent[b] {
			return nil
		}
		if temporary[b] {
			return graph.Errorf(graph.ErrCycleDetected, "%s is part of a loop inside %s", b, p)
		}
		temporary[b] = true
		for _, next := range adj[b] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, b)
		permanent[b] = true
		return nil
	}

	for _, b := range p.Blocks() {
		if err := visit(b); err != nil {
			return err
		}
	}
	return nil
}
