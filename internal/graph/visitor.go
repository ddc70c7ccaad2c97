package graph

import (
	"fmt"
	"slices"
)

// Visitor receives every item TakeVisitor walks. Returning false stops the
// whole traversal.
type Visitor interface {
	PipelineVisited(p *Pipeline) bool
	BlockVisited(b *Block) bool
	PortVisited(p *Port) bool
	ConnectionVisited(c *Connection) bool
	RenderCommandVisited(c *RenderCommand) bool
}

// BaseVisitor continues on every item. Embed it and override what you need.
type BaseVisitor struct{}

func (BaseVisitor) PipelineVisited(*Pipeline) bool           { return true }
func (BaseVisitor) BlockVisited(*Block) bool                 { return true }
func (BaseVisitor) PortVisited(*Port) bool                   { return true }
func (BaseVisitor) ConnectionVisited(*Connection) bool       { return true }
func (BaseVisitor) RenderCommandVisited(*RenderCommand) bool { return true }

// Issue is a non-healthy item found by Validate.
type Issue struct {
	Item    Item
	Status  Status
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Item, i.Status, i.Message)
}

// Report is the outcome of Validate.
type Report struct {
	Status Status
	Issues []Issue
}

type validateVisitor struct {
	glVersion int
	report    Report
}

func (v *validateVisitor) record(item Item, s Status, msg string) {
	v.report.Status = Worse(v.report.Status, s)
	if s != StatusHealthy {
		v.report.Issues = append(v.report.Issues, Issue{Item: item, Status: s, Message: msg})
	}
}

func (v *validateVisitor) PipelineVisited(p *Pipeline) bool {
	v.glVersion = p.glVersion
	return true
}

func (v *validateVisitor) BlockVisited(b *Block) bool {
	s, msg := b.kind.Validate(b)
	if s == StatusHealthy {
		s, msg = requiredPorts(b)
	}
	b.SetStatus(s, msg)
	v.record(b, s, msg)
	return true
}

func (v *validateVisitor) PortVisited(p *Port) bool {
	s, msg := StatusHealthy, ""
	if p.spec.MinGL > v.glVersion && p.IsConnected() {
		s, msg = StatusError, fmt.Sprintf("needs GL %d, pipeline targets %d", p.spec.MinGL, v.glVersion)
	}
	p.SetStatus(s, msg)
	v.record(p, s, msg)
	return true
}

func (v *validateVisitor) ConnectionVisited(c *Connection) bool {
	s, msg := StatusHealthy, ""
	for _, end := range []*Port{c.src, c.dst} {
		if end.spec.MinGL > v.glVersion {
			s, msg = StatusError, fmt.Sprintf("port %s needs GL %d", end, end.spec.MinGL)
		}
	}
	c.SetStatus(s, msg)
	v.record(c, s, msg)
	return true
}

func (v *validateVisitor) RenderCommandVisited(c *RenderCommand) bool {
	s, msg := c.validate()
	c.SetStatus(s, msg)
	v.record(c, s, msg)
	return true
}

// Validate recomputes the status of every item and stores the worst one on
// the pipeline. It never stops early.
func Validate(p *Pipeline) Report {
	v := &validateVisitor{}
	p.TakeVisitor(v)
	msg := ""
	if n := len(v.report.Issues); n > 0 {
		msg = fmt.Sprintf("%d item(s) need attention", n)
	}
	p.SetStatus(v.report.Status, msg)
	return v.report
}

type resetVisitor struct{}

func (resetVisitor) PipelineVisited(p *Pipeline) bool { p.SetStatus(StatusHealthy, ""); return true }
func (resetVisitor) BlockVisited(b *Block) bool       { b.SetStatus(StatusHealthy, ""); return true }
func (resetVisitor) PortVisited(p *Port) bool         { p.SetStatus(StatusHealthy, ""); return true }
func (resetVisitor) ConnectionVisited(c *Connection) bool {
	c.SetStatus(StatusHealthy, "")
	return true
}
func (resetVisitor) RenderCommandVisited(c *RenderCommand) bool {
	c.SetStatus(StatusHealthy, "")
	return true
}

// Reset forces every status back to healthy.
func Reset(p *Pipeline) {
	p.TakeVisitor(resetVisitor{})
}

type searchVisitor struct {
	id    ItemID
	found Item
}

func (v *searchVisitor) match(item Item) bool {
	if item.ID() == v.id {
		v.found = item
		return false
	}
	return true
}

func (v *searchVisitor) PipelineVisited(p *Pipeline) bool           { return v.match(p) }
func (v *searchVisitor) BlockVisited(b *Block) bool                 { return v.match(b) }
func (v *searchVisitor) PortVisited(p *Port) bool                   { return v.match(p) }
func (v *searchVisitor) ConnectionVisited(c *Connection) bool       { return v.match(c) }
func (v *searchVisitor) RenderCommandVisited(c *RenderCommand) bool { return v.match(c) }

// SearchByID stops at the first item carrying id.
func SearchByID(p *Pipeline, id ItemID) (Item, bool) {
	if id == 0 {
		return nil, false
	}
	v := &searchVisitor{id: id}
	p.TakeVisitor(v)
	return v.found, v.found != nil
}

type assetVisitor struct {
	BaseVisitor
	seen  map[string]bool
	paths []string
}

func (v *assetVisitor) BlockVisited(b *Block) bool {
	h, ok := b.kind.(AssetHolder)
	if !ok {
		return true
	}
	for _, path := range h.Assets() {
		if !v.seen[path] {
			v.seen[path] = true
			v.paths = append(v.paths, path)
		}
	}
	return true
}

// CollectAssets returns the sorted, de-duplicated file paths referenced by
// the pipeline's blocks.
func CollectAssets(p *Pipeline) []string {
	v := &assetVisitor{seen: make(map[string]bool)}
	p.TakeVisitor(v)
	slices.Sort(v.paths)
	return v.paths
}
