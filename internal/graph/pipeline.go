package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Pipeline owns an ordered list of Blocks and an ordered list of
// RenderCommands, and targets exactly one GL version.
type Pipeline struct {
	health
	manager    *Manager
	id         ItemID
	name       string
	documentID uuid.UUID
	glVersion  int

	blocks   []*Block
	commands []*RenderCommand
}

func (p *Pipeline) ID() ItemID { return p.id }

// Name is the pipeline name as it appears in the project file.
func (p *Pipeline) Name() string { return p.name }

// DocumentID identifies the pipeline across reloads of the same project.
func (p *Pipeline) DocumentID() uuid.UUID { return p.documentID }

// SetDocumentID replaces the generated identity, e.g. with one read back
// from a saved project.
func (p *Pipeline) SetDocumentID(id uuid.UUID) { p.documentID = id }

// GLVersion is the targeted GL version as an integer (330 for 3.3).
func (p *Pipeline) GLVersion() int { return p.glVersion }

// SetGLVersion changes the target version. Ports are kept; ports that need a
// newer version are reported by the next validation.
func (p *Pipeline) SetGLVersion(v int) { p.glVersion = v }

// Manager returns the manager that created the pipeline.
func (p *Pipeline) Manager() *Manager { return p.manager }

// Blocks returns the blocks in insertion order.
func (p *Pipeline) Blocks() []*Block { return slices.Clone(p.blocks) }

// RenderCommands returns the render commands in insertion order.
func (p *Pipeline) RenderCommands() []*RenderCommand { return slices.Clone(p.commands) }

// AddBlock creates a block of the given kind, inserts it and builds its
// ports. An empty name is replaced by "<type>_<id>".
func (p *Pipeline) AddBlock(name string, kind Kind) (*Block, error) {
	if kind == nil || kind.Type() == BlockUndefined {
		return nil, Errorf(ErrInvalidArgument, "block %q has no kind", name)
	}
	if name != "" {
		if _, exists := p.BlockByName(name); exists {
			return nil, Errorf(ErrInvalidArgument, "block %q already exists in pipeline %q", name, p.name)
		}
	}

	b := &Block{name: name, kind: kind, pipeline: p}
	p.manager.assign(&b.id)
	if b.name == "" {
		b.name = fmt.Sprintf("%s_%d", kind.Type(), b.id)
	}
	p.blocks = append(p.blocks, b)
	b.CreatePorts()
	return b, nil
}

// DeleteBlock severs every connection touching the block, clears render
// commands assigned to it and removes it from the pipeline.
func (p *Pipeline) DeleteBlock(b *Block) error {
	idx := slices.Index(p.blocks, b)
	if b == nil || idx < 0 {
		return Errorf(ErrNotFound, "block is not part of pipeline %q", p.name)
	}

	b.disconnectAll()
	for _, cmd := range p.commands {
		if cmd.block == b {
			cmd.block = nil
		}
	}
	p.blocks = slices.Delete(p.blocks, idx, idx+1)
	b.pipeline = nil
	return nil
}

// DeletePort severs every connection touching the port and removes it from
// its block.
func (p *Pipeline) DeletePort(port *Port) error {
	if port == nil || port.block == nil || port.block.pipeline != p {
		return Errorf(ErrNotFound, "port is not part of pipeline %q", p.name)
	}
	b := port.block
	idx := slices.Index(b.ports, port)
	if idx < 0 {
		return Errorf(ErrNotFound, "port %q is not part of block %q", port.Name(), b.name)
	}
	port.disconnectAll()
	b.ports = slices.Delete(b.ports, idx, idx+1)
	port.block = nil
	return nil
}

// AddRenderCommand appends a render command with no assigned block.
func (p *Pipeline) AddRenderCommand(name string, typ CommandType) (*RenderCommand, error) {
	if _, ok := commandTypeNames[typ]; !ok {
		return nil, Errorf(ErrInvalidArgument, "render command %q has no type", name)
	}
	cmd := &RenderCommand{name: name, typ: typ, pipeline: p}
	p.manager.assign(&cmd.id)
	if cmd.name == "" {
		cmd.name = fmt.Sprintf("%s_%d", typ, cmd.id)
	}
	p.commands = append(p.commands, cmd)
	return cmd, nil
}

// DeleteRenderCommand removes the command from the pipeline.
func (p *Pipeline) DeleteRenderCommand(cmd *RenderCommand) error {
	idx := slices.Index(p.commands, cmd)
	if cmd == nil || idx < 0 {
		return Errorf(ErrNotFound, "render command is not part of pipeline %q", p.name)
	}
	p.commands = slices.Delete(p.commands, idx, idx+1)
	cmd.pipeline = nil
	cmd.block = nil
	return nil
}

// MoveRenderCommand moves the command to position idx, clamped to the list.
func (p *Pipeline) MoveRenderCommand(cmd *RenderCommand, idx int) error {
	from := slices.Index(p.commands, cmd)
	if cmd == nil || from < 0 {
		return Errorf(ErrNotFound, "render command is not part of pipeline %q", p.name)
	}
	p.commands = slices.Delete(p.commands, from, from+1)
	idx = max(0, min(idx, len(p.commands)))
	p.commands = slices.Insert(p.commands, idx, cmd)
	return nil
}

// FindItem looks up any item of this pipeline, including the pipeline itself.
func (p *Pipeline) FindItem(id ItemID) (Item, bool) {
	return SearchByID(p, id)
}

// FindBlocks returns every block of the given type in insertion order.
func (p *Pipeline) FindBlocks(t BlockType) []*Block {
	var out []*Block
	for _, b := range p.blocks {
		if b.Type() == t {
			out = append(out, b)
		}
	}
	return out
}

// BlockByName returns the block with the given name.
func (p *Pipeline) BlockByName(name string) (*Block, bool) {
	for _, b := range p.blocks {
		if b.name == name {
			return b, true
		}
	}
	return nil, false
}

// RenderCommandByName returns the render command with the given name.
func (p *Pipeline) RenderCommandByName(name string) (*RenderCommand, bool) {
	for _, c := range p.commands {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// TakeVisitor walks the pipeline depth first: the pipeline, then every block
// with its ports and their outgoing connections, then every render command.
// It returns false as soon as a callback asks to stop.
func (p *Pipeline) TakeVisitor(v Visitor) bool {
	if !v.PipelineVisited(p) {
		return false
	}
	for _, b := range p.blocks {
		if !v.BlockVisited(b) {
			return false
		}
		for _, port := range b.ports {
			if !v.PortVisited(port) {
				return false
			}
			for _, c := range port.outgoing {
				if !v.ConnectionVisited(c) {
					return false
				}
			}
		}
	}
	for _, cmd := range p.commands {
		if !v.RenderCommandVisited(cmd) {
			return false
		}
	}
	return true
}

func (p *Pipeline) teardown() {
	for len(p.commands) > 0 {
		_ = p.DeleteRenderCommand(p.commands[len(p.commands)-1])
	}
	for len(p.blocks) > 0 {
		_ = p.DeleteBlock(p.blocks[len(p.blocks)-1])
	}
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline %q (GL %d)", p.name, p.glVersion)
}
