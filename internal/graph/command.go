package graph

import (
	"fmt"
	"slices"
)

// assignPolicy lists the block types each command type may be assigned to.
var assignPolicy = map[CommandType][]BlockType{
	CommandClear:   {BlockFrameBuffer, BlockDisplay, BlockTexture},
	CommandDraw:    {BlockShader},
	CommandBarrier: {BlockShader, BlockBuffer, BlockTransformFeedback},
}

// RenderCommand is a typed leaf owned by the pipeline. It holds a weak
// reference to one block, cleared when that block is deleted.
type RenderCommand struct {
	health
	id       ItemID
	name     string
	typ      CommandType
	pipeline *Pipeline
	block    *Block
}

func (c *RenderCommand) ID() ItemID { return c.id }

func (c *RenderCommand) Name() string { return c.name }

func (c *RenderCommand) Type() CommandType { return c.typ }

// Block returns the assigned block, or nil.
func (c *RenderCommand) Block() *Block { return c.block }

// Pipeline returns the owning pipeline, nil once the command was deleted.
func (c *RenderCommand) Pipeline() *Pipeline { return c.pipeline }

// Assign points the command at b. A nil block clears the assignment.
func (c *RenderCommand) Assign(b *Block) error {
	if b == nil {
		c.block = nil
		return nil
	}
	if b.pipeline == nil || b.pipeline != c.pipeline {
		return Errorf(ErrInvalidArgument, "%s does not belong to the pipeline of command %q", b, c.name)
	}
	if !slices.Contains(assignPolicy[c.typ], b.Type()) {
		return Errorf(ErrPolicyRejected, "%s command %q cannot be assigned to %s", c.typ, c.name, b)
	}
	c.block = b
	return nil
}

func (c *RenderCommand) validate() (Status, string) {
	if c.block == nil {
		return StatusChilled, "no block assigned"
	}
	return StatusHealthy, ""
}

func (c *RenderCommand) String() string {
	return fmt.Sprintf("%s command %q", c.typ, c.name)
}
