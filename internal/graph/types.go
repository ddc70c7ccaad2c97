package graph

import "fmt"

// ItemID identifies any graph item. Zero means "not inserted yet".
type ItemID int64

// Item is anything that lives in the ID space: pipelines, blocks, ports,
// connections and render commands.
type Item interface {
	ID() ItemID
}

// Status is the health of an item. The order matters: a larger value is worse.
type Status int

const (
	StatusHealthy Status = iota
	StatusChilled
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusChilled:
		return "chilled"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Worse returns the more severe of two statuses.
func Worse(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// health is embedded in every item that carries a status and message.
type health struct {
	status  Status
	message string
}

// Status returns the status computed by the last validation.
func (h *health) Status() Status { return h.status }

// Message returns the message attached to the current status.
func (h *health) Message() string { return h.message }

// SetStatus replaces the status and message.
func (h *health) SetStatus(s Status, msg string) {
	h.status = s
	h.message = msg
}

// BlockType tags a block with its kind. It never changes after construction.
type BlockType int

const (
	BlockUndefined BlockType = iota
	BlockDataSource
	BlockUniform
	BlockMixer
	BlockBuffer
	BlockVertexArray
	BlockImage
	BlockTexture
	BlockTextureView
	BlockShader
	BlockTransformFeedback
	BlockFrameBuffer
	BlockDisplay
)

var blockTypeNames = map[BlockType]string{
	BlockDataSource:        "data_source",
	BlockUniform:           "uniform",
	BlockMixer:             "mixer",
	BlockBuffer:            "buffer",
	BlockVertexArray:       "vertex_array",
	BlockImage:             "image",
	BlockTexture:           "texture",
	BlockTextureView:       "texture_view",
	BlockShader:            "shader",
	BlockTransformFeedback: "transform_feedback",
	BlockFrameBuffer:       "frame_buffer",
	BlockDisplay:           "display",
}

func (t BlockType) String() string {
	if name, ok := blockTypeNames[t]; ok {
		return name
	}
	return "undefined"
}

// ParseBlockType maps the configuration name of a block type back to it.
func ParseBlockType(name string) (BlockType, error) {
	for t, n := range blockTypeNames {
		if n == name {
			return t, nil
		}
	}
	return BlockUndefined, Errorf(ErrInvalidArgument, "unknown block type %q", name)
}

// PortType is the kind of data flowing through a port. Both ends of a
// connection must agree on it.
type PortType int

const (
	PortUndefined PortType = iota
	PortData
	PortUniform
	PortBuffer
	PortStorage
	PortVertexArray
	PortImage
	PortTexture
	PortRender
	PortFeedback
)

var portTypeNames = map[PortType]string{
	PortData:        "data",
	PortUniform:     "uniform",
	PortBuffer:      "buffer",
	PortStorage:     "storage",
	PortVertexArray: "vertex_array",
	PortImage:       "image",
	PortTexture:     "texture",
	PortRender:      "render",
	PortFeedback:    "feedback",
}

func (t PortType) String() string {
	if name, ok := portTypeNames[t]; ok {
		return name
	}
	return "undefined"
}

// PortDirection is a bitmask. Dry (no bits) is not a valid direction for a
// constructed port.
type PortDirection uint8

const (
	Dry   PortDirection = 0
	In    PortDirection = 1
	Out   PortDirection = 2
	InOut               = In | Out
)

func (d PortDirection) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case InOut:
		return "inout"
	default:
		return "dry"
	}
}

// CommandType is the kind of a RenderCommand.
type CommandType int

const (
	CommandUndefined CommandType = iota
	CommandClear
	CommandDraw
	CommandBarrier
)

var commandTypeNames = map[CommandType]string{
	CommandClear:   "clear",
	CommandDraw:    "draw",
	CommandBarrier: "barrier",
}

func (t CommandType) String() string {
	if name, ok := commandTypeNames[t]; ok {
		return name
	}
	return "undefined"
}

// ParseCommandType maps the configuration name of a command type back to it.
func ParseCommandType(name string) (CommandType, error) {
	for t, n := range commandTypeNames {
		if n == name {
			return t, nil
		}
	}
	return CommandUndefined, Errorf(ErrInvalidArgument, "unknown command type %q", name)
}
