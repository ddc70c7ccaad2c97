package graph

import (
	"fmt"
)

// Kind provides the behavior and state of one block type.
type Kind interface {
	Type() BlockType
	// PortSpecs declares the ports the block exposes, in order.
	PortSpecs() []PortSpec
	// Validate computes the block's own status. Required ports are checked
	// by the caller.
	Validate(b *Block) (Status, string)
}

// AssetHolder is implemented by kinds that reference files on disk.
type AssetHolder interface {
	Assets() []string
}

// NewKind returns a zero-valued kind for the given block type.
func NewKind(t BlockType) (Kind, error) {
	switch t {
	case BlockDataSource:
		return &DataSource{ComponentType: ComponentFloat32, Components: 1}, nil
	case BlockUniform:
		return &Uniform{ComponentType: ComponentFloat32}, nil
	case BlockMixer:
		return &Mixer{}, nil
	case BlockBuffer:
		return &Buffer{}, nil
	case BlockVertexArray:
		return &VertexArray{}, nil
	case BlockImage:
		return &Image{}, nil
	case BlockTexture:
		return &Texture{}, nil
	case BlockTextureView:
		return &TextureView{}, nil
	case BlockShader:
		return &Shader{}, nil
	case BlockTransformFeedback:
		return &TransformFeedback{}, nil
	case BlockFrameBuffer:
		return &FrameBuffer{}, nil
	case BlockDisplay:
		return &Display{}, nil
	default:
		return nil, Errorf(ErrInvalidArgument, "no kind for block type %d", int(t))
	}
}

var dataProducers = []BlockType{BlockDataSource, BlockUniform, BlockMixer}

var textureProducers = []BlockType{BlockTexture, BlockTextureView, BlockFrameBuffer}

// requiredPorts reports the first required input port with no connection.
func requiredPorts(b *Block) (Status, string) {
	for _, p := range b.ports {
		if p.spec.Required && p.spec.Dir&In != 0 && len(p.incoming) == 0 {
			return StatusChilled, fmt.Sprintf("port %q is not connected", p.spec.Name)
		}
	}
	return StatusHealthy, ""
}

// Buffer uploads the data stream arriving at its input, or is written by a
// shader through shader storage.
type Buffer struct {
	// Usage is the GL usage hint, e.g. "static_draw".
	Usage string
}

func (*Buffer) Type() BlockType { return BlockBuffer }

func (*Buffer) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "data", Type: PortData, Dir: In,
			Accepts: []BlockType{BlockDataSource, BlockUniform, BlockMixer, BlockTransformFeedback}},
		{Name: "storage", Type: PortStorage, Dir: In, MinGL: 430, Accepts: []BlockType{BlockShader}},
		{Name: "buffer", Type: PortBuffer, Dir: Out},
	}
}

var bufferUsages = map[string]bool{
	"": true, "static_draw": true, "dynamic_draw": true, "stream_draw": true,
	"static_copy": true, "dynamic_copy": true, "stream_copy": true,
}

func (k *Buffer) Validate(b *Block) (Status, string) {
	if !bufferUsages[k.Usage] {
		return StatusError, fmt.Sprintf("unknown usage %q", k.Usage)
	}
	switch n := len(b.Incoming(PortData)) + len(b.Incoming(PortStorage)); n {
	case 0:
		return StatusChilled, "buffer has no data source"
	case 1:
		return StatusHealthy, ""
	default:
		return StatusError, "buffer has both a data and a storage input"
	}
}

// Attribute binds one buffer connection to a vertex attribute location.
type Attribute struct {
	Connection *Connection
	Name       string
	Location   int
}

// VertexArray describes how buffers feed shader vertex attributes.
type VertexArray struct {
	Attributes []*Attribute
}

func (*VertexArray) Type() BlockType { return BlockVertexArray }

func (*VertexArray) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "attributes", Type: PortBuffer, Dir: In, Multi: true, Accepts: []BlockType{BlockBuffer}},
		{Name: "vertices", Type: PortVertexArray, Dir: Out},
	}
}

// Attribute returns the layout entry for a connection.
func (k *VertexArray) Attribute(c *Connection) (*Attribute, bool) {
	for _, a := range k.Attributes {
		if a.Connection == c {
			return a, true
		}
	}
	return nil, false
}

func (k *VertexArray) Connected(self *Block, c *Connection) {
	if c.dst.block != self {
		return
	}
	if _, ok := k.Attribute(c); ok {
		return
	}
	loc := 0
	for _, a := range k.Attributes {
		loc = max(loc, a.Location+1)
	}
	k.Attributes = append(k.Attributes, &Attribute{Connection: c, Name: c.src.block.name, Location: loc})
}

func (k *VertexArray) Disconnected(self *Block, c *Connection) {
	out := k.Attributes[:0]
	for _, a := range k.Attributes {
		if a.Connection != c {
			out = append(out, a)
		}
	}
	k.Attributes = out
}

func (k *VertexArray) Validate(b *Block) (Status, string) {
	if len(k.Attributes) == 0 {
		return StatusChilled, "no vertex attributes"
	}
	seen := make(map[int]string, len(k.Attributes))
	for _, a := range k.Attributes {
		if a.Location < 0 {
			return StatusError, fmt.Sprintf("attribute %q has a negative location", a.Name)
		}
		if other, dup := seen[a.Location]; dup {
			return StatusError, fmt.Sprintf("attributes %q and %q share location %d", other, a.Name, a.Location)
		}
		seen[a.Location] = a.Name
	}
	return StatusHealthy, ""
}

// Image is a picture file used as texture data.
type Image struct {
	Path string
}

func (*Image) Type() BlockType { return BlockImage }

func (*Image) PortSpecs() []PortSpec {
	return []PortSpec{{Name: "image", Type: PortImage, Dir: Out}}
}

func (k *Image) Validate(*Block) (Status, string) {
	if k.Path == "" {
		return StatusChilled, "no image file"
	}
	return StatusHealthy, ""
}

func (k *Image) Assets() []string {
	if k.Path == "" {
		return nil
	}
	return []string{k.Path}
}

var textureFormats = map[string]bool{
	"": true, "rgba8": true, "rgb8": true, "r8": true, "rg8": true,
	"rgba16f": true, "rgba32f": true, "r32f": true, "depth24": true, "depth32f": true,
}

// Texture is either filled from an Image or used as a render target.
type Texture struct {
	Format        string
	Width, Height int
}

func (*Texture) Type() BlockType { return BlockTexture }

func (*Texture) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "image", Type: PortImage, Dir: In, Accepts: []BlockType{BlockImage}},
		{Name: "texture", Type: PortTexture, Dir: Out},
	}
}

func (k *Texture) Validate(b *Block) (Status, string) {
	if !textureFormats[k.Format] {
		return StatusError, fmt.Sprintf("unknown texture format %q", k.Format)
	}
	if len(b.Incoming(PortImage)) == 0 && (k.Width <= 0 || k.Height <= 0) {
		return StatusError, "a texture without image needs a size"
	}
	return StatusHealthy, ""
}

// TextureView reinterprets another texture, optionally with a new format.
type TextureView struct {
	Format string
}

func (*TextureView) Type() BlockType { return BlockTextureView }

func (*TextureView) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "texture", Type: PortTexture, Dir: In, Required: true, Accepts: textureProducers},
		{Name: "view", Type: PortTexture, Dir: Out},
	}
}

func (k *TextureView) Validate(*Block) (Status, string) {
	if !textureFormats[k.Format] {
		return StatusError, fmt.Sprintf("unknown texture format %q", k.Format)
	}
	return StatusHealthy, ""
}

// ShaderSource is one stage of a program.
type ShaderSource struct {
	Stage string
	Path  string
}

var shaderStages = map[string]bool{
	"vertex": true, "fragment": true, "geometry": true,
	"tess_control": true, "tess_evaluation": true, "compute": true,
}

// Shader is a program together with the resources bound to it.
type Shader struct {
	Sources []ShaderSource
}

func (*Shader) Type() BlockType { return BlockShader }

func (*Shader) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "vertices", Type: PortVertexArray, Dir: In, Accepts: []BlockType{BlockVertexArray}},
		{Name: "uniforms", Type: PortUniform, Dir: In, Multi: true, Accepts: []BlockType{BlockUniform}},
		{Name: "textures", Type: PortTexture, Dir: In, Multi: true, Accepts: textureProducers},
		{Name: "buffers", Type: PortBuffer, Dir: In, Multi: true, MinGL: 430, Accepts: []BlockType{BlockBuffer}},
		{Name: "render", Type: PortRender, Dir: Out},
		{Name: "feedback", Type: PortFeedback, Dir: Out, MinGL: 300},
		{Name: "storage", Type: PortStorage, Dir: Out, MinGL: 430},
	}
}

func (k *Shader) Validate(*Block) (Status, string) {
	if len(k.Sources) == 0 {
		return StatusError, "no shader sources"
	}
	seen := make(map[string]bool, len(k.Sources))
	for _, s := range k.Sources {
		if !shaderStages[s.Stage] {
			return StatusError, fmt.Sprintf("unknown shader stage %q", s.Stage)
		}
		if seen[s.Stage] {
			return StatusError, fmt.Sprintf("stage %q defined twice", s.Stage)
		}
		if s.Path == "" {
			return StatusError, fmt.Sprintf("stage %q has no source file", s.Stage)
		}
		seen[s.Stage] = true
	}
	return StatusHealthy, ""
}

func (k *Shader) Assets() []string {
	out := make([]string, 0, len(k.Sources))
	for _, s := range k.Sources {
		if s.Path != "" {
			out = append(out, s.Path)
		}
	}
	return out
}

// TransformFeedback captures shader output into a data stream. Its data is
// only known while rendering.
type TransformFeedback struct{}

func (*TransformFeedback) Type() BlockType { return BlockTransformFeedback }

func (*TransformFeedback) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "feedback", Type: PortFeedback, Dir: In, Required: true, MinGL: 300, Accepts: []BlockType{BlockShader}},
		{Name: "data", Type: PortData, Dir: Out},
	}
}

func (*TransformFeedback) Validate(*Block) (Status, string) { return StatusHealthy, "" }

// FrameBuffer is an off-screen render target.
type FrameBuffer struct{}

func (*FrameBuffer) Type() BlockType { return BlockFrameBuffer }

func (*FrameBuffer) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "render", Type: PortRender, Dir: In, Multi: true, Accepts: []BlockType{BlockShader}},
		{Name: "attachments", Type: PortTexture, Dir: In, Multi: true, Accepts: []BlockType{BlockTexture}},
		{Name: "color", Type: PortTexture, Dir: Out},
	}
}

func (*FrameBuffer) Validate(b *Block) (Status, string) {
	if len(b.Incoming(PortUndefined)) == 0 {
		return StatusChilled, "nothing renders into the frame buffer"
	}
	return StatusHealthy, ""
}

// Display is the on-screen sink of a pipeline.
type Display struct{}

func (*Display) Type() BlockType { return BlockDisplay }

func (*Display) PortSpecs() []PortSpec {
	return []PortSpec{
		{Name: "texture", Type: PortTexture, Dir: In, Accepts: textureProducers},
		{Name: "render", Type: PortRender, Dir: In, Multi: true, Accepts: []BlockType{BlockShader}},
	}
}

func (*Display) Validate(b *Block) (Status, string) {
	if len(b.Incoming(PortUndefined)) == 0 {
		return StatusChilled, "nothing to display"
	}
	return StatusHealthy, ""
}
