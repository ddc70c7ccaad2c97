package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/glgrid/internal/graph"
)

// Fixture builds pipelines in tests, failing the test on the first error.
type Fixture struct {
	T *testing.T
	P *graph.Pipeline
}

// NewFixture creates a pipeline named "main" in a fresh manager.
func NewFixture(t *testing.T, glVersion int) *Fixture {
	return &Fixture{T: t, P: graph.NewManager().NewPipeline("main", glVersion)}
}

// Add creates a block.
func (f *Fixture) Add(name string, kind graph.Kind) *graph.Block {
	f.T.Helper()
	b, err := f.P.AddBlock(name, kind)
	require.NoError(f.T, err)
	return b
}

// Port looks a port up by name.
func (f *Fixture) Port(b *graph.Block, name string) *graph.Port {
	f.T.Helper()
	p, ok := b.Port(name)
	require.True(f.T, ok, "block %s has no port %q", b, name)
	return p
}

// Connect links src.srcPort to dst.dstPort.
func (f *Fixture) Connect(src *graph.Block, srcPort string, dst *graph.Block, dstPort string) *graph.Connection {
	f.T.Helper()
	c, err := f.P.Connect(f.Port(src, srcPort), f.Port(dst, dstPort))
	require.NoError(f.T, err)
	return c
}

// Shader adds a shader with a vertex and a fragment stage.
func (f *Fixture) Shader(name string) *graph.Block {
	f.T.Helper()
	return f.Add(name, &graph.Shader{Sources: []graph.ShaderSource{
		{Stage: "vertex", Path: name + ".vert"},
		{Stage: "fragment", Path: name + ".frag"},
	}})
}

// Command adds a render command assigned to b.
func (f *Fixture) Command(name string, typ graph.CommandType, b *graph.Block) *graph.RenderCommand {
	f.T.Helper()
	cmd, err := f.P.AddRenderCommand(name, typ)
	require.NoError(f.T, err)
	require.NoError(f.T, cmd.Assign(b))
	return cmd
}
