package builder_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/glgrid/internal/builder"
	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/hcl"
	"github.com/vk/glgrid/internal/testutil"
)

const projectHCL = `
pipeline "scene" {
  gl_version  = 430
  document_id = "0f8fad5b-d9cb-469f-a165-70867728950e"

  block "data_source" "positions" {
    components = 3
    values     = [0, 0, 0, 1, 0, 0, 0, 1, 0]
  }

  block "data_source" "colors" {
    component_type = "float32"
    components     = 4
    values         = [1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1]
  }

  block "mixer" "vertices" {
    as_struct = true
    entry {
      from = "positions.data"
    }
    entry {
      from      = "colors.data"
      name      = "color"
      convert   = "u8"
      normalize = true
      swizzle   = "rgb"
    }
  }

  block "buffer" "vbo" {
    usage = "static_draw"
  }

  block "vertex_array" "vao" {
    attribute {
      from     = "vbo.buffer"
      name     = "in_vertex"
      location = 3
    }
  }

  block "uniform" "tint" {
    value = [1, 0.5, 0.25]
  }

  block "shader" "flat" {
    stage "vertex" {
      path = "flat.vert"
    }
    stage "fragment" {
      path = "flat.frag"
    }
  }

  block "display" "screen" {}

  connect {
    from = "vertices.mixed"
    to   = "vbo.data"
  }
  connect {
    from = "vao.vertices"
    to   = "flat.vertices"
  }
  connect {
    from = "tint.uniform"
    to   = "flat.uniforms"
  }
  connect {
    from   = "flat.render"
    to     = "screen.render"
    notify = "source"
  }

  command "clear" "wipe" {
    block = "screen"
  }
  command "draw" "triangle" {
    block = "flat"
  }
}
`

func load(t *testing.T, files map[string]string) (*config.Model, config.Converter) {
	t.Helper()
	model, conv, err := hcl.NewLoader().Load(testutil.Context(t), testutil.WriteFiles(t, files))
	require.NoError(t, err)
	return model, conv
}

func block(t *testing.T, p *graph.Pipeline, name string) *graph.Block {
	t.Helper()
	b, ok := p.BlockByName(name)
	require.True(t, ok, "block %q is missing", name)
	return b
}

func TestBuild(t *testing.T) {
	ctx := testutil.Context(t)
	model, conv := load(t, map[string]string{"scene.hcl": projectHCL})

	m := graph.NewManager()
	res, err := builder.Build(ctx, m, model, conv)
	require.NoError(t, err)
	require.Empty(t, res.Messages)
	require.Len(t, res.Pipelines, 1)

	p := res.Pipelines[0]
	require.Equal(t, "scene", p.Name())
	require.Equal(t, 430, p.GLVersion())
	require.Equal(t, uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"), p.DocumentID())
	require.Len(t, p.Blocks(), 8)

	positions := block(t, p, "positions").Kind().(*graph.DataSource)
	assert.Equal(t, graph.ComponentFloat32, positions.ComponentType, "the default component type applies")
	assert.Equal(t, 3, positions.Components)
	assert.Len(t, positions.Values, 9)

	mixer := block(t, p, "vertices").Kind().(*graph.Mixer)
	require.True(t, mixer.Layout.AsStruct)
	require.Len(t, mixer.Layout.Entries, 2)
	assert.Equal(t, "positions", mixer.Layout.Entries[0].Name)
	assert.True(t, mixer.Layout.Entries[0].Conversion.IsIdentity())
	assert.Equal(t, "color", mixer.Layout.Entries[1].Name)
	assert.Equal(t, graph.Conversion{Target: graph.ComponentUint8, Normalize: true, Swizzle: "rgb"}, mixer.Layout.Entries[1].Conversion)

	assert.Equal(t, "static_draw", block(t, p, "vbo").Kind().(*graph.Buffer).Usage)

	vao := block(t, p, "vao").Kind().(*graph.VertexArray)
	require.Len(t, vao.Attributes, 1)
	assert.Equal(t, "in_vertex", vao.Attributes[0].Name)
	assert.Equal(t, 3, vao.Attributes[0].Location)

	comps, err := block(t, p, "tint").Kind().(*graph.Uniform).Components()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.5, 0.25}, comps)

	flat := block(t, p, "flat")
	assert.Len(t, flat.Kind().(*graph.Shader).Sources, 2)
	out := flat.Outgoing()
	require.Len(t, out, 1)
	assert.Equal(t, graph.NotifySource, out[0].Notify())

	cmds := p.RenderCommands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "wipe", cmds[0].Name())
	assert.Equal(t, block(t, p, "screen"), cmds[0].Block())
	assert.Equal(t, flat, cmds[1].Block())

	assert.Equal(t, graph.StatusHealthy, graph.Validate(p).Status)
}

func TestBuild_DropsInconsistentItems(t *testing.T) {
	ctx, logs := testutil.LoggedContext(t)
	model := &config.Model{Pipelines: []*config.Pipeline{{
		Name:       "broken",
		GLVersion:  330,
		DocumentID: "not-a-uuid",
		Blocks: []*config.Block{
			{Type: "data_source", Name: "ds", Settings: map[string]cty.Value{"values": cty.TupleVal([]cty.Value{cty.NumberIntVal(1)})}},
			{Type: "teapot", Name: "pot"},
			{Type: "buffer", Name: "ds"},
			{Type: "image", Name: "img", Settings: map[string]cty.Value{"colour": cty.StringVal("red")}},
			{Type: "buffer", Name: "buf", Entries: []*config.Entry{{From: "ds.data"}}},
			{Type: "vertex_array", Name: "vao"},
			{Type: "shader", Name: "sh"},
			{Type: "display", Name: "out"},
		},
		Connections: []*config.Connection{
			{From: "ds.data", To: "ghost.data"},
			{From: "ds.nope", To: "vao.attributes"},
			{From: "ds.data", To: "vao.attributes"},
			{From: "ds..data", To: "vao.attributes"},
			{From: "sh.render", To: "out.render", Notify: "sometimes"},
			{From: "sh.render", To: "out.render[1]"},
		},
		Commands: []*config.Command{
			{Type: "explode", Name: "boom"},
			{Type: "draw", Name: "misplaced", Block: "out"},
		},
	}}}

	m := graph.NewManager()
	res, err := builder.Build(ctx, m, model, hcl.NewConverter())
	require.NoError(t, err)
	require.Len(t, res.Pipelines, 1)
	p := res.Pipelines[0]

	want := []string{
		`document_id "not-a-uuid" is not a UUID`,
		`block "teapot" "pot": unknown block type "teapot"`,
		`block "buffer" "ds": block "ds" already exists`,
		`block "image" "img": unsupported settings: colour`,
		`block "buffer" "buf": only mixer blocks have entries`,
		`connect ds.data -> ghost.data: unknown block "ghost"`,
		`connect ds.nope -> vao.attributes: data_source "ds" has no port "nope"`,
		`connect ds.data -> vao.attributes: port types differ`,
		`connect ds..data -> vao.attributes:`,
		`connect sh.render -> out.render: unknown notify mode "sometimes"`,
		`connect sh.render -> out.render[1]: index on out.render[1] is ignored`,
		`command explode "boom": unknown command type "explode"`,
		`command draw "misplaced": draw command "misplaced" cannot be assigned to display "out"`,
	}
	require.Len(t, res.Messages, len(want), "messages: %q", res.Messages)
	for i, msg := range want {
		assert.Contains(t, res.Messages[i], "broken: "+msg)
	}

	names := make([]string, 0)
	for _, b := range p.Blocks() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"ds", "vao", "sh", "out"}, names)

	// The indexed connection is kept even though the index is dropped.
	sh := block(t, p, "sh")
	require.Len(t, sh.Outgoing(), 1)

	cmds := p.RenderCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "misplaced", cmds[0].Name())
	assert.Nil(t, cmds[0].Block())

	assert.Contains(t, logs.String(), "Dropping inconsistent item.")
}

func TestBuild_IndexedLayoutConnections(t *testing.T) {
	ctx := testutil.Context(t)
	model, conv := load(t, map[string]string{"p.hcl": `
pipeline "layout" {
  block "data_source" "a" {
    values = [1]
  }
  block "data_source" "b" {
    values = [2]
  }
  block "mixer" "mix" {}
  block "buffer" "buf" {}
  block "vertex_array" "vao" {}

  connect {
    from = "a.data"
    to   = "mix.data"
  }
  connect {
    from = "b.data"
    to   = "mix.data[0]"
  }
  connect {
    from = "mix.mixed"
    to   = "buf.data"
  }
  connect {
    from = "buf.buffer"
    to   = "vao.attributes[5]"
  }
}
`})

	res, err := builder.Build(ctx, graph.NewManager(), model, conv)
	require.NoError(t, err)
	require.Empty(t, res.Messages)
	p := res.Pipelines[0]

	mixer := block(t, p, "mix").Kind().(*graph.Mixer)
	require.Len(t, mixer.Layout.Entries, 2)
	assert.Equal(t, "b", mixer.Layout.Entries[0].Name)
	assert.Equal(t, "a", mixer.Layout.Entries[1].Name)

	vao := block(t, p, "vao").Kind().(*graph.VertexArray)
	require.Len(t, vao.Attributes, 1)
	assert.Equal(t, 5, vao.Attributes[0].Location)
}

func TestBuild_SeveralPipelines(t *testing.T) {
	ctx := testutil.Context(t)
	model, conv := load(t, map[string]string{
		"a.hcl": `pipeline "one" {
  block "display" "d" {}
}`,
		"b.hcl": `pipeline "two" {
  gl_version = 450
  block "display" "d" {}
}`,
	})

	m := graph.NewManager()
	res, err := builder.Build(ctx, m, model, conv)
	require.NoError(t, err)
	require.Len(t, res.Pipelines, 2)
	assert.Len(t, m.Pipelines(), 2)
	assert.Equal(t, 450, res.Pipelines[1].GLVersion())
	assert.NotEqual(t, res.Pipelines[0].DocumentID(), res.Pipelines[1].DocumentID())
}

func TestExport_RoundTrip(t *testing.T) {
	ctx := testutil.Context(t)
	model, conv := load(t, map[string]string{"scene.hcl": projectHCL})

	first := graph.NewManager()
	_, err := builder.Build(ctx, first, model, conv)
	require.NoError(t, err)
	exported, err := builder.Export(first, conv)
	require.NoError(t, err)

	p := exported.Pipelines[0]
	mixer := p.Blocks[2]
	require.Equal(t, "vertices", mixer.Name)
	assert.Equal(t, []*config.Entry{
		{From: "positions.data"},
		{From: "colors.data", Name: "color", Convert: "uint8", Normalize: true, Swizzle: "rgb"},
	}, mixer.Entries)
	require.Len(t, p.Connections, 4, "layout inputs are written as entries and attributes")
	assert.Equal(t, "source", p.Connections[3].Notify)

	// Save, load and build again: the second export must match the first.
	saved := testutil.WriteFiles(t, map[string]string{"saved.hcl": string(hcl.Encode(exported))})
	reloaded, conv2, err := hcl.NewLoader().Load(ctx, saved)
	require.NoError(t, err)

	second := graph.NewManager()
	res, err := builder.Build(ctx, second, reloaded, conv2)
	require.NoError(t, err)
	require.Empty(t, res.Messages)
	again, err := builder.Export(second, conv2)
	require.NoError(t, err)

	diff := cmp.Diff(exported, again,
		cmp.Comparer(func(a, b cty.Value) bool {
			if a.IsNull() || b.IsNull() {
				return a.IsNull() == b.IsNull()
			}
			return a.Equals(b).True()
		}),
		cmpopts.IgnoreFields(config.Pipeline{}, "Source"),
		cmpopts.EquateEmpty(),
	)
	require.Empty(t, diff, "export changed across a save (-first +second)")
}
