package evaluate

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/glgrid/internal/cache"
	"github.com/vk/glgrid/internal/dataflow"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/renderpass"
	"github.com/vk/glgrid/internal/testutil"
)

// recordingModule registers an evaluator for every type that only records
// the visited block.
type recordingModule struct {
	rec  *testutil.Recorder
	fail string
}

func (m *recordingModule) Register(r *Registry) {
	for _, t := range TypeOrder {
		r.Register(t, EvaluatorFunc(func(_ context.Context, _ *renderpass.Pass, b *graph.Block) error {
			return m.rec.Record(b.Name(), func() error {
				if b.Name() == m.fail {
					return errBoom
				}
				return nil
			})
		}))
	}
}

var errBoom = errors.New("boom")

// offscreen renders S1 into FB, which S2 samples while drawing to D.
func offscreen(t *testing.T) (*testutil.Fixture, *graph.Block) {
	f := testutil.NewFixture(t, 430)
	s1 := f.Shader("S1")
	fb := f.Add("FB", &graph.FrameBuffer{})
	tex := f.Add("T", &graph.Texture{Format: "rgba8", Width: 32, Height: 16})
	s2 := f.Shader("S2")
	dsp := f.Add("D", &graph.Display{})
	f.Connect(s1, "render", fb, "render")
	f.Connect(tex, "texture", fb, "attachments")
	f.Connect(fb, "color", s2, "textures")
	f.Connect(s2, "render", dsp, "render")
	return f, dsp
}

// triangle is DS -> Buffer -> VAO -> Shader -> Display.
func triangle(t *testing.T) (*testutil.Fixture, *graph.Block) {
	f := testutil.NewFixture(t, 430)
	ds := f.Add("DS", &graph.DataSource{
		ComponentType: graph.ComponentFloat32,
		Components:    3,
		Values:        []float64{0, 0, 0, 1, 0, 0},
	})
	buf := f.Add("B", &graph.Buffer{})
	vao := f.Add("V", &graph.VertexArray{})
	s := f.Shader("S")
	dsp := f.Add("D", &graph.Display{})
	f.Connect(ds, "data", buf, "data")
	f.Connect(buf, "buffer", vao, "attributes")
	f.Connect(vao, "vertices", s, "vertices")
	f.Connect(s, "render", dsp, "render")
	f.Command("draw_s", graph.CommandDraw, s)
	return f, dsp
}

func partition(t *testing.T, ctx context.Context, sink *graph.Block) *renderpass.Result {
	t.Helper()
	res, err := renderpass.Partition(ctx, sink)
	require.NoError(t, err)
	return res
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := EvaluatorFunc(func(context.Context, *renderpass.Pass, *graph.Block) error { return nil })

	r.Register(graph.BlockDisplay, noop)
	r.Register(graph.BlockDataSource, noop)
	assert.Equal(t, []graph.BlockType{graph.BlockDataSource, graph.BlockDisplay}, r.Types())

	_, ok := r.Evaluator(graph.BlockShader)
	assert.False(t, ok)
	assert.Panics(t, func() { r.Register(graph.BlockDisplay, noop) })
}

func TestRun_PassAndTypeOrder(t *testing.T) {
	ctx := testutil.Context(t)
	_, sink := offscreen(t)
	rec := &testutil.Recorder{}

	err := Run(ctx, NewRegistry(&recordingModule{rec: rec}), partition(t, ctx, sink))
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "S1", "FB", "S2", "FB", "D"}, rec.Names())
}

func TestRun_StopsOnError(t *testing.T) {
	ctx := testutil.Context(t)
	_, sink := offscreen(t)
	rec := &testutil.Recorder{}

	err := Run(ctx, NewRegistry(&recordingModule{rec: rec, fail: "S1"}), partition(t, ctx, sink))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), `shader "S1"`)
	assert.Equal(t, []string{"T", "S1"}, rec.Names())
}

func TestRun_SkipsUnregisteredTypes(t *testing.T) {
	ctx := testutil.Context(t)
	_, sink := triangle(t)
	rec := &testutil.Recorder{}
	r := NewRegistry()
	r.Register(graph.BlockShader, EvaluatorFunc(func(_ context.Context, _ *renderpass.Pass, b *graph.Block) error {
		return rec.Record(b.Name(), func() error { return nil })
	}))

	require.NoError(t, Run(ctx, r, partition(t, ctx, sink)))
	assert.Equal(t, []string{"S"}, rec.Names())
}

func TestPlanner(t *testing.T) {
	ctx := testutil.Context(t)
	_, sink := triangle(t)
	pool := cache.NewPool()
	planner := NewPlanner(pool, t.TempDir())

	require.NoError(t, Run(ctx, NewRegistry(planner), partition(t, ctx, sink)))

	var out bytes.Buffer
	_, err := planner.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, `pass 0: begin, seeded by display "D", commands: draw draw_s
pass 0: data_source "DS": 6 float32 values
pass 0: buffer "B": upload 24 bytes
pass 0: vertex_array "V": bind 1 attributes
pass 0: shader "S": use program vertex+fragment
pass 0: display "D": present
`, out.String())
	assert.Equal(t, 1, pool.Len())
	assert.Equal(t, 24, pool.Size())

	planner.Reset()
	assert.Empty(t, planner.Steps())
}

func TestPlanner_SharesPayloadsAcrossPipelines(t *testing.T) {
	ctx := testutil.Context(t)
	pool := cache.NewPool()
	planner := NewPlanner(pool, t.TempDir())

	fa, sinkA := triangle(t)
	fb, sinkB := triangle(t)
	require.NoError(t, Run(ctx, NewRegistry(planner), partition(t, ctx, sinkA)))
	require.NoError(t, Run(ctx, NewRegistry(NewPlanner(pool, planner.resolver.Dir)), partition(t, ctx, sinkB)))

	require.Equal(t, 1, pool.Len())
	bufA, _ := fa.P.BlockByName("B")
	obj, ok := pool.Owner(bufferOwner(planner, bufA))
	require.True(t, ok)
	assert.Equal(t, 2, obj.Owners())

	planner.Release(fa.P)
	assert.Equal(t, 1, pool.Len())
	planner.Release(fb.P)
	assert.Equal(t, 0, pool.Len())
}

func TestPlanner_RenderTargetsAndRuntimeBuffers(t *testing.T) {
	ctx := testutil.Context(t)
	f, sink := offscreen(t)
	capture := f.Shader("Capture")
	tf := f.Add("TF", &graph.TransformFeedback{})
	fed := f.Add("Fed", &graph.Buffer{})
	vao := f.Add("V", &graph.VertexArray{})
	s2, _ := f.P.BlockByName("S2")
	f.Connect(capture, "feedback", tf, "feedback")
	f.Connect(tf, "data", fed, "data")
	f.Connect(fed, "buffer", vao, "attributes")
	f.Connect(vao, "vertices", s2, "vertices")

	pool := cache.NewPool()
	planner := NewPlanner(pool, t.TempDir())
	require.NoError(t, Run(ctx, NewRegistry(planner), partition(t, ctx, sink)))

	details := map[string]string{}
	for _, s := range planner.Steps() {
		if s.Block != "" {
			details[s.Block] = s.Detail
		}
	}
	assert.Equal(t, "allocate 32x16 rgba8 target", details["T"])
	assert.Equal(t, "filled while rendering", details["Fed"])
	assert.Equal(t, "capture feedback", details["TF"])
	assert.Equal(t, "bind target with 1 attachment(s)", details["FB"])
	assert.Equal(t, 0, pool.Len())
}

func bufferOwner(p *Planner, b *graph.Block) cache.Cacheable {
	return dataflow.BufferOwner{Block: b, Dir: p.resolver.Dir}
}
