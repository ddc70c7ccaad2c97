package publish_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/publish"
	"github.com/vk/glgrid/internal/renderpass"
	"github.com/vk/glgrid/internal/testutil"
)

func TestNewReport(t *testing.T) {
	f := testutil.NewFixture(t, 430)
	s1 := f.Shader("S1")
	fb := f.Add("FB", &graph.FrameBuffer{})
	tex := f.Add("T", &graph.Texture{Format: "rgba8", Width: 8, Height: 8})
	s2 := f.Shader("S2")
	dsp := f.Add("D", &graph.Display{})
	f.Connect(s1, "render", fb, "render")
	f.Connect(tex, "texture", fb, "attachments")
	f.Connect(fb, "color", s2, "textures")
	f.Connect(s2, "render", dsp, "render")
	f.Command("draw", graph.CommandDraw, s2)

	res, err := renderpass.Partition(testutil.Context(t), dsp)
	require.NoError(t, err)

	r := publish.NewReport(f.P, graph.Validate(f.P), []*renderpass.Result{res})
	require.Equal(t, "main", r.Pipeline)
	require.Equal(t, 430, r.GLVersion)
	require.Equal(t, f.P.DocumentID().String(), r.DocumentID)
	require.Len(t, r.Passes, 2)

	first, last := r.Passes[0], r.Passes[1]
	assert.Equal(t, "FB", first.Boundary)
	assert.Equal(t, []string{"S1", "FB", "T"}, first.Blocks)
	assert.Equal(t, "D", last.Sink)
	assert.Equal(t, "D", last.Seed)
	assert.Equal(t, []int{first.Index}, last.Upstream)
	assert.Equal(t, []string{"draw draw"}, last.Commands)

	payload, err := r.Payload()
	require.NoError(t, err)
	assert.Equal(t, "main", payload["pipeline"])
	assert.Len(t, payload["passes"], 2)
	assert.NotContains(t, payload, "error")
}

func TestNewReport_NoPasses(t *testing.T) {
	f := testutil.NewFixture(t, 330)
	r := publish.NewReport(f.P, graph.Validate(f.P), nil)

	payload, err := r.Payload()
	require.NoError(t, err)
	assert.Equal(t, []any{}, payload["passes"], "passes are always present")
}

func TestDial_Errors(t *testing.T) {
	ctx := testutil.Context(t)

	t.Run("relative URL", func(t *testing.T) {
		_, err := publish.Dial(ctx, publish.Options{URL: "/socket.io/"})
		require.ErrorContains(t, err, "must be absolute")
	})

	t.Run("unreachable server", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := publish.Dial(ctx, publish.Options{
			URL:            "http://127.0.0.1:1/socket.io/",
			ConnectTimeout: time.Second,
		})
		require.Error(t, err)
	})
}
