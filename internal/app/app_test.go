package app_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/glgrid/internal/app"
	"github.com/vk/glgrid/internal/hcl"
	"github.com/vk/glgrid/internal/publish"
	"github.com/vk/glgrid/internal/testutil"
)

const sceneHCL = `
pipeline "scene" {
  gl_version = 430

  block "data_source" "positions" {
    components = 3
    path       = "positions.bin"
  }
  block "buffer" "vbo" {}
  block "vertex_array" "vao" {
    attribute {
      from = "vbo.buffer"
    }
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
    from = "positions.data"
    to   = "vbo.data"
  }
  connect {
    from = "vao.vertices"
    to   = "flat.vertices"
  }
  connect {
    from = "flat.render"
    to   = "screen.render"
  }

  command "draw" "triangle" {
    block = "flat"
  }
}
`

const feedbackHCL = `
pipeline "feedback" {
  block "shader" "blur" {
    stage "vertex" {
      path = "blur.vert"
    }
    stage "fragment" {
      path = "blur.frag"
    }
  }
  block "frame_buffer" "target" {}
  block "display" "screen" {}

  connect {
    from = "blur.render"
    to   = "target.render"
  }
  connect {
    from = "target.color"
    to   = "blur.textures"
  }
  connect {
    from = "target.color"
    to   = "screen.texture"
  }
}
`

// recordingPublisher keeps every published report.
type recordingPublisher struct {
	mu      sync.Mutex
	reports []*publish.Report
}

func (p *recordingPublisher) Publish(_ context.Context, r *publish.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Reports() []*publish.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*publish.Report(nil), p.reports...)
}

// floats encodes values as raw little-endian float32.
func floats(values ...float32) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return string(buf)
}

func project(t *testing.T) string {
	return testutil.WriteFiles(t, map[string]string{
		"scene.hcl":     sceneHCL,
		"feedback.hcl":  feedbackHCL,
		"positions.bin": floats(0, 0, 0, 1, 0, 0, 0, 1, 0),
	})
}

func TestRun_EvaluatesProject(t *testing.T) {
	root := project(t)
	pub := &recordingPublisher{}
	cfg, err := app.NewConfig(app.Config{ProjectPath: root})
	require.NoError(t, err)
	testApp, out := app.SetupAppTest(t, cfg, app.WithPublisher(pub))

	require.NoError(t, testApp.Run(context.Background()))

	reports := testApp.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, reports, pub.Reports())

	// Files are loaded in lexical order.
	feedback, scene := reports[0], reports[1]

	require.Equal(t, "scene", scene.Pipeline)
	assert.Equal(t, "healthy", scene.Status)
	assert.Empty(t, scene.Error)
	require.Len(t, scene.Passes, 1)
	assert.Equal(t, []string{"positions", "vbo", "vao", "flat", "screen"}, scene.Passes[0].Blocks)
	assert.Contains(t, scene.Plan, `pass 0: buffer "vbo": upload 36 bytes`)
	assert.Contains(t, scene.Plan, `pass 0: display "screen": present`)

	require.Equal(t, "feedback", feedback.Pipeline)
	assert.Contains(t, feedback.Error, "cycle detected")
	assert.Empty(t, feedback.Passes)

	log := out.String()
	assert.Contains(t, log, `pipeline "scene" (healthy)`)
	assert.Contains(t, log, "error: screen: ")
	assert.Contains(t, log, "Project evaluated.")

	assert.Equal(t, 1, testApp.Pool().Len(), "the vertex buffer payload is cached")
}

func TestRun_SelectsPipelineAndSink(t *testing.T) {
	root := project(t)

	t.Run("pipeline filter", func(t *testing.T) {
		cfg, err := app.NewConfig(app.Config{ProjectPath: root, Pipeline: "scene"})
		require.NoError(t, err)
		testApp, _ := app.SetupAppTest(t, cfg)
		require.NoError(t, testApp.Run(context.Background()))
		require.Len(t, testApp.Reports(), 1)
		assert.Len(t, testApp.Manager().Pipelines(), 1)
	})

	t.Run("unknown pipeline", func(t *testing.T) {
		cfg, err := app.NewConfig(app.Config{ProjectPath: root, Pipeline: "nope"})
		require.NoError(t, err)
		testApp, _ := app.SetupAppTest(t, cfg)
		require.ErrorContains(t, testApp.Run(context.Background()), `pipeline "nope" not found`)
	})

	t.Run("sink override", func(t *testing.T) {
		cfg, err := app.NewConfig(app.Config{ProjectPath: filepath.Join(root, "scene.hcl"), Sink: "flat"})
		require.NoError(t, err)
		testApp, _ := app.SetupAppTest(t, cfg)
		require.NoError(t, testApp.Run(context.Background()))

		reports := testApp.Reports()
		require.Len(t, reports, 1)
		require.Len(t, reports[0].Passes, 1)
		assert.Equal(t, "flat", reports[0].Passes[0].Sink)
		assert.NotContains(t, reports[0].Passes[0].Blocks, "screen")
	})

	t.Run("missing sink", func(t *testing.T) {
		cfg, err := app.NewConfig(app.Config{ProjectPath: filepath.Join(root, "scene.hcl"), Sink: "ghost"})
		require.NoError(t, err)
		testApp, _ := app.SetupAppTest(t, cfg)
		require.NoError(t, testApp.Run(context.Background()))
		assert.Equal(t, `sink "ghost" does not exist`, testApp.Reports()[0].Error)
	})
}

func TestRun_InvalidProject(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{"main.hcl": `pipeline "p" {`})
	cfg, err := app.NewConfig(app.Config{ProjectPath: root})
	require.NoError(t, err)
	testApp, _ := app.SetupAppTest(t, cfg)

	err = testApp.Run(context.Background())
	require.ErrorContains(t, err, "failed to load project")
	require.ErrorContains(t, err, "failed to parse")
}

func TestRun_ReportsInconsistencies(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{"main.hcl": `
pipeline "p" {
  block "display" "screen" {}
  connect {
    from = "ghost.render"
    to   = "screen.render"
  }
}
`})
	cfg, err := app.NewConfig(app.Config{ProjectPath: root})
	require.NoError(t, err)
	testApp, out := app.SetupAppTest(t, cfg)

	require.NoError(t, testApp.Run(context.Background()))
	reports := testApp.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, []string{`connect ghost.render -> screen.render: unknown block "ghost"`}, reports[0].Messages)
	assert.Contains(t, out.String(), "Project inconsistency.")
}

func TestRun_InvalidComponentsAreSkipped(t *testing.T) {
	for _, components := range []int{0, -1} {
		t.Run(fmt.Sprintf("components=%d", components), func(t *testing.T) {
			root := testutil.WriteFiles(t, map[string]string{"main.hcl": fmt.Sprintf(`
pipeline "p" {
  block "data_source" "positions" {
    components = %d
    values     = [1, 2, 3]
  }
  block "buffer" "vbo" {}
  block "vertex_array" "vao" {
    attribute {
      from = "vbo.buffer"
    }
  }
  block "shader" "flat" {
    stage "vertex" {
      path = "flat.vert"
    }
  }
  block "display" "screen" {}

  connect {
    from = "positions.data"
    to   = "vbo.data"
  }
  connect {
    from = "vao.vertices"
    to   = "flat.vertices"
  }
  connect {
    from = "flat.render"
    to   = "screen.render"
  }

  command "draw" "triangle" {
    block = "flat"
  }
}
`, components)})
			cfg, err := app.NewConfig(app.Config{ProjectPath: root})
			require.NoError(t, err)
			testApp, _ := app.SetupAppTest(t, cfg)

			done := make(chan error, 1)
			go func() { done <- testApp.Run(context.Background()) }()
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Run did not return")
			}

			reports := testApp.Reports()
			require.Len(t, reports, 1)
			assert.Equal(t, "error", reports[0].Status)
			assert.Contains(t, reports[0].Plan,
				fmt.Sprintf(`pass 0: buffer "vbo": skip: components must be between 1 and 4, got %d`, components))
			assert.Zero(t, testApp.Pool().Len())
		})
	}
}

func TestRun_Save(t *testing.T) {
	root := project(t)
	savePath := filepath.Join(t.TempDir(), "out", "saved.hcl")
	cfg, err := app.NewConfig(app.Config{ProjectPath: filepath.Join(root, "scene.hcl"), SavePath: savePath})
	require.NoError(t, err)
	testApp, _ := app.SetupAppTest(t, cfg)
	require.NoError(t, testApp.Run(context.Background()))

	model, _, err := hcl.NewLoader().Load(testutil.Context(t), savePath)
	require.NoError(t, err)
	require.Len(t, model.Pipelines, 1)
	saved := model.Pipelines[0]
	assert.Equal(t, "scene", saved.Name)
	assert.Equal(t, 430, saved.GLVersion)
	assert.Len(t, saved.Blocks, 5)
	assert.Len(t, saved.Connections, 3)
	assert.Equal(t, testApp.Manager().Pipelines()[0].DocumentID().String(), saved.DocumentID)
}

func TestRun_WatchReloadsOnChange(t *testing.T) {
	root := project(t)
	pub := &recordingPublisher{}
	cfg, err := app.NewConfig(app.Config{
		ProjectPath:   root,
		Pipeline:      "scene",
		Watch:         true,
		WatchDebounce: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	testApp, _ := app.SetupAppTest(t, cfg, app.WithPublisher(pub))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testApp.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool { return len(pub.Reports()) == 1 }, 5*time.Second, 10*time.Millisecond)
	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	t.Run("asset change", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "positions.bin"), []byte(floats(0, 0, 0, 1, 0, 0)), 0644))
		require.Eventually(t, func() bool { return len(pub.Reports()) >= 2 }, 5*time.Second, 10*time.Millisecond)
		last := pub.Reports()[len(pub.Reports())-1]
		assert.Contains(t, last.Plan, `pass 0: buffer "vbo": upload 24 bytes`)
	})

	t.Run("unrelated file", func(t *testing.T) {
		n := len(pub.Reports())
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0644))
		time.Sleep(200 * time.Millisecond)
		assert.Len(t, pub.Reports(), n)
	})

	t.Run("project change", func(t *testing.T) {
		n := len(pub.Reports())
		require.NoError(t, os.WriteFile(filepath.Join(root, "scene.hcl"), []byte(`pipeline "scene" {}`), 0644))
		require.Eventually(t, func() bool { return len(pub.Reports()) > n }, 5*time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool {
			reports := pub.Reports()
			return len(reports[len(reports)-1].Passes) == 0
		}, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, 0, testApp.Pool().Len(), "claims of replaced pipelines are released")
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_Healthcheck(t *testing.T) {
	root := project(t)
	port := freePort(t)
	cfg, err := app.NewConfig(app.Config{ProjectPath: root, Pipeline: "scene", Watch: true, HealthcheckPort: port})
	require.NoError(t, err)
	testApp, _ := app.SetupAppTest(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testApp.Run(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		body = string(raw)
		return resp.StatusCode == http.StatusOK && len(testApp.Reports()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "OK")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/reports", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var reports []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "scene", reports[0]["pipeline"])

	cancel()
	require.NoError(t, <-done)
}

func TestNewConfig(t *testing.T) {
	_, err := app.NewConfig(app.Config{})
	require.ErrorContains(t, err, "ProjectPath")

	_, err = app.NewConfig(app.Config{ProjectPath: "p", HealthcheckPort: 70000})
	require.ErrorContains(t, err, "HealthcheckPort")

	_, err = app.NewConfig(app.Config{ProjectPath: "p", PublishEvent: "x"})
	require.ErrorContains(t, err, "require PublishURL")

	cfg, err := app.NewConfig(app.Config{ProjectPath: "p"})
	require.NoError(t, err)
	assert.Equal(t, app.DefaultWatchDebounce, cfg.WatchDebounce)
}
