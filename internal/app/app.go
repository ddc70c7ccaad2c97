package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vk/glgrid/internal/cache"
	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/evaluate"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/hcl"
	"github.com/vk/glgrid/internal/publish"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	loader     config.Loader
	writer     *hcl.Writer
	httpServer *http.Server

	manager   *graph.Manager
	pool      *cache.Pool
	planner   *evaluate.Planner
	registry  *evaluate.Registry
	publisher publish.Publisher

	// mu guards everything a reload replaces.
	mu      sync.Mutex
	reports []*publish.Report
	assets  map[string]bool
}

// Option customizes an App.
type Option func(*App)

// WithPublisher sends reports to p instead of dialing PublishURL.
func WithPublisher(p publish.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, pipeline manager
// and cache pool. Nothing is loaded until Run.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(appConfig, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	pool := cache.NewPool()
	planner := evaluate.NewPlanner(pool, projectDir(appConfig.ProjectPath))
	a := &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   appConfig,
		loader:   loader,
		writer:   hcl.NewWriter(),
		manager:  graph.NewManager(),
		pool:     pool,
		planner:  planner,
		registry: evaluate.NewRegistry(planner),
		assets:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("App initialized.", "path", appConfig.ProjectPath, "evaluators", len(a.registry.Types()))
	return a
}

// projectDir is the directory relative asset paths are resolved against.
func projectDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// Reports returns the reports of the last reload, one per pipeline.
func (a *App) Reports() []*publish.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.reports)
}

// Manager returns the pipelines of the last reload. This is primarily for
// testing.
func (a *App) Manager() *graph.Manager {
	return a.manager
}

// Pool returns the payload cache. This is primarily for testing.
func (a *App) Pool() *cache.Pool {
	return a.pool
}
