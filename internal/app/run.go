package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/glgrid/internal/builder"
	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/evaluate"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/publish"
	"github.com/vk/glgrid/internal/renderpass"
)

// Run loads and evaluates the project once, or keeps doing so on every
// change when watching, until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	if a.publisher == nil && a.config.PublishURL != "" {
		client, err := publish.Dial(ctx, publish.Options{
			URL:       a.config.PublishURL,
			Namespace: a.config.PublishNamespace,
			Event:     a.config.PublishEvent,
		})
		if err != nil {
			return fmt.Errorf("failed to connect publisher: %w", err)
		}
		a.publisher = client
		defer client.Close()
	}

	if err := a.Reload(ctx); err != nil {
		if !a.config.Watch {
			return err
		}
		a.logger.Error("Initial load failed, waiting for changes.", "error", err)
	}

	if a.config.Watch {
		return a.watch(ctx)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// Reload replaces every pipeline with a fresh build of the project and
// evaluates it.
func (a *App) Reload(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()

	model, conv, err := a.loader.Load(ctx, a.config.ProjectPath)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if a.config.Pipeline != "" {
		model.Pipelines = filterPipelines(model.Pipelines, a.config.Pipeline)
		if len(model.Pipelines) == 0 {
			return fmt.Errorf("pipeline %q not found in %s", a.config.Pipeline, a.config.ProjectPath)
		}
	}
	logger.Debug("Project loaded.", "pipelines", len(model.Pipelines))

	a.clear(ctx)

	res, err := builder.Build(ctx, a.manager, model, conv)
	if err != nil {
		return fmt.Errorf("failed to build pipelines: %w", err)
	}
	for _, msg := range res.Messages {
		logger.Warn("Project inconsistency.", "message", msg)
	}

	a.reports = a.reports[:0]
	a.assets = make(map[string]bool)
	for i, p := range res.Pipelines {
		report := a.evaluate(ctx, p, model.Pipelines[i])
		report.Messages = messagesOf(res.Messages, p.Name())
		a.reports = append(a.reports, report)
		for _, asset := range graph.CollectAssets(p) {
			a.assets[a.resolve(asset)] = true
		}

		if a.publisher != nil {
			if err := a.publisher.Publish(ctx, report); err != nil {
				logger.Error("Failed to publish report.", "pipeline", p.Name(), "error", err)
			}
		}
	}

	if a.config.SavePath != "" {
		if err := a.save(ctx, model, conv); err != nil {
			return err
		}
	}

	logger.Info("🏁 Project evaluated.", "pipelines", len(res.Pipelines), "messages", len(res.Messages), "cached", a.pool.Len(), "cached_bytes", a.pool.Size())
	return nil
}

// clear drops the pipelines of the previous reload and their cache claims.
func (a *App) clear(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	old := a.manager.Pipelines()
	for _, p := range old {
		a.planner.Release(p)
		if err := a.manager.RemovePipeline(p); err != nil {
			logger.Warn("Failed to remove pipeline.", "pipeline", p.Name(), "error", err)
		}
	}
	purged := a.pool.Purge()
	if len(old) > 0 {
		logger.Debug("Previous pipelines released.", "pipelines", len(old), "purged", purged)
	}
}

// evaluate partitions every sink of p, runs the planner over the passes and
// prints the plan.
func (a *App) evaluate(ctx context.Context, p *graph.Pipeline, def *config.Pipeline) *publish.Report {
	ctx = ctxlog.With(ctx, "pipeline", p.Name())
	logger := ctxlog.FromContext(ctx)

	validation := graph.Validate(p)
	logger.Debug("Pipeline validated.", "status", validation.Status.String(), "issues", len(validation.Issues))

	a.planner.Reset()
	var results []*renderpass.Result
	var failures []string
	sinks, missing := a.sinks(p, def)
	if missing != "" {
		failures = append(failures, fmt.Sprintf("sink %q does not exist", missing))
	}
	for _, sink := range sinks {
		res, err := renderpass.Partition(ctx, sink)
		if err == nil {
			err = evaluate.Run(ctx, a.registry, res)
		}
		if err != nil {
			logger.Error("Sink could not be evaluated.", "sink", sink.Name(), "error", err)
			failures = append(failures, fmt.Sprintf("%s: %s", sink.Name(), err))
			continue
		}
		results = append(results, res)
	}
	if len(sinks) == 0 && missing == "" {
		logger.Warn("Pipeline has nothing to display.")
	}

	fmt.Fprintf(a.outW, "pipeline %q (%s)\n", p.Name(), validation.Status)
	if _, err := a.planner.WriteTo(a.outW); err != nil {
		logger.Error("Failed to print plan.", "error", err)
	}
	for _, f := range failures {
		fmt.Fprintf(a.outW, "error: %s\n", f)
	}

	report := publish.NewReport(p, validation, results)
	for _, s := range a.planner.Steps() {
		report.Plan = append(report.Plan, s.String())
	}
	report.Error = strings.Join(failures, "; ")
	return report
}

// sinks returns the blocks partitioning starts from: the configured sink,
// the pipeline's own sink, or every display block. missing names a sink
// that was asked for but does not exist.
func (a *App) sinks(p *graph.Pipeline, def *config.Pipeline) (sinks []*graph.Block, missing string) {
	name := a.config.Sink
	if name == "" {
		name = def.Sink
	}
	if name == "" {
		return p.FindBlocks(graph.BlockDisplay), ""
	}
	b, ok := p.BlockByName(name)
	if !ok {
		return nil, name
	}
	return []*graph.Block{b}, ""
}

// save writes the live pipelines back, keeping the sinks of the loaded
// definitions.
func (a *App) save(ctx context.Context, loaded *config.Model, conv config.Converter) error {
	model, err := builder.Export(a.manager, conv)
	if err != nil {
		return fmt.Errorf("failed to export pipelines: %w", err)
	}
	for i, def := range model.Pipelines {
		if i < len(loaded.Pipelines) {
			def.Sink = loaded.Pipelines[i].Sink
		}
	}
	if err := a.writer.Save(ctx, model, a.config.SavePath); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (a *App) resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir(a.config.ProjectPath), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func filterPipelines(defs []*config.Pipeline, name string) []*config.Pipeline {
	var out []*config.Pipeline
	for _, def := range defs {
		if def.Name == name {
			out = append(out, def)
		}
	}
	return out
}

func messagesOf(messages []string, pipeline string) []string {
	var out []string
	prefix := pipeline + ": "
	for _, msg := range messages {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			out = append(out, rest)
		}
	}
	return out
}
