package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/fsutil"
)

// DefaultGLVersion is used by pipelines that do not set gl_version.
const DefaultGLVersion = 330

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL project loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under the given paths into one model.
// Pipelines keep the order of the files and of their definitions.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	model := &config.Model{}

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if attrs, _ := root.Remain.JustAttributes(); len(attrs) > 0 {
			logger.Warn("Ignoring top-level attributes.", "file", file, "count", len(attrs))
		}

		for _, pb := range root.Pipelines {
			p, err := l.translatePipeline(pb)
			if err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			p.Source = file
			model.Pipelines = append(model.Pipelines, p)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(hclFiles), "pipelines", len(model.Pipelines))
	return model, NewConverter(), nil
}

func (l *Loader) translatePipeline(pb *pipelineBlock) (*config.Pipeline, error) {
	p := &config.Pipeline{
		Name:       pb.Name,
		GLVersion:  DefaultGLVersion,
		DocumentID: pb.DocumentID,
		Sink:       pb.Sink,
	}
	if pb.GLVersion != nil {
		p.GLVersion = *pb.GLVersion
	}

	for _, bb := range pb.Blocks {
		b, err := l.translateBlock(bb)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", pb.Name, err)
		}
		p.Blocks = append(p.Blocks, b)
	}
	for _, cb := range pb.Connects {
		p.Connections = append(p.Connections, &config.Connection{From: cb.From, To: cb.To, Notify: cb.Notify})
	}
	for _, cb := range pb.Commands {
		p.Commands = append(p.Commands, &config.Command{Type: cb.Type, Name: cb.Name, Block: cb.Block})
	}
	return p, nil
}

func (l *Loader) translateBlock(bb *blockBlock) (*config.Block, error) {
	b := &config.Block{Type: bb.Type, Name: bb.Name}

	settings, err := l.extractSettings(bb.Remain)
	if err != nil {
		return nil, fmt.Errorf("block %q %q: %w", bb.Type, bb.Name, err)
	}
	b.Settings = settings

	for _, e := range bb.Entries {
		b.Entries = append(b.Entries, &config.Entry{
			From:      e.From,
			Name:      e.Name,
			Convert:   e.Convert,
			Swizzle:   e.Swizzle,
			Normalize: e.Normalize,
		})
	}
	for _, a := range bb.Attributes {
		b.Attributes = append(b.Attributes, &config.Attribute{From: a.From, Name: a.Name, Location: a.Location})
	}
	for _, s := range bb.Stages {
		b.Stages = append(b.Stages, &config.Stage{Stage: s.Stage, Path: s.Path})
	}
	return b, nil
}

// extractSettings evaluates the remaining attributes of a block. Settings
// are literals: no variables or functions are available.
func (l *Loader) extractSettings(body hcl.Body) (map[string]cty.Value, error) {
	if body == nil {
		return nil, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	settings := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		settings[name] = val
	}
	return settings, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				if _, wasSeen := seen[p]; !wasSeen {
					allFiles = append(allFiles, p)
					seen[p] = struct{}{}
				}
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
