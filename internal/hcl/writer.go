package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/ctxlog"
)

// Writer saves a model as HCL.
type Writer struct{}

// NewWriter creates a new HCL writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Save writes every pipeline of the model into one file at path.
func (w *Writer) Save(ctx context.Context, m *config.Model, path string) error {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, Encode(m), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("Project saved.", "path", path, "pipelines", len(m.Pipelines))
	return nil
}

// Encode renders the model in the format Loader reads.
func Encode(m *config.Model) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()
	for i, p := range m.Pipelines {
		if i > 0 {
			root.AppendNewline()
		}
		encodePipeline(root.AppendNewBlock("pipeline", []string{p.Name}).Body(), p)
	}
	return f.Bytes()
}

func encodePipeline(body *hclwrite.Body, p *config.Pipeline) {
	body.SetAttributeValue("gl_version", cty.NumberIntVal(int64(p.GLVersion)))
	if p.DocumentID != "" {
		body.SetAttributeValue("document_id", cty.StringVal(p.DocumentID))
	}
	if p.Sink != "" {
		body.SetAttributeValue("sink", cty.StringVal(p.Sink))
	}

	for _, b := range p.Blocks {
		body.AppendNewline()
		encodeBlock(body.AppendNewBlock("block", []string{b.Type, b.Name}).Body(), b)
	}
	for _, c := range p.Connections {
		body.AppendNewline()
		cb := body.AppendNewBlock("connect", nil).Body()
		cb.SetAttributeValue("from", cty.StringVal(c.From))
		cb.SetAttributeValue("to", cty.StringVal(c.To))
		if c.Notify != "" {
			cb.SetAttributeValue("notify", cty.StringVal(c.Notify))
		}
	}
	for _, c := range p.Commands {
		body.AppendNewline()
		cb := body.AppendNewBlock("command", []string{c.Type, c.Name}).Body()
		if c.Block != "" {
			cb.SetAttributeValue("block", cty.StringVal(c.Block))
		}
	}
}

func encodeBlock(body *hclwrite.Body, b *config.Block) {
	names := make([]string, 0, len(b.Settings))
	for name := range b.Settings {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if v := b.Settings[name]; !v.IsNull() {
			body.SetAttributeValue(name, v)
		}
	}

	for _, s := range b.Stages {
		body.AppendNewBlock("stage", []string{s.Stage}).Body().SetAttributeValue("path", cty.StringVal(s.Path))
	}
	for _, e := range b.Entries {
		eb := body.AppendNewBlock("entry", nil).Body()
		eb.SetAttributeValue("from", cty.StringVal(e.From))
		setString(eb, "name", e.Name)
		setString(eb, "convert", e.Convert)
		setString(eb, "swizzle", e.Swizzle)
		if e.Normalize {
			eb.SetAttributeValue("normalize", cty.True)
		}
	}
	for _, a := range b.Attributes {
		ab := body.AppendNewBlock("attribute", nil).Body()
		ab.SetAttributeValue("from", cty.StringVal(a.From))
		setString(ab, "name", a.Name)
		if a.Location != nil {
			ab.SetAttributeValue("location", cty.NumberIntVal(int64(*a.Location)))
		}
	}
}

func setString(body *hclwrite.Body, name, v string) {
	if v != "" {
		body.SetAttributeValue(name, cty.StringVal(v))
	}
}
