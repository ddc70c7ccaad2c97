package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level structure of a project file.
type fileRoot struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type pipelineBlock struct {
	Name       string          `hcl:"name,label"`
	GLVersion  *int            `hcl:"gl_version,optional"`
	DocumentID string          `hcl:"document_id,optional"`
	Sink       string          `hcl:"sink,optional"`
	Blocks     []*blockBlock   `hcl:"block,block"`
	Connects   []*connectBlock `hcl:"connect,block"`
	Commands   []*commandBlock `hcl:"command,block"`
}

// blockBlock keeps kind-specific settings in Remain; they are bound to the
// kind by the Converter.
type blockBlock struct {
	Type       string            `hcl:"type,label"`
	Name       string            `hcl:"name,label"`
	Entries    []*entryBlock     `hcl:"entry,block"`
	Attributes []*attributeBlock `hcl:"attribute,block"`
	Stages     []*stageBlock     `hcl:"stage,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

type entryBlock struct {
	From      string `hcl:"from"`
	Name      string `hcl:"name,optional"`
	Convert   string `hcl:"convert,optional"`
	Swizzle   string `hcl:"swizzle,optional"`
	Normalize bool   `hcl:"normalize,optional"`
}

type attributeBlock struct {
	From     string `hcl:"from"`
	Name     string `hcl:"name,optional"`
	Location *int   `hcl:"location,optional"`
}

type stageBlock struct {
	Stage string `hcl:"stage,label"`
	Path  string `hcl:"path"`
}

type connectBlock struct {
	From   string `hcl:"from"`
	To     string `hcl:"to"`
	Notify string `hcl:"notify,optional"`
}

type commandBlock struct {
	Type  string `hcl:"type,label"`
	Name  string `hcl:"name,label"`
	Block string `hcl:"block,optional"`
}
